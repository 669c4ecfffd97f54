package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/plotinfo/internal/app"
	"github.com/turtacn/plotinfo/internal/application/plotinfo"
	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/plot"
	"github.com/turtacn/plotinfo/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/pkg/errors"
)

const (
	testServiceURL = "https://geo.example.ch/plotinfo"
	testEGRID      = "CH607735873285"
)

type stubService struct {
	mu        sync.Mutex
	plots     []plot.Record
	lookupErr error
	payload   plot.Payload
	queryErr  error
	binary    plot.Binary
	binErr    error
	fetched   []string
}

func (s *stubService) PlotsAtPoint(context.Context, float64, float64) ([]plot.Record, error) {
	return s.plots, s.lookupErr
}

func (s *stubService) PlotsByEGRID(context.Context, string) ([]plot.Record, error) {
	return s.plots, s.lookupErr
}

func (s *stubService) FetchQuery(_ context.Context, url string) (plot.Payload, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, url)
	s.mu.Unlock()
	return s.payload, s.queryErr
}

func (s *stubService) FetchBinary(_ context.Context, url string) (plot.Binary, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, url)
	s.mu.Unlock()
	return s.binary, s.binErr
}

type memorySaver struct {
	err error
}

func (m *memorySaver) Save(_ context.Context, name, _ string, _ []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "mem://" + name, nil
}

func testPlots() []plot.Record {
	return []plot.Record{{
		Label:  "GB 1234",
		EGRID:  testEGRID,
		Geom:   "POLYGON((2600000 1200000,2600100 1200000,2600100 1200100,2600000 1200100,2600000 1200000))",
		BBox:   []float64{2600000, 1200000, 2600100, 1200100},
		Fields: []plot.Field{{Key: "Fläche", Value: "540 m²"}},
	}}
}

func extractPayload(t *testing.T) plot.Payload {
	t.Helper()
	data, err := os.ReadFile("../../domain/oereb/testdata/extract.json")
	require.NoError(t, err)
	return plot.Payload{Data: data, ContentType: "application/json"}
}

func newTestContext(svc plotinfo.PlotService, saver plotinfo.DocumentSaver, format string) *CLIContext {
	cfg := &config.Config{}
	cfg.Service.BaseURL = testServiceURL
	cfg.PlotInfo.InfoQueries = []config.InfoQueryConfig{
		{Key: "oereb", Title: "ÖREB", Query: "/oereb/json/$egrid$", PDFQuery: "/oereb/pdf/$egrid$"},
		{Key: "plotdescr", Title: "Beschreibung", Query: "/plot/$egrid$"},
	}
	config.ApplyDefaults(cfg)
	log := logging.NewNopLogger()
	return &CLIContext{
		Config:       cfg,
		Logger:       log,
		App:          &app.App{Config: cfg, Logger: log, Service: svc, Saver: saver},
		OutputFormat: format,
	}
}

func execute(t *testing.T, cc *CLIContext, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetContext(WithCLIContext(context.Background(), cc))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"lookup", "queries", "extract", "pdf", "effects", "cache"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"Key", "Title"}, [][]string{{"oereb", "ÖREB"}})
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "oereb")
	assert.Empty(t, FormatTable(nil, nil))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "Grundst...", truncateString("Grundstücksfläche", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

func TestLookupEGRID_JSON(t *testing.T) {
	cc := newTestContext(&stubService{plots: testPlots()}, nil, "json")
	out, _, err := execute(t, cc, NewLookupCmd(), "egrid", testEGRID)
	require.NoError(t, err)

	var list PlotList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Plots, 1)
	assert.Equal(t, testEGRID, list.Plots[0].EGRID)
}

func TestLookupEGRID_NotFound(t *testing.T) {
	cc := newTestContext(&stubService{}, nil, "json")
	_, _, err := execute(t, cc, NewLookupCmd(), "egrid", "CH0")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestLookupPoint(t *testing.T) {
	cc := newTestContext(&stubService{plots: testPlots()}, nil, "table")
	out, _, err := execute(t, cc, NewLookupCmd(), "point", "2600050", "1200050")
	require.NoError(t, err)
	assert.Contains(t, out, testEGRID)
	assert.Contains(t, out, "Fläche: 540 m²")

	_, _, err = execute(t, cc, NewLookupCmd(), "point", "east", "1200050")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestLookupPoint_Empty(t *testing.T) {
	cc := newTestContext(&stubService{}, nil, "table")
	out, stderr, err := execute(t, cc, NewLookupCmd(), "point", "1", "2")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "No plots")
}

func TestQueries_List(t *testing.T) {
	cc := newTestContext(&stubService{}, nil, "json")
	out, _, err := execute(t, cc, NewQueriesCmd(), testEGRID)
	require.NoError(t, err)

	var list QueryList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Queries, 2)
	assert.Equal(t, testServiceURL+"/oereb/json/"+testEGRID, list.Queries[0].URL)
	assert.Equal(t, testServiceURL+"/oereb/pdf/"+testEGRID, list.Queries[0].PDFURL)
	assert.Empty(t, list.Queries[1].PDFURL)
}

func TestQueries_FetchOne(t *testing.T) {
	svc := &stubService{payload: plot.Payload{Data: []byte("<p>Beschreibung</p>"), ContentType: "text/html"}}
	cc := newTestContext(svc, nil, "json")
	out, _, err := execute(t, cc, NewQueriesCmd(), testEGRID, "plotdescr")
	require.NoError(t, err)
	assert.Equal(t, "<p>Beschreibung</p>", out)
	assert.Equal(t, []string{testServiceURL + "/plot/" + testEGRID}, svc.fetched)

	_, _, err = execute(t, cc, NewQueriesCmd(), testEGRID, "nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestExtract_Summary(t *testing.T) {
	svc := &stubService{plots: testPlots(), payload: extractPayload(t)}
	cc := newTestContext(svc, nil, "json")
	out, _, err := execute(t, cc, NewExtractCmd(), testEGRID)
	require.NoError(t, err)

	var summary ExtractSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.NotEmpty(t, summary.Sections)
	assert.Equal(t, "concernedThemes", string(summary.Sections[0].Name))
	assert.Len(t, summary.Themes["concernedThemes"], 1)
	assert.Len(t, summary.Themes["notConcernedThemes"], 2)
}

func TestExtract_Theme(t *testing.T) {
	svc := &stubService{plots: testPlots(), payload: extractPayload(t)}
	cc := newTestContext(svc, nil, "json")
	out, _, err := execute(t, cc, NewExtractCmd(), testEGRID, "--theme", "LandUsePlans")
	require.NoError(t, err)

	var detail ThemeDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, "LandUsePlans", detail.Theme.Code)
	assert.NotEmpty(t, detail.Theme.Subthemes)

	_, _, err = execute(t, newTestContext(svc, nil, "json"), NewExtractCmd(), testEGRID, "--theme", "ContaminatedSites")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name string
		svc  *stubService
		code errors.ErrorCode
	}{
		{"lookup fails", &stubService{lookupErr: fmt.Errorf("down")}, errors.CodeUnknown},
		{"no plot", &stubService{}, errors.ErrCodeNotFound},
		{"query fails", &stubService{plots: testPlots(), queryErr: fmt.Errorf("bad gateway")}, errors.ErrCodeQueryFailed},
		{"malformed", &stubService{plots: testPlots(), payload: plot.Payload{Data: []byte(`{"x":1}`), ContentType: "application/json"}}, errors.ErrCodeMalformedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, newTestContext(tt.svc, nil, "json"), NewExtractCmd(), testEGRID)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestPDF(t *testing.T) {
	svc := &stubService{plots: testPlots(), binary: plot.Binary{
		Data:        []byte("%PDF-1.4"),
		ContentType: "application/pdf",
		Disposition: `attachment; filename="extract_CH607735873285.pdf"`,
	}}
	cc := newTestContext(svc, &memorySaver{}, "json")
	out, _, err := execute(t, cc, NewPDFCmd(), testEGRID, "oereb")
	require.NoError(t, err)

	var doc savedDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "extract_CH607735873285.pdf", doc.Filename)
	assert.Equal(t, "mem://extract_CH607735873285.pdf", doc.Location)
	assert.Contains(t, svc.fetched, testServiceURL+"/oereb/pdf/"+testEGRID)
}

func TestPDF_Failures(t *testing.T) {
	plots := testPlots()
	tests := []struct {
		name  string
		svc   *stubService
		saver plotinfo.DocumentSaver
		key   string
		want  string
	}{
		{"unknown query", &stubService{plots: plots}, &memorySaver{}, "nope", "unknown query"},
		{"no pdf", &stubService{plots: plots}, &memorySaver{}, "plotdescr", "query offers no PDF"},
		{"no saver", &stubService{plots: plots}, nil, "oereb", "no document store"},
		{"download fails", &stubService{plots: plots, binErr: fmt.Errorf("gone")}, &memorySaver{}, "oereb", "Print failed"},
		{"save fails", &stubService{plots: plots}, &memorySaver{err: fmt.Errorf("disk full")}, "oereb", "Print failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, newTestContext(tt.svc, tt.saver, "json"), NewPDFCmd(), testEGRID, tt.key)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCacheInvalidate_Disabled(t *testing.T) {
	cc := newTestContext(&stubService{}, nil, "json")
	_, _, err := execute(t, cc, NewCacheCmd(), "invalidate")
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

// queueReader serves queued messages, then blocks until cancelled.
type queueReader struct {
	mu    sync.Mutex
	queue []kafkago.Message
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(context.Context, ...kafkago.Message) error { return nil }
func (r *queueReader) Close() error                                             { return nil }

func envelopeMessage(t *testing.T, session string, effect mapview.Effect) kafkago.Message {
	t.Helper()
	env, err := kafka.NewEffectEnvelope(session, effect)
	require.NoError(t, err)
	msg, err := env.ToMessage()
	require.NoError(t, err)
	return kafkago.Message{Key: msg.Key, Value: msg.Value}
}

func TestEffectsTail(t *testing.T) {
	reader := &queueReader{queue: []kafkago.Message{
		envelopeMessage(t, "other", mapview.RemoveLayer{ID: "x"}),
		envelopeMessage(t, "s1", mapview.SetPointSelection{Enabled: true}),
		envelopeMessage(t, "s1", mapview.RemoveLayer{ID: "plotselection"}),
	}}
	orig := newEffectConsumer
	newEffectConsumer = func(config.KafkaConfig, logging.Logger) (*kafka.Consumer, error) {
		return kafka.NewConsumerWithReader(reader, logging.NewNopLogger()), nil
	}
	t.Cleanup(func() { newEffectConsumer = orig })

	cc := newTestContext(&stubService{}, nil, "json")
	cc.Config.Kafka.Enabled = true
	out, _, err := execute(t, cc, NewEffectsCmd(), "tail", "--session", "s1", "--limit", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], mapview.KindSetPointSelection))
	assert.True(t, strings.HasPrefix(lines[1], mapview.KindRemoveLayer))
	assert.Contains(t, lines[1], `"plotselection"`)
}

func TestEffectsTail_KafkaDisabled(t *testing.T) {
	cc := newTestContext(&stubService{}, nil, "json")
	_, _, err := execute(t, cc, NewEffectsCmd(), "tail")
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}
