package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/plotinfo/internal/application/highlight"
	"github.com/turtacn/plotinfo/internal/application/plotinfo"
	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/internal/infrastructure/storage/local"
)

const plotsBody = `{"plots":[{
	"label":"Liegenschaft 1234",
	"egrid":"CH607735873285",
	"geom":"POLYGON((2600000 1200000,2600100 1200000,2600100 1200100,2600000 1200000))",
	"bbox":[2600000,1200000,2600100,1200100],
	"fields":[]
}]}`

func newPlotServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(plotsBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Service.BaseURL = baseURL
	cfg.Service.RetryMax = 1
	cfg.Download.Target = config.DownloadTargetLocal
	cfg.Download.Directory = t.TempDir()
	cfg.PlotInfo.InfoQueries = []config.InfoQueryConfig{
		{Key: "oereb", Query: "/oereb/json/$egrid$", PDFQuery: "/oereb/pdf/$egrid$"},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestNew_LocalSaverOnly(t *testing.T) {
	srv, _ := newPlotServer(t)
	a, err := New(context.Background(), testConfig(t, srv.URL), logging.NewNopLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cached)
	assert.Nil(t, a.Producer)
	assert.Nil(t, a.Metrics)
	assert.Empty(t, a.Checks)
	assert.IsType(t, &local.Saver{}, a.Saver)
	assert.IsType(t, &plotinfo.ClientService{}, a.Service)
}

func TestNew_RedisCachesLookups(t *testing.T) {
	srv, calls := newPlotServer(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(t, srv.URL)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.Metrics.Enabled = true

	a, err := New(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Cached)
	require.NotNil(t, a.Metrics)
	require.Len(t, a.Checks, 1)
	assert.Equal(t, "redis", a.Checks[0].Name)
	assert.False(t, a.Checks[0].Required)
	assert.NoError(t, a.Checks[0].Ping(context.Background()))

	for i := 0; i < 2; i++ {
		plots, err := a.Service.PlotsByEGRID(context.Background(), "CH607735873285")
		require.NoError(t, err)
		require.Len(t, plots, 1)
	}
	assert.Equal(t, 1, *calls)

	n, err := a.Cached.Invalidate(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestNew_RedisUnreachable(t *testing.T) {
	srv, _ := newPlotServer(t)
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = addr

	_, err := New(context.Background(), cfg, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNew_UnknownDownloadTarget(t *testing.T) {
	srv, _ := newPlotServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Download.Target = "ftp"

	_, err := New(context.Background(), cfg, logging.NewNopLogger())
	assert.ErrorContains(t, err, `unknown download target "ftp"`)
}

func TestApp_MapWithoutProducer(t *testing.T) {
	srv, _ := newPlotServer(t)
	a, err := New(context.Background(), testConfig(t, srv.URL), logging.NewNopLogger())
	require.NoError(t, err)
	defer a.Close()

	rec := mapview.NewRecorder()
	assert.Same(t, rec, a.Map("s1", rec))
}

func TestApp_SessionSelectsPlot(t *testing.T) {
	srv, _ := newPlotServer(t)
	a, err := New(context.Background(), testConfig(t, srv.URL), logging.NewNopLogger())
	require.NoError(t, err)
	defer a.Close()

	rec := mapview.NewRecorder()
	s := a.NewSession(a.Map("s1", rec), plotinfo.WithSynchronousIO())
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, plotinfo.Activated{}))
	require.NoError(t, s.Dispatch(ctx, plotinfo.PointSelected{X: 2600050, Y: 1200050}))

	snap := s.Snapshot()
	assert.Equal(t, plotinfo.PhasePlotListed, snap.Phase)
	require.Len(t, snap.Plots, 1)
	features := rec.Features(highlight.PlotSelectionLayerID)
	require.Len(t, features, 1)
	assert.Equal(t, "CH607735873285", features[0].ID)
}

func TestApp_MachineConfigUsesQueries(t *testing.T) {
	srv, _ := newPlotServer(t)
	a, err := New(context.Background(), testConfig(t, srv.URL), logging.NewNopLogger())
	require.NoError(t, err)
	defer a.Close()

	mc := a.MachineConfig()
	q, ok := mc.Queries.Get("oereb")
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/oereb/pdf/CH1", q.PDFURL(mc.ServiceURL, "CH1"))
	assert.Equal(t, "EPSG:3857", mc.MapProjection)
	assert.Equal(t, "de", a.Layers().Language())
}
