// Package plotinfo orchestrates the plot-info tool: plot lookup by map click
// or by EGRID, plot selection, expandable info queries, PDF downloads and
// identify result merging.
//
// Machine holds the transition rules and is free of I/O. Session owns a State,
// feeds events through the Machine and executes the resulting effects.
package plotinfo

import (
	"github.com/turtacn/plotinfo/internal/application/extractview"
	"github.com/turtacn/plotinfo/internal/application/highlight"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
	"github.com/turtacn/plotinfo/internal/domain/plot"
	"github.com/turtacn/plotinfo/internal/infrastructure/geo"
)

// Config is the static configuration of a Machine.
type Config struct {
	ServiceURL        string
	Queries           plot.QuerySet
	ToolLayers        []string
	ServiceProjection string
	MapProjection     string
	Resolutions       []float64
	MapWidth          int
	MapHeight         int
	ExtractQueryKey   string
	StartupParam      string
	Language          string
	Subthemes         oereb.SubthemeOrder
}

// Machine applies events to states.
type Machine struct {
	cfg    Config
	layers *highlight.Manager
}

// NewMachine creates a Machine. layers builds the highlight effects; nil
// uses a manager derived from cfg.
func NewMachine(cfg Config, layers *highlight.Manager) *Machine {
	if layers == nil {
		layers = highlight.NewManager(highlight.Config{
			ServiceProjection: cfg.ServiceProjection,
			MapProjection:     cfg.MapProjection,
			Language:          cfg.Language,
		})
	}
	return &Machine{cfg: cfg, layers: layers}
}

// Config returns the machine configuration.
func (m *Machine) Config() Config { return m.cfg }

// Apply returns the state following s after ev and the effects to execute.
// Events that do not apply to s return s unchanged and no effects.
func (m *Machine) Apply(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Activated:
		return m.activate(s)
	case Deactivated:
		return m.deactivate(s)
	case StartupParams:
		return m.startup(s, e)
	case PointSelected:
		return m.pointSelected(s, e)
	case IdentifierRequested:
		return m.identifierRequested(s, e)
	case LookupSucceeded:
		return m.lookupSucceeded(s, e)
	case LookupFailed:
		return m.lookupFailed(s, e)
	case PlotSelected:
		return m.selectPlot(s, e.Index)
	case QueryToggled:
		return m.toggleQuery(s, e.Key)
	case QueryLoaded:
		return m.queryLoaded(s, e)
	case QueryFailed:
		return m.queryFailed(s, e)
	case PDFRequested:
		return m.requestPDF(s, e.Key)
	case PDFSaved:
		return s.withoutPending(e.URL), nil
	case PDFFailed:
		return s.withoutPending(e.URL), []Effect{Notify{Level: LevelError, Message: "Print failed"}}
	case IdentifyResultsReceived:
		return m.identify(s, e)
	case ExtractSectionToggled, ExtractThemeToggled, ExtractLegendToggled, ExtractLayerToggled:
		return m.extractEvent(s, ev)
	}
	return s, nil
}

func (m *Machine) activate(s State) (State, []Effect) {
	if s.Phase != PhaseInactive {
		return s, nil
	}
	s.Phase = PhaseAwaiting
	return s, []Effect{
		mapview.SetPointSelection{Enabled: true},
		mapview.AddThemeSublayers{Layers: append([]string(nil), m.cfg.ToolLayers...)},
	}
}

func (m *Machine) deactivate(s State) (State, []Effect) {
	if s.Phase == PhaseInactive {
		return s, nil
	}
	effects := []Effect{mapview.SetPointSelection{Enabled: false}}
	effects = append(effects, m.layers.RemovePlotSelection())
	effects = append(effects, closeExtract(s.Result)...)
	if s.Identify.Len() > 0 {
		effects = append(effects, mapview.RemoveLayer{ID: highlight.IdentifyLayerID})
	}
	return State{
		Phase:     PhaseInactive,
		LookupSeq: s.LookupSeq + 1,
		QuerySeq:  s.QuerySeq + 1,
	}, effects
}

// startup consumes the URL parameters present at host start. The startup
// parameter only activates the tool; otherwise the first query whose URL key
// is set activates the tool and looks that plot up. A consumed parameter is
// cleared from the URL.
func (m *Machine) startup(s State, e StartupParams) (State, []Effect) {
	if m.cfg.StartupParam != "" {
		if _, ok := e.Params[m.cfg.StartupParam]; ok {
			s, effects := m.activate(s)
			return s, append(effects, ClearURLParam{Key: m.cfg.StartupParam})
		}
	}
	for _, q := range m.cfg.Queries.All() {
		if q.URLKey == "" || e.Params[q.URLKey] == "" {
			continue
		}
		var effects, more []Effect
		s, effects = m.activate(s)
		s, more = m.identifierRequested(s, IdentifierRequested{EGRID: e.Params[q.URLKey], QueryKey: q.Key})
		effects = append(effects, more...)
		return s, append(effects, ClearURLParam{Key: q.URLKey})
	}
	return s, nil
}

func (m *Machine) pointSelected(s State, e PointSelected) (State, []Effect) {
	if s.Phase == PhaseInactive {
		return s, nil
	}
	s.LookupSeq++
	return s, []Effect{ClearSearch{}, FetchPlotsAtPoint{Seq: s.LookupSeq, X: e.X, Y: e.Y}}
}

func (m *Machine) identifierRequested(s State, e IdentifierRequested) (State, []Effect) {
	if s.Phase == PhaseInactive || e.EGRID == "" {
		return s, nil
	}
	key := e.QueryKey
	if key == "" {
		key = m.cfg.ExtractQueryKey
	}
	s.LookupSeq++
	return s, []Effect{FetchPlotsByIdentifier{Seq: s.LookupSeq, EGRID: e.EGRID, QueryKey: key}}
}

func (m *Machine) lookupSucceeded(s State, e LookupSucceeded) (State, []Effect) {
	if s.Phase == PhaseInactive || e.Seq != s.LookupSeq {
		return s, nil
	}
	effects := closeExtract(s.Result)
	s.ExpandedQuery = ""
	s.Result = nil
	s.QuerySeq++
	s.Current = 0

	if len(e.Plots) == 0 {
		s.Phase = PhaseAwaiting
		s.Plots = nil
		return s, append(effects, m.layers.RemovePlotSelection())
	}
	s.Phase = PhasePlotListed
	s.Plots = append([]plot.Record(nil), e.Plots...)
	effects = append(effects, m.layers.PlotSelection(&s.Plots[0])...)

	if e.Mode != LookupByIdentifier {
		return s, effects
	}
	if zoom, ok := m.zoomTo(s.Plots[0]); ok {
		effects = append(effects, zoom)
	}
	if e.QueryKey != "" {
		var more []Effect
		s, more = m.toggleQuery(s, e.QueryKey)
		effects = append(effects, more...)
	}
	return s, effects
}

// zoomTo centres the map on rec's bounding box one level above the level
// that fits it.
func (m *Machine) zoomTo(rec plot.Record) (Effect, bool) {
	b, err := rec.Bounds()
	if err != nil {
		return nil, false
	}
	bounds, err := geo.TransformBBox(m.cfg.ServiceProjection, m.cfg.MapProjection, geo.BBox(b))
	if err != nil {
		return nil, false
	}
	maxZoom := len(m.cfg.Resolutions) - 1
	zoom := geo.ZoomForExtent(bounds, m.cfg.Resolutions, m.cfg.MapWidth, m.cfg.MapHeight, 0, maxZoom) - 1
	if zoom < 0 {
		zoom = 0
	}
	x, y := bounds.Center()
	return mapview.ZoomToPoint{X: x, Y: y, Zoom: zoom, CRS: m.cfg.MapProjection}, true
}

// lookupFailed keeps the state. Only identifier lookups are surfaced; a
// failed click lookup is silent.
func (m *Machine) lookupFailed(s State, e LookupFailed) (State, []Effect) {
	if s.Phase == PhaseInactive || e.Seq != s.LookupSeq {
		return s, nil
	}
	if e.Mode == LookupByIdentifier {
		return s, []Effect{Notify{Level: LevelError, Message: "Query failed"}}
	}
	return s, nil
}

func (m *Machine) selectPlot(s State, index int) (State, []Effect) {
	if s.Phase != PhasePlotListed || index == s.Current || index < 0 || index >= len(s.Plots) {
		return s, nil
	}
	effects := closeExtract(s.Result)
	s.Current = index
	s.ExpandedQuery = ""
	s.Result = nil
	s.PendingPDFs = nil
	s.QuerySeq++
	return s, append(effects, m.layers.PlotSelection(&s.Plots[index])...)
}

func (m *Machine) toggleQuery(s State, key string) (State, []Effect) {
	rec := s.CurrentPlot()
	if rec == nil {
		return s, nil
	}
	q, ok := m.cfg.Queries.Get(key)
	if !ok {
		return s, nil
	}
	effects := closeExtract(s.Result)
	s.Result = nil
	s.QuerySeq++
	if s.ExpandedQuery == key {
		s.ExpandedQuery = ""
		return s, effects
	}
	s.ExpandedQuery = key
	return s, append(effects, FetchQuery{
		Seq:   s.QuerySeq,
		Key:   key,
		EGRID: rec.EGRID,
		URL:   q.QueryURL(m.cfg.ServiceURL, rec.EGRID),
	})
}

func (m *Machine) current(s State, seq uint64, key string) bool {
	return s.Phase == PhasePlotListed && seq == s.QuerySeq && key == s.ExpandedQuery
}

func (m *Machine) queryLoaded(s State, e QueryLoaded) (State, []Effect) {
	if !m.current(s, e.Seq, e.Key) {
		return s, nil
	}
	result := &QueryResult{
		QueryKey:    e.Key,
		ForEGRID:    e.EGRID,
		URL:         e.URL,
		Data:        e.Payload.Data,
		ContentType: e.Payload.ContentType,
	}
	if e.Key == m.cfg.ExtractQueryKey {
		doc, err := oereb.Normalize(oereb.Sniff(e.Payload.Data, e.Payload.ContentType))
		if err != nil {
			result.ExtractError = err.Error()
		} else {
			view := extractview.New(doc, extractview.Config{Language: m.cfg.Language, Subthemes: m.cfg.Subthemes}, m.layers)
			result.Extract = &view
		}
	}
	s.Result = result
	return s, nil
}

func (m *Machine) queryFailed(s State, e QueryFailed) (State, []Effect) {
	if !m.current(s, e.Seq, e.Key) {
		return s, nil
	}
	reason := "query failed"
	if e.Err != nil {
		reason = e.Err.Error()
	}
	s.Result = &QueryResult{
		QueryKey:      e.Key,
		ForEGRID:      e.EGRID,
		URL:           e.URL,
		Failed:        true,
		FailureReason: reason,
	}
	return s, nil
}

func (m *Machine) requestPDF(s State, key string) (State, []Effect) {
	rec := s.CurrentPlot()
	if rec == nil {
		return s, nil
	}
	q, ok := m.cfg.Queries.Get(key)
	if !ok || !q.HasPDF() {
		return s, nil
	}
	url := q.PDFURL(m.cfg.ServiceURL, rec.EGRID)
	if s.IsPending(url) {
		return s, nil
	}
	return s.withPending(url), []Effect{DownloadPDF{URL: url, Key: key, Fallback: plot.DefaultPDFName(key)}}
}

func (m *Machine) identify(s State, e IdentifyResultsReceived) (State, []Effect) {
	if s.Phase == PhaseInactive {
		return s, nil
	}
	merged := s.Identify.Clone()
	merged.Merge(e.Layer, e.Features)
	s.Identify = merged
	return s, m.layers.IdentifyMarker(merged)
}

func (m *Machine) extractEvent(s State, ev Event) (State, []Effect) {
	if s.Result == nil || s.Result.Extract == nil {
		return s, nil
	}
	view := *s.Result.Extract
	var effects []Effect
	switch e := ev.(type) {
	case ExtractSectionToggled:
		view, effects = view.ToggleSection(e.Section)
	case ExtractThemeToggled:
		view, effects = view.ToggleTheme(e.Code)
	case ExtractLegendToggled:
		view = view.ToggleFullLegend(e.ID)
	case ExtractLayerToggled:
		view, effects = view.ToggleSubthemeLayer(e.Subtheme)
	}
	result := *s.Result
	result.Extract = &view
	s.Result = &result
	return s, effects
}

// closeExtract removes the overlays owned by an extract result.
func closeExtract(r *QueryResult) []Effect {
	if r == nil || r.Extract == nil {
		return nil
	}
	_, effects := r.Extract.Close()
	return effects
}
