package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/plotinfo/internal/application/extractview"
	"github.com/turtacn/plotinfo/internal/application/highlight"
	"github.com/turtacn/plotinfo/internal/application/plotinfo"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
	"github.com/turtacn/plotinfo/internal/domain/plot"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// PlotHandler exposes plot lookup, info queries and the restriction
// extract over HTTP.
type PlotHandler struct {
	service plotinfo.PlotService
	cfg     plotinfo.Config
	layers  *highlight.Manager
	saver   plotinfo.DocumentSaver
	metrics *prometheus.PlotInfoMetrics
	logger  logging.Logger
}

// NewPlotHandler creates a PlotHandler. saver may be nil, in which case PDF
// downloads answer 503.
func NewPlotHandler(service plotinfo.PlotService, cfg plotinfo.Config, layers *highlight.Manager,
	saver plotinfo.DocumentSaver, metrics *prometheus.PlotInfoMetrics, logger logging.Logger) *PlotHandler {
	if layers == nil {
		layers = highlight.NewManager(highlight.Config{
			ServiceProjection: cfg.ServiceProjection,
			MapProjection:     cfg.MapProjection,
			Language:          cfg.Language,
		})
	}
	return &PlotHandler{service: service, cfg: cfg, layers: layers, saver: saver, metrics: metrics, logger: logger}
}

// QueryLink is one info query resolved for a plot.
type QueryLink struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	PDFURL string `json:"pdf_url,omitempty"`
}

// PlotsResponse lists lookup results.
type PlotsResponse struct {
	Plots []plot.Record `json:"plots"`
}

// ExtractResponse summarises a restriction extract.
type ExtractResponse struct {
	EGRID              string                                `json:"egrid"`
	Sections           []extractview.SectionSummary          `json:"sections"`
	Themes             map[string][]extractview.ThemeSummary `json:"themes"`
	GeneralInformation extractview.GeneralInfo               `json:"general_information"`
}

// ThemeResponse is an aggregated theme with the overlays it would add.
type ThemeResponse struct {
	Theme  oereb.ThemeView `json:"theme"`
	Layers []mapview.Layer `json:"layers"`
}

// DownloadResponse reports where a PDF was stored.
type DownloadResponse struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}

// PlotsAtPoint handles GET /plots?x=..&y=.. with coordinates in the service
// projection.
func (h *PlotHandler) PlotsAtPoint(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeAppError(w, errors.InvalidParam("x and y must be numbers"))
		return
	}
	start := time.Now()
	plots, err := h.service.PlotsAtPoint(r.Context(), x, y)
	h.metrics.RecordLookup(string(plotinfo.LookupByPoint), len(plots), err, time.Since(start))
	if err != nil {
		writeAppError(w, errors.Wrap(err, errors.ErrCodeLookupFailed, "plot lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, PlotsResponse{Plots: nonNil(plots)})
}

// PlotByEGRID handles GET /plots/{egrid}.
func (h *PlotHandler) PlotByEGRID(w http.ResponseWriter, r *http.Request) {
	plots, err := h.lookup(r.Context(), chi.URLParam(r, "egrid"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlotsResponse{Plots: plots})
}

func (h *PlotHandler) lookup(ctx context.Context, egrid string) ([]plot.Record, error) {
	start := time.Now()
	plots, err := h.service.PlotsByEGRID(ctx, egrid)
	h.metrics.RecordLookup(string(plotinfo.LookupByIdentifier), len(plots), err, time.Since(start))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLookupFailed, "plot lookup failed").WithDetail("egrid=" + egrid)
	}
	if len(plots) == 0 {
		return nil, errors.NotFound("no plot found").WithDetail("egrid=" + egrid)
	}
	return plots, nil
}

// Queries handles GET /plots/{egrid}/queries.
func (h *PlotHandler) Queries(w http.ResponseWriter, r *http.Request) {
	egrid := chi.URLParam(r, "egrid")
	all := h.cfg.Queries.All()
	out := make([]QueryLink, 0, len(all))
	for _, q := range all {
		out = append(out, QueryLink{
			Key:    q.Key,
			Title:  q.Title,
			URL:    q.QueryURL(h.cfg.ServiceURL, egrid),
			PDFURL: q.PDFURL(h.cfg.ServiceURL, egrid),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Query handles GET /plots/{egrid}/queries/{key} and relays the payload.
func (h *PlotHandler) Query(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	payload, err := h.fetch(r.Context(), q, chi.URLParam(r, "egrid"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	ct := payload.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload.Data)
}

func (h *PlotHandler) query(w http.ResponseWriter, r *http.Request) (plot.InfoQuery, bool) {
	key := chi.URLParam(r, "key")
	q, ok := h.cfg.Queries.Get(key)
	if !ok {
		writeAppError(w, errors.NotFound("unknown query").WithDetail(key))
	}
	return q, ok
}

func (h *PlotHandler) fetch(ctx context.Context, q plot.InfoQuery, egrid string) (plot.Payload, error) {
	start := time.Now()
	payload, err := h.service.FetchQuery(ctx, q.QueryURL(h.cfg.ServiceURL, egrid))
	h.metrics.RecordQuery(q.Key, err, time.Since(start))
	if err != nil {
		return plot.Payload{}, errors.Wrap(err, errors.ErrCodeQueryFailed, "query failed").WithDetail(q.Key)
	}
	return payload, nil
}

// extract fetches and normalizes the restriction extract of egrid.
func (h *PlotHandler) extract(ctx context.Context, egrid string) (extractview.View, error) {
	q, ok := h.cfg.Queries.Get(h.cfg.ExtractQueryKey)
	if !ok {
		return extractview.View{}, errors.NotFound("no extract query configured")
	}
	payload, err := h.fetch(ctx, q, egrid)
	if err != nil {
		return extractview.View{}, err
	}
	doc, err := oereb.Normalize(oereb.Sniff(payload.Data, payload.ContentType))
	if err != nil {
		return extractview.View{}, err
	}
	return extractview.New(doc, extractview.Config{Language: h.cfg.Language, Subthemes: h.cfg.Subthemes}, h.layers), nil
}

// Extract handles GET /plots/{egrid}/extract.
func (h *PlotHandler) Extract(w http.ResponseWriter, r *http.Request) {
	egrid := chi.URLParam(r, "egrid")
	view, err := h.extract(r.Context(), egrid)
	if err != nil {
		writeAppError(w, err)
		return
	}
	resp := ExtractResponse{
		EGRID:              egrid,
		Sections:           view.Sections(),
		Themes:             make(map[string][]extractview.ThemeSummary),
		GeneralInformation: view.GeneralInformation(),
	}
	for _, s := range extractview.Sections {
		if s == extractview.SectionGeneral {
			continue
		}
		if themes := view.Themes(s); len(themes) > 0 {
			resp.Themes[string(s)] = themes
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Theme handles GET /plots/{egrid}/extract/themes/{code}.
func (h *PlotHandler) Theme(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	view, err := h.extract(r.Context(), chi.URLParam(r, "egrid"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	start := time.Now()
	view, _ = view.ToggleTheme(code)
	theme := view.Theme(code)
	h.metrics.ObserveAggregation(time.Since(start))
	if theme.IsEmpty() {
		writeAppError(w, errors.NotFound("theme not concerned").WithDetail(code))
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: theme, Layers: view.Layers()})
}

// DownloadPDF handles POST /plots/{egrid}/queries/{key}/pdf. The document is
// stored through the configured saver.
func (h *PlotHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	if !q.HasPDF() {
		writeAppError(w, errors.NotFound("query offers no PDF").WithDetail(q.Key))
		return
	}
	if h.saver == nil {
		writeAppError(w, errors.New(errors.ErrCodeServiceUnavailable, "no document store configured"))
		return
	}
	url := q.PDFURL(h.cfg.ServiceURL, chi.URLParam(r, "egrid"))
	start := time.Now()
	resp, err := h.download(r.Context(), url, plot.DefaultPDFName(q.Key))
	h.metrics.RecordDownload(err, time.Since(start))
	if err != nil {
		h.logger.Warn("pdf download failed", logging.String("url", url), logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *PlotHandler) download(ctx context.Context, url, fallback string) (DownloadResponse, error) {
	bin, err := h.service.FetchBinary(ctx, url)
	if err != nil {
		return DownloadResponse{}, errors.Wrap(err, errors.ErrCodeDownloadFailed, "download failed")
	}
	name := bin.Filename(fallback)
	location, err := h.saver.Save(ctx, name, bin.ContentType, bin.Data)
	if err != nil {
		return DownloadResponse{}, errors.Wrap(err, errors.ErrCodeDownloadFailed, "save failed")
	}
	return DownloadResponse{Filename: name, Location: location}, nil
}

func nonNil(plots []plot.Record) []plot.Record {
	if plots == nil {
		return []plot.Record{}
	}
	return plots
}
