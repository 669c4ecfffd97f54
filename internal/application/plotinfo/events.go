package plotinfo

import (
	"github.com/turtacn/plotinfo/internal/application/extractview"
	"github.com/turtacn/plotinfo/internal/domain/plot"
)

// Event is an input to Machine.Apply. Name identifies it in logs and metrics.
type Event interface {
	Name() string
}

// LookupMode tells which path issued a plot lookup.
type LookupMode string

const (
	LookupByPoint      LookupMode = "point"
	LookupByIdentifier LookupMode = "identifier"
)

// Activated is sent when the tool becomes the current task.
type Activated struct{}

// Deactivated is sent when the tool stops being the current task.
type Deactivated struct{}

// PointSelected is a map click in map coordinates.
type PointSelected struct {
	X, Y float64
}

// IdentifierRequested asks for a plot by EGRID. QueryKey names the query to
// expand once the plot is known; empty means the extract query.
type IdentifierRequested struct {
	EGRID    string
	QueryKey string
}

// StartupParams carries the URL parameters present when the host started.
type StartupParams struct {
	Params map[string]string
}

// LookupSucceeded completes a FetchPlotsAtPoint or FetchPlotsByIdentifier.
type LookupSucceeded struct {
	Seq      uint64
	Mode     LookupMode
	QueryKey string
	Plots    []plot.Record
}

// LookupFailed completes a lookup with an error.
type LookupFailed struct {
	Seq  uint64
	Mode LookupMode
	Err  error
}

// PlotSelected switches the current plot.
type PlotSelected struct {
	Index int
}

// QueryToggled expands or collapses the query with Key.
type QueryToggled struct {
	Key string
}

// QueryLoaded completes a FetchQuery.
type QueryLoaded struct {
	Seq     uint64
	Key     string
	EGRID   string
	URL     string
	Payload plot.Payload
}

// QueryFailed completes a FetchQuery with an error.
type QueryFailed struct {
	Seq   uint64
	Key   string
	EGRID string
	URL   string
	Err   error
}

// PDFRequested asks for the PDF of the query with Key.
type PDFRequested struct {
	Key string
}

// PDFSaved completes a DownloadPDF. Location is where the document went.
type PDFSaved struct {
	URL      string
	Filename string
	Location string
}

// PDFFailed completes a DownloadPDF with an error.
type PDFFailed struct {
	URL string
	Err error
}

// IdentifyResultsReceived delivers one layer's identify features.
type IdentifyResultsReceived struct {
	Layer    string
	Features []plot.IdentifyFeature
}

// ExtractSectionToggled expands or collapses an extract section.
type ExtractSectionToggled struct {
	Section extractview.Section
}

// ExtractThemeToggled expands or collapses a concerned theme.
type ExtractThemeToggled struct {
	Code string
}

// ExtractLegendToggled expands or collapses a full legend.
type ExtractLegendToggled struct {
	ID string
}

// ExtractLayerToggled flips the visibility of a sub-theme overlay.
type ExtractLayerToggled struct {
	Subtheme string
}

func (Activated) Name() string               { return "activated" }
func (Deactivated) Name() string             { return "deactivated" }
func (PointSelected) Name() string           { return "point_selected" }
func (IdentifierRequested) Name() string     { return "identifier_requested" }
func (StartupParams) Name() string           { return "startup_params" }
func (LookupSucceeded) Name() string         { return "lookup_succeeded" }
func (LookupFailed) Name() string            { return "lookup_failed" }
func (PlotSelected) Name() string            { return "plot_selected" }
func (QueryToggled) Name() string            { return "query_toggled" }
func (QueryLoaded) Name() string             { return "query_loaded" }
func (QueryFailed) Name() string             { return "query_failed" }
func (PDFRequested) Name() string            { return "pdf_requested" }
func (PDFSaved) Name() string                { return "pdf_saved" }
func (PDFFailed) Name() string               { return "pdf_failed" }
func (IdentifyResultsReceived) Name() string { return "identify_results_received" }
func (ExtractSectionToggled) Name() string   { return "extract_section_toggled" }
func (ExtractThemeToggled) Name() string     { return "extract_theme_toggled" }
func (ExtractLegendToggled) Name() string    { return "extract_legend_toggled" }
func (ExtractLayerToggled) Name() string     { return "extract_layer_toggled" }
