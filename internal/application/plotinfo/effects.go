package plotinfo

import "github.com/turtacn/plotinfo/internal/domain/mapview"

// Effect is a side effect requested by a transition. Map effects are the
// mapview types; the types below are executed by the Session itself.
type Effect = mapview.Effect

const (
	KindClearSearch            = "clear_search"
	KindFetchPlotsAtPoint      = "fetch_plots_at_point"
	KindFetchPlotsByIdentifier = "fetch_plots_by_identifier"
	KindFetchQuery             = "fetch_query"
	KindDownloadPDF            = "download_pdf"
	KindNotify                 = "notify"
	KindClearURLParam          = "clear_url_param"
)

// ClearSearch drops any independent search result state of the host.
type ClearSearch struct{}

// FetchPlotsAtPoint looks plots up at a map coordinate.
type FetchPlotsAtPoint struct {
	Seq  uint64
	X, Y float64
}

// FetchPlotsByIdentifier looks a plot up by EGRID.
type FetchPlotsByIdentifier struct {
	Seq      uint64
	EGRID    string
	QueryKey string
}

// FetchQuery loads an info query.
type FetchQuery struct {
	Seq   uint64
	Key   string
	EGRID string
	URL   string
}

// DownloadPDF downloads and saves a query's PDF.
type DownloadPDF struct {
	URL      string
	Key      string
	Fallback string
}

// Notification levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Notify surfaces a message to the user.
type Notify struct {
	Level   string
	Message string
}

// ClearURLParam removes a consumed URL parameter.
type ClearURLParam struct {
	Key string
}

func (ClearSearch) Kind() string            { return KindClearSearch }
func (FetchPlotsAtPoint) Kind() string      { return KindFetchPlotsAtPoint }
func (FetchPlotsByIdentifier) Kind() string { return KindFetchPlotsByIdentifier }
func (FetchQuery) Kind() string             { return KindFetchQuery }
func (DownloadPDF) Kind() string            { return KindDownloadPDF }
func (Notify) Kind() string                 { return KindNotify }
func (ClearURLParam) Kind() string          { return KindClearURLParam }
