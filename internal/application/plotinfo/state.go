package plotinfo

import (
	"github.com/turtacn/plotinfo/internal/application/extractview"
	"github.com/turtacn/plotinfo/internal/domain/plot"
)

// Phase is the coarse state of the tool.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseAwaiting
	PhasePlotListed
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseAwaiting:
		return "awaiting"
	case PhasePlotListed:
		return "plot_listed"
	}
	return "unknown"
}

// QueryResult is the outcome of the expanded query.
type QueryResult struct {
	QueryKey      string
	ForEGRID      string
	URL           string
	Data          []byte
	ContentType   string
	Failed        bool
	FailureReason string
	// Extract is set when the extract query loaded a well-formed document.
	Extract *extractview.View
	// ExtractError is set when the extract query loaded a document that
	// could not be normalized. Rendering of the extract is skipped.
	ExtractError string
}

// State is the orchestrator state. Values are never mutated in place by
// Machine.Apply; slices are copied before modification.
type State struct {
	Phase         Phase
	Plots         []plot.Record
	Current       int
	ExpandedQuery string
	// Result is nil while the expanded query is loading.
	Result      *QueryResult
	PendingPDFs []string
	Identify    *plot.IdentifyResults

	LookupSeq uint64
	QuerySeq  uint64
}

// CurrentPlot returns the selected plot, or nil.
func (s State) CurrentPlot() *plot.Record {
	if s.Phase != PhasePlotListed || s.Current < 0 || s.Current >= len(s.Plots) {
		return nil
	}
	rec := s.Plots[s.Current]
	return &rec
}

// Loading reports whether the expanded query is still in flight.
func (s State) Loading() bool {
	return s.ExpandedQuery != "" && s.Result == nil
}

// IsPending reports whether a PDF download for url is in flight.
func (s State) IsPending(url string) bool {
	for _, p := range s.PendingPDFs {
		if p == url {
			return true
		}
	}
	return false
}

func (s State) withPending(url string) State {
	s.PendingPDFs = append(append([]string(nil), s.PendingPDFs...), url)
	return s
}

func (s State) withoutPending(url string) State {
	var out []string
	for _, p := range s.PendingPDFs {
		if p != url {
			out = append(out, p)
		}
	}
	s.PendingPDFs = out
	return s
}
