// Package extractview tracks the expand/collapse state of a rendered
// restriction extract and the theme overlay layers that state owns.
//
// View is a value. Every toggle returns the next View together with the map
// effects needed to keep the overlays in line with it.
package extractview

import (
	"github.com/turtacn/plotinfo/internal/application/highlight"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
)

// Section names a top-level block of the extract.
type Section string

const (
	SectionConcerned    Section = "concernedThemes"
	SectionNotConcerned Section = "notConcernedThemes"
	SectionWithoutData  Section = "themeWithoutData"
	SectionGeneral      Section = "generalInformation"
)

// Sections in render order.
var Sections = []Section{SectionConcerned, SectionNotConcerned, SectionWithoutData, SectionGeneral}

// MsgID returns the localization message id of the section title.
func (s Section) MsgID() string { return "oereb." + string(s) }

// Config configures aggregation.
type Config struct {
	Language  string
	Subthemes oereb.SubthemeOrder
}

// View is the interactive state of one extract.
type View struct {
	doc     *oereb.Document
	cfg     Config
	layers  *highlight.Manager
	section Section
	theme   string
	legend  string
	owned   []mapview.Layer
}

// New creates a collapsed view of doc.
func New(doc *oereb.Document, cfg Config, layers *highlight.Manager) View {
	return View{doc: doc, cfg: cfg, layers: layers}
}

// Document returns the underlying document.
func (v View) Document() *oereb.Document { return v.doc }

// ExpandedSection returns the expanded section, or "".
func (v View) ExpandedSection() Section { return v.section }

// ExpandedTheme returns the expanded theme code, or "".
func (v View) ExpandedTheme() string { return v.theme }

// ExpandedLegend returns the id of the expanded full legend, or "".
func (v View) ExpandedLegend() string { return v.legend }

// Layers returns the overlay layers currently owned by the view.
func (v View) Layers() []mapview.Layer {
	return append([]mapview.Layer(nil), v.owned...)
}

// removeOwned drops every owned overlay.
func (v View) removeOwned() (View, []mapview.Effect) {
	var effects []mapview.Effect
	for _, l := range v.owned {
		effects = append(effects, mapview.RemoveLayer{ID: l.ID})
	}
	v.owned = nil
	return v, effects
}

// ToggleSection expands name, or collapses it when already expanded. The
// expanded theme and legend are reset and all overlays are removed.
func (v View) ToggleSection(name Section) (View, []mapview.Effect) {
	if v.section == name {
		v.section = ""
	} else {
		v.section = name
	}
	v.theme = ""
	v.legend = ""
	return v.removeOwned()
}

// ToggleTheme expands code, or collapses it when already expanded. Overlays
// of the previous theme are removed; expanding adds one overlay per
// sub-theme carrying a reference WMS.
func (v View) ToggleTheme(code string) (View, []mapview.Effect) {
	if v.theme == code {
		v.theme = ""
	} else {
		v.theme = code
	}
	v.legend = ""
	v, effects := v.removeOwned()
	if v.theme == "" || v.layers == nil {
		return v, effects
	}

	sel := oereb.CollectEntries(v.doc.Restrictions(), v.theme, v.cfg.Subthemes)
	for _, l := range v.layers.ThemeLayers(v.theme, sel.Entries) {
		v.owned = append(v.owned, l)
		effects = append(effects, mapview.AddLayer{Layer: l})
	}
	return v, effects
}

// ToggleFullLegend expands or collapses the full legend with id.
func (v View) ToggleFullLegend(id string) View {
	if v.legend == id {
		v.legend = ""
	} else {
		v.legend = id
	}
	return v
}

// ToggleSubthemeLayer flips the visibility of the overlay of subtheme. It is
// a no-op when no such overlay exists.
func (v View) ToggleSubthemeLayer(subtheme string) (View, []mapview.Effect) {
	for i, l := range v.owned {
		if l.Tags.Subtheme != subtheme {
			continue
		}
		owned := append([]mapview.Layer(nil), v.owned...)
		owned[i].Visibility = !l.Visibility
		v.owned = owned
		visible := owned[i].Visibility
		return v, []mapview.Effect{mapview.ChangeLayerProperties{ID: l.ID, Visibility: &visible}}
	}
	return v, nil
}

// SubthemeLayer returns the overlay of subtheme, if any.
func (v View) SubthemeLayer(subtheme string) (mapview.Layer, bool) {
	for _, l := range v.owned {
		if l.Tags.Subtheme == subtheme {
			return l, true
		}
	}
	return mapview.Layer{}, false
}

// Close collapses everything and removes all overlays.
func (v View) Close() (View, []mapview.Effect) {
	v.section = ""
	v.theme = ""
	v.legend = ""
	return v.removeOwned()
}
