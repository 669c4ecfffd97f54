package oereb

import (
	"fmt"
	"sort"
	"strconv"
)

// SubthemeOrder maps a theme code to its sub-theme priority list.
type SubthemeOrder map[string][]string

// Selection is the result of CollectEntries.
type Selection struct {
	Entries []Restriction
	// Subthemes lists the sub-themes in priority order: sub-themes missing
	// from the configured list first (in entry order), then the configured
	// list itself.
	Subthemes []string
	// DirectSubthemeMatch is set when themeCode matched a sub-theme name
	// rather than a theme code.
	DirectSubthemeMatch bool
}

// CollectEntries selects the restrictions belonging to themeCode.
//
// Entries matching by theme code are stable-sorted by the position of their
// sub-theme in order[themeCode]; entries whose sub-theme is empty or not
// listed sort first. When nothing matches by theme code, entries whose
// sub-theme equals themeCode are returned instead.
func CollectEntries(all []Restriction, themeCode string, order SubthemeOrder) Selection {
	var entries []Restriction
	for _, r := range all {
		if r.Theme.Code == themeCode {
			entries = append(entries, r)
		}
	}

	if len(entries) == 0 {
		for _, r := range all {
			if r.SubTheme == themeCode {
				entries = append(entries, r)
			}
		}
		if len(entries) == 0 {
			return Selection{}
		}
		return Selection{Entries: entries, Subthemes: []string{themeCode}, DirectSubthemeMatch: true}
	}

	configured, hasConfig := order[themeCode]
	position := make(map[string]int, len(configured))
	for i, s := range configured {
		if _, dup := position[s]; !dup {
			position[s] = i
		}
	}
	index := func(r Restriction) int {
		if r.SubTheme == "" {
			return -1
		}
		if i, ok := position[r.SubTheme]; ok {
			return i
		}
		return -1
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return index(entries[i]) < index(entries[j])
	})

	var subthemes []string
	seen := make(map[string]struct{})
	for _, r := range entries {
		if _, listed := position[r.SubTheme]; hasConfig && listed {
			continue
		}
		if _, ok := seen[r.SubTheme]; ok {
			continue
		}
		seen[r.SubTheme] = struct{}{}
		subthemes = append(subthemes, r.SubTheme)
	}
	subthemes = append(subthemes, configured...)

	return Selection{Entries: entries, Subthemes: subthemes}
}

// ReferenceLink is a labelled catalog link.
type ReferenceLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// LegendSymbol aggregates every restriction sharing a (sub-theme, symbol).
type LegendSymbol struct {
	SymbolRef     string `json:"symbol_ref"`
	Information   string `json:"information"`
	AreaShare     Share  `json:"area_share"`
	LengthShare   Share  `json:"length_share"`
	PartInPercent Share  `json:"part_in_percent"`
}

// ShareCell renders the area share, or the length share when there is no
// area, or "-" when neither was supplied.
func (s LegendSymbol) ShareCell() string {
	switch {
	case s.AreaShare.Valid:
		return formatNumber(s.AreaShare.Value) + " m²"
	case s.LengthShare.Valid:
		return formatNumber(s.LengthShare.Value) + " m"
	default:
		return "-"
	}
}

// PercentCell renders the percentage with two decimals, or "-".
func (s LegendSymbol) PercentCell() string {
	if !s.PartInPercent.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", s.PartInPercent.Value)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SubthemeView is one rendered sub-theme block.
type SubthemeView struct {
	Name string `json:"name"`
	// Placeholder marks a configured sub-theme without data.
	Placeholder bool `json:"placeholder"`
	// ShowTitle is false for the unnamed sub-theme and for direct matches.
	ShowTitle      bool           `json:"show_title"`
	Symbols        []LegendSymbol `json:"symbols"`
	FullLegend     string         `json:"full_legend,omitempty"`
	HasLengthShare bool           `json:"has_length_share"`
}

// ThemeView is the presentation model of one expanded theme.
type ThemeView struct {
	Code                string          `json:"code"`
	Title               string          `json:"title"`
	DirectSubthemeMatch bool            `json:"direct_subtheme_match"`
	Subthemes           []SubthemeView  `json:"subthemes"`
	Regulations         []ReferenceLink `json:"regulations"`
	LegalBasis          []ReferenceLink `json:"legal_basis"`
	ResponsibleOffices  []ReferenceLink `json:"responsible_offices"`
}

// IsEmpty reports whether no restriction matched the theme.
func (v ThemeView) IsEmpty() bool {
	return len(v.Subthemes) == 0
}

type catalog struct {
	links []ReferenceLink
	seen  map[string]struct{}
}

// add records key once. Later additions with the same key are ignored.
func (c *catalog) add(key, label string) {
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.links = append(c.links, ReferenceLink{Label: label, URL: key})
}

type legendGroup struct {
	fullLegend string
	order      []string
	symbols    map[string]*LegendSymbol
}

// AggregateTheme builds the presentation model of themeCode from the
// restrictions of an extract.
func AggregateTheme(restrictions []Restriction, themeCode string, order SubthemeOrder, lang string) ThemeView {
	sel := CollectEntries(restrictions, themeCode, order)
	view := ThemeView{Code: themeCode, DirectSubthemeMatch: sel.DirectSubthemeMatch}
	if len(sel.Entries) == 0 {
		return view
	}
	view.Title = sel.Entries[0].Theme.Text.Resolve(lang)

	var regulations, legalBasis, offices catalog
	for _, entry := range sel.Entries {
		for _, prov := range entry.LegalProvisions {
			label := prov.Title.Resolve(lang)
			if prov.OfficialNumber != "" {
				label += ", " + prov.OfficialNumber
			}
			regulations.add(prov.TextAtWeb.Resolve(lang), label)

			for _, ref := range prov.References {
				basis := ref.Title.Resolve(lang) + " (" + ref.Abbreviation.Resolve(lang) + ")"
				if ref.OfficialNumber != "" {
					basis += ", " + ref.OfficialNumber
				}
				legalBasis.add(ref.TextAtWeb.Resolve(lang), basis)
			}
			offices.add(prov.ResponsibleOffice.OfficeAtWeb, prov.ResponsibleOffice.Name.Resolve(lang))
		}
	}
	view.Regulations = regulations.links
	view.LegalBasis = legalBasis.links
	view.ResponsibleOffices = offices.links

	groups := make(map[string]*legendGroup)
	for _, entry := range sel.Entries {
		g, ok := groups[entry.SubTheme]
		if !ok {
			g = &legendGroup{symbols: make(map[string]*LegendSymbol)}
			groups[entry.SubTheme] = g
		}
		if g.fullLegend == "" && entry.Map != nil {
			g.fullLegend = entry.Map.LegendAtWeb
		}
		sym, ok := g.symbols[entry.SymbolRef]
		if !ok {
			g.symbols[entry.SymbolRef] = &LegendSymbol{
				SymbolRef:     entry.SymbolRef,
				Information:   entry.Information.Resolve(lang),
				AreaShare:     entry.AreaShare,
				LengthShare:   entry.LengthShare,
				PartInPercent: entry.PartInPercent,
			}
			g.order = append(g.order, entry.SymbolRef)
			continue
		}
		sym.AreaShare = sym.AreaShare.Add(entry.AreaShare)
		sym.LengthShare = sym.LengthShare.Add(entry.LengthShare)
		sym.PartInPercent = sym.PartInPercent.Add(entry.PartInPercent)
	}

	for i := len(sel.Subthemes) - 1; i >= 0; i-- {
		name := sel.Subthemes[i]
		g, ok := groups[name]
		if !ok {
			view.Subthemes = append(view.Subthemes, SubthemeView{Name: name, Placeholder: true})
			continue
		}
		sv := SubthemeView{
			Name:       name,
			ShowTitle:  name != "" && !sel.DirectSubthemeMatch,
			FullLegend: g.fullLegend,
		}
		for _, ref := range g.order {
			sym := *g.symbols[ref]
			sv.Symbols = append(sv.Symbols, sym)
			if sym.LengthShare.Valid {
				sv.HasLengthShare = true
			}
		}
		view.Subthemes = append(view.Subthemes, sv)
	}
	return view
}

// FullLegendID identifies the full-legend toggle of a sub-theme.
func FullLegendID(themeCode, subtheme string) string {
	return themeCode + "_" + subtheme
}
