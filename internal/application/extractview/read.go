package extractview

import "github.com/turtacn/plotinfo/internal/domain/oereb"

// SectionSummary is one section header.
type SectionSummary struct {
	Name     Section `json:"name"`
	MsgID    string  `json:"msg_id"`
	Count    int     `json:"count"`
	Expanded bool    `json:"expanded"`
}

// ThemeSummary is one theme row of a section.
type ThemeSummary struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Expanded bool   `json:"expanded"`
}

// Address is the postal address of the cadastre authority.
type Address struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	PostalCity  string `json:"postal_city"`
	OfficeAtWeb string `json:"office_at_web"`
}

// Disclaimer is a resolved exclusion of liability.
type Disclaimer struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GeneralInfo is the content of the general information section.
type GeneralInfo struct {
	Authority          Address      `json:"authority"`
	LogoRef            string       `json:"logo_ref"`
	BaseData           string       `json:"base_data"`
	GeneralInformation string       `json:"general_information"`
	Disclaimers        []Disclaimer `json:"disclaimers"`
}

func (v View) extract() *oereb.Extract {
	if v.doc == nil {
		return nil
	}
	return v.doc.Extract
}

func (v View) themes(s Section) []oereb.Theme {
	ex := v.extract()
	if ex == nil {
		return nil
	}
	switch s {
	case SectionConcerned:
		return ex.ConcernedThemes
	case SectionNotConcerned:
		return ex.NotConcernedThemes
	case SectionWithoutData:
		return ex.ThemesWithoutData
	}
	return nil
}

// Sections lists the non-empty sections in render order. The general
// information section carries no count.
func (v View) Sections() []SectionSummary {
	if v.extract() == nil {
		return nil
	}
	var out []SectionSummary
	for _, s := range Sections {
		count := 0
		if s != SectionGeneral {
			count = len(v.themes(s))
			if count == 0 {
				continue
			}
		}
		out = append(out, SectionSummary{Name: s, MsgID: s.MsgID(), Count: count, Expanded: v.section == s})
	}
	return out
}

// Themes lists the themes of a section with resolved titles.
func (v View) Themes(s Section) []ThemeSummary {
	themes := v.themes(s)
	out := make([]ThemeSummary, 0, len(themes))
	for _, t := range themes {
		out = append(out, ThemeSummary{
			Code:     t.Code,
			Title:    t.Text.Resolve(v.cfg.Language),
			Expanded: s == SectionConcerned && t.Code == v.theme,
		})
	}
	return out
}

// OtherThemes returns the resolved titles of a not-concerned or
// without-data section.
func (v View) OtherThemes(s Section) []string {
	var out []string
	for _, t := range v.Themes(s) {
		out = append(out, t.Title)
	}
	return out
}

// Theme aggregates the restrictions of code.
func (v View) Theme(code string) oereb.ThemeView {
	return oereb.AggregateTheme(v.doc.Restrictions(), code, v.cfg.Subthemes, v.cfg.Language)
}

// GeneralInformation resolves the general information section.
func (v View) GeneralInformation() GeneralInfo {
	ex := v.extract()
	if ex == nil {
		return GeneralInfo{}
	}
	lang := v.cfg.Language
	auth := ex.PLRCadastreAuthority
	info := GeneralInfo{
		Authority: Address{
			Name:        auth.Name.Resolve(lang),
			Street:      joinNonEmpty(auth.Street, auth.Number),
			PostalCity:  joinNonEmpty(auth.PostalCode, auth.City),
			OfficeAtWeb: auth.OfficeAtWeb,
		},
		LogoRef:            ex.CantonalLogoRef,
		BaseData:           ex.BaseData.Resolve(lang),
		GeneralInformation: ex.GeneralInformation.Resolve(lang),
	}
	for _, d := range ex.ExclusionsOfLiability {
		info.Disclaimers = append(info.Disclaimers, Disclaimer{
			Title:   d.Title.Resolve(lang),
			Content: d.Content.Resolve(lang),
		})
	}
	return info
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
