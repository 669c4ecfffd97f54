// Package oereb models the land-use restriction extract (ÖREB-Auszug) and
// aggregates its restrictions into a per-theme presentation model.
//
// Raw extracts come in two shapes: JSON and XML with namespace-prefixed
// element names. Normalize maps both onto Document, where every repeatable
// element is a slice and every localized text is a LocalisedText.
package oereb

// Document is the normalized GetExtractByIdResponse envelope.
type Document struct {
	Extract *Extract `json:"extract"`
}

// Extract is the full restriction extract of one parcel.
type Extract struct {
	ConcernedThemes       []Theme       `json:"concerned_themes"`
	NotConcernedThemes    []Theme       `json:"not_concerned_themes"`
	ThemesWithoutData     []Theme       `json:"themes_without_data"`
	RealEstate            RealEstate    `json:"real_estate"`
	PLRCadastreAuthority  Office        `json:"plr_cadastre_authority"`
	CantonalLogoRef       string        `json:"cantonal_logo_ref,omitempty"`
	FederalLogoRef        string        `json:"federal_logo_ref,omitempty"`
	MunicipalityLogoRef   string        `json:"municipality_logo_ref,omitempty"`
	BaseData              LocalisedText `json:"base_data,omitempty"`
	GeneralInformation    LocalisedText `json:"general_information,omitempty"`
	ExclusionsOfLiability []Disclaimer  `json:"exclusions_of_liability,omitempty"`
	CreationDate          string        `json:"creation_date,omitempty"`
	ExtractIdentifier     string        `json:"extract_identifier,omitempty"`
}

// Theme is a restriction category.
type Theme struct {
	Code string        `json:"code"`
	Text LocalisedText `json:"text"`
}

// RealEstate is the parcel the extract was produced for.
type RealEstate struct {
	EGRID            string        `json:"egrid,omitempty"`
	Number           string        `json:"number,omitempty"`
	Municipality     string        `json:"municipality,omitempty"`
	LandRegistryArea Share         `json:"land_registry_area"`
	Restrictions     []Restriction `json:"restrictions"`
}

// Restriction is one RestrictionOnLandownership entry.
type Restriction struct {
	Theme           Theme            `json:"theme"`
	SubTheme        string           `json:"sub_theme,omitempty"`
	SymbolRef       string           `json:"symbol_ref"`
	Information     LocalisedText    `json:"information"`
	AreaShare       Share            `json:"area_share"`
	LengthShare     Share            `json:"length_share"`
	PartInPercent   Share            `json:"part_in_percent"`
	LegalProvisions []LegalProvision `json:"legal_provisions,omitempty"`
	Map             *MapInfo         `json:"map,omitempty"`
}

// MapInfo references the WMS rendering of a restriction.
type MapInfo struct {
	ReferenceWMS string `json:"reference_wms,omitempty"`
	LegendAtWeb  string `json:"legend_at_web,omitempty"`
}

// LegalProvision is a regulation a restriction is based on.
type LegalProvision struct {
	Title             LocalisedText `json:"title"`
	OfficialNumber    string        `json:"official_number,omitempty"`
	TextAtWeb         LocalisedText `json:"text_at_web"`
	References        []Reference   `json:"references,omitempty"`
	ResponsibleOffice Office        `json:"responsible_office"`
}

// Reference is a legal basis of a provision.
type Reference struct {
	Title          LocalisedText `json:"title"`
	Abbreviation   LocalisedText `json:"abbreviation"`
	OfficialNumber string        `json:"official_number,omitempty"`
	TextAtWeb      LocalisedText `json:"text_at_web"`
}

// Office is an authority with an optional postal address.
type Office struct {
	Name        LocalisedText `json:"name"`
	OfficeAtWeb string        `json:"office_at_web,omitempty"`
	Street      string        `json:"street,omitempty"`
	Number      string        `json:"number,omitempty"`
	PostalCode  string        `json:"postal_code,omitempty"`
	City        string        `json:"city,omitempty"`
}

// Disclaimer is an ExclusionOfLiability entry.
type Disclaimer struct {
	Title   LocalisedText `json:"title"`
	Content LocalisedText `json:"content"`
}

// Share is a numeric share which may be absent. Valid distinguishes "never
// supplied" from a supplied zero.
type Share struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Some returns a supplied share.
func Some(v float64) Share { return Share{Value: v, Valid: true} }

// Add accumulates o into s. An absent o leaves s unchanged.
func (s Share) Add(o Share) Share {
	if !o.Valid {
		return s
	}
	if !s.Valid {
		return o
	}
	return Share{Value: s.Value + o.Value, Valid: true}
}

// Restrictions returns the restriction entries of the extract, or nil.
func (d *Document) Restrictions() []Restriction {
	if d == nil || d.Extract == nil {
		return nil
	}
	return d.Extract.RealEstate.Restrictions
}
