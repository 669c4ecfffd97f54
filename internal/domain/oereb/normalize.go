package oereb

import (
	"bytes"
	"strings"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// Format identifies the encoding of a raw extract.
type Format int

const (
	FormatStructured Format = iota
	FormatJSON
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "structured"
	}
}

// Raw is an extract as delivered by the info query.
type Raw struct {
	Format   Format
	Data     []byte
	Document *Document
}

// FromDocument wraps an already structured document.
func FromDocument(d *Document) Raw { return Raw{Format: FormatStructured, Document: d} }

// FromJSON wraps a JSON encoded extract.
func FromJSON(data []byte) Raw { return Raw{Format: FormatJSON, Data: data} }

// FromXML wraps an XML encoded extract.
func FromXML(data []byte) Raw { return Raw{Format: FormatXML, Data: data} }

// Sniff picks the format from the content type, falling back to the first
// non-blank byte of body.
func Sniff(body []byte, contentType string) Raw {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FromJSON(body)
	case strings.Contains(ct, "xml"):
		return FromXML(body)
	}
	if trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff"); len(trimmed) > 0 && trimmed[0] == '<' {
		return FromXML(body)
	}
	return FromJSON(body)
}

// Normalize converts raw into the canonical Document. It fails with
// ErrCodeMalformedDocument when no extract node can be located.
func Normalize(raw Raw) (*Document, error) {
	if raw.Format == FormatStructured {
		if raw.Document == nil || raw.Document.Extract == nil {
			return nil, errors.New(errors.ErrCodeMalformedDocument, "structured document has no extract")
		}
		return raw.Document, nil
	}

	var (
		tree node
		err  error
	)
	if raw.Format == FormatXML {
		tree, err = decodeXMLTree(raw.Data)
	} else {
		tree, err = decodeJSONTree(raw.Data)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedDocument, "failed to decode extract").
			WithDetail("format=" + raw.Format.String())
	}

	envelope := childFold(tree, "GetExtractByIdResponse")
	if envelope == nil {
		return nil, errors.New(errors.ErrCodeMalformedDocument, "no GetExtractByIdResponse envelope")
	}
	// XML names the node Extract, JSON names it extract.
	ext, ok := childFold(envelope, "extract").(map[string]interface{})
	if !ok {
		return nil, errors.New(errors.ErrCodeMalformedDocument, "envelope has no extract node")
	}
	return &Document{Extract: coerceExtract(ext)}, nil
}

func coerceExtract(n node) *Extract {
	realEstate := child(n, "RealEstate")
	e := &Extract{
		ConcernedThemes:      coerceThemes(child(n, "ConcernedTheme")),
		NotConcernedThemes:   coerceThemes(child(n, "NotConcernedTheme")),
		ThemesWithoutData:    coerceThemes(child(n, "ThemeWithoutData")),
		PLRCadastreAuthority: coerceOffice(child(n, "PLRCadastreAuthority")),
		CantonalLogoRef:      text(child(n, "CantonalLogoRef")),
		FederalLogoRef:       text(child(n, "FederalLogoRef")),
		MunicipalityLogoRef:  text(child(n, "MunicipalityLogoRef")),
		BaseData:             localised(child(n, "BaseData")),
		GeneralInformation:   localised(child(n, "GeneralInformation")),
		CreationDate:         text(child(n, "CreationDate")),
		ExtractIdentifier:    text(child(n, "ExtractIdentifier")),
		RealEstate: RealEstate{
			EGRID:            text(child(realEstate, "EGRID")),
			Number:           text(child(realEstate, "Number")),
			Municipality:     text(child(realEstate, "Municipality")),
			LandRegistryArea: share(child(realEstate, "LandRegistryArea")),
		},
	}
	for _, r := range list(child(realEstate, "RestrictionOnLandownership")) {
		e.RealEstate.Restrictions = append(e.RealEstate.Restrictions, coerceRestriction(r))
	}
	for _, d := range list(child(n, "ExclusionOfLiability")) {
		e.ExclusionsOfLiability = append(e.ExclusionsOfLiability, Disclaimer{
			Title:   localised(child(d, "Title")),
			Content: localised(child(d, "Content")),
		})
	}
	return e
}

func coerceThemes(n node) []Theme {
	var out []Theme
	for _, t := range list(n) {
		out = append(out, coerceTheme(t))
	}
	return out
}

func coerceTheme(n node) Theme {
	return Theme{Code: text(child(n, "Code")), Text: localised(child(n, "Text"))}
}

func coerceOffice(n node) Office {
	return Office{
		Name:        localised(child(n, "Name")),
		OfficeAtWeb: text(child(n, "OfficeAtWeb")),
		Street:      text(child(n, "Street")),
		Number:      text(child(n, "Number")),
		PostalCode:  text(child(n, "PostalCode")),
		City:        text(child(n, "City")),
	}
}

func coerceRestriction(n node) Restriction {
	r := Restriction{
		Theme:         coerceTheme(child(n, "Theme")),
		SubTheme:      text(child(n, "SubTheme")),
		SymbolRef:     text(child(n, "SymbolRef")),
		Information:   localised(child(n, "Information")),
		AreaShare:     share(child(n, "AreaShare")),
		LengthShare:   share(child(n, "LengthShare")),
		PartInPercent: share(child(n, "PartInPercent")),
	}
	if m := child(n, "Map"); m != nil {
		r.Map = &MapInfo{
			ReferenceWMS: text(child(m, "ReferenceWMS")),
			LegendAtWeb:  text(child(m, "LegendAtWeb")),
		}
	}
	for _, p := range list(child(n, "LegalProvisions")) {
		r.LegalProvisions = append(r.LegalProvisions, coerceProvision(p))
	}
	return r
}

func coerceProvision(n node) LegalProvision {
	p := LegalProvision{
		Title:             localised(child(n, "Title")),
		OfficialNumber:    text(child(n, "OfficialNumber")),
		TextAtWeb:         localised(child(n, "TextAtWeb")),
		ResponsibleOffice: coerceOffice(child(n, "ResponsibleOffice")),
	}
	for _, ref := range list(child(n, "Reference")) {
		p.References = append(p.References, Reference{
			Title:          localised(child(ref, "Title")),
			Abbreviation:   localised(child(ref, "Abbreviation")),
			OfficialNumber: text(child(ref, "OfficialNumber")),
			TextAtWeb:      localised(child(ref, "TextAtWeb")),
		})
	}
	return p
}
