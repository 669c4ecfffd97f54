package extractview

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/plotinfo/internal/application/highlight"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
)

func loadView(t *testing.T) View {
	t.Helper()
	data, err := os.ReadFile("../../domain/oereb/testdata/extract.json")
	require.NoError(t, err)
	doc, err := oereb.Normalize(oereb.FromJSON(data))
	require.NoError(t, err)

	n := 0
	mgr := highlight.NewManager(highlight.Config{ServiceProjection: "EPSG:2056", MapProjection: "EPSG:3857", Language: "de"},
		highlight.WithIDGenerator(func() string { n++; return fmt.Sprintf("%d", n) }))
	return New(doc, Config{Language: "de"}, mgr)
}

func TestSections(t *testing.T) {
	v := loadView(t)
	v, _ = v.ToggleSection(SectionNotConcerned)

	sections := v.Sections()
	require.Len(t, sections, 4)
	assert.Equal(t, SectionSummary{Name: SectionConcerned, MsgID: "oereb.concernedThemes", Count: 1}, sections[0])
	assert.Equal(t, 2, sections[1].Count)
	assert.True(t, sections[1].Expanded)
	assert.Equal(t, 1, sections[2].Count)
	assert.Equal(t, SectionGeneral, sections[3].Name)
}

func TestSections_SkipsEmpty(t *testing.T) {
	doc := &oereb.Document{Extract: &oereb.Extract{
		ConcernedThemes: []oereb.Theme{{Code: "A"}},
	}}
	v := New(doc, Config{}, nil)

	var names []Section
	for _, s := range v.Sections() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []Section{SectionConcerned, SectionGeneral}, names)
	assert.Nil(t, New(&oereb.Document{}, Config{}, nil).Sections())
}

func TestToggleTheme_AddsAndRemovesOverlays(t *testing.T) {
	v := loadView(t)
	v, _ = v.ToggleSection(SectionConcerned)

	v, effects := v.ToggleTheme("LandUsePlans")
	assert.Equal(t, "LandUsePlans", v.ExpandedTheme())
	require.Len(t, effects, 1, "only one sub-theme carries a reference WMS")
	add := effects[0].(mapview.AddLayer)
	assert.Equal(t, "LandUsePlans-1", add.Layer.ID)
	assert.Equal(t, "grundnutzung", add.Layer.Params["LAYERS"])
	assert.Equal(t, mapview.Tags{Highlight: true, Subtheme: "Grundnutzung"}, add.Layer.Tags)
	assert.Len(t, v.Layers(), 1)

	// Collapsing removes the overlay.
	collapsed, effects := v.ToggleTheme("LandUsePlans")
	assert.Equal(t, "", collapsed.ExpandedTheme())
	assert.Equal(t, []mapview.Effect{mapview.RemoveLayer{ID: "LandUsePlans-1"}}, effects)
	assert.Empty(t, collapsed.Layers())

	// Re-expanding removes nothing and creates a fresh id.
	again, effects := collapsed.ToggleTheme("LandUsePlans")
	require.Len(t, effects, 1)
	assert.Equal(t, "LandUsePlans-2", effects[0].(mapview.AddLayer).Layer.ID)

	// Switching theme removes the previous overlays first.
	other, effects := again.ToggleTheme("Other")
	assert.Equal(t, []mapview.Effect{mapview.RemoveLayer{ID: "LandUsePlans-2"}}, effects)
	assert.Equal(t, "Other", other.ExpandedTheme())
}

func TestToggleSection_ResetsThemeAndOverlays(t *testing.T) {
	v := loadView(t)
	v, _ = v.ToggleSection(SectionConcerned)
	v, _ = v.ToggleTheme("LandUsePlans")
	v = v.ToggleFullLegend(oereb.FullLegendID("LandUsePlans", "Grundnutzung"))
	assert.Equal(t, "LandUsePlans_Grundnutzung", v.ExpandedLegend())

	next, effects := v.ToggleSection(SectionGeneral)
	assert.Equal(t, SectionGeneral, next.ExpandedSection())
	assert.Empty(t, next.ExpandedTheme())
	assert.Empty(t, next.ExpandedLegend())
	assert.Equal(t, []mapview.Effect{mapview.RemoveLayer{ID: "LandUsePlans-1"}}, effects)

	closed, _ := next.ToggleSection(SectionGeneral)
	assert.Empty(t, closed.ExpandedSection())
}

func TestValueSemantics(t *testing.T) {
	v := loadView(t)
	v, _ = v.ToggleTheme("LandUsePlans")

	flipped, effects := v.ToggleSubthemeLayer("Grundnutzung")
	require.Len(t, effects, 1)
	change := effects[0].(mapview.ChangeLayerProperties)
	require.NotNil(t, change.Visibility)
	assert.False(t, *change.Visibility)

	orig, _ := v.SubthemeLayer("Grundnutzung")
	now, _ := flipped.SubthemeLayer("Grundnutzung")
	assert.True(t, orig.Visibility, "previous view is untouched")
	assert.False(t, now.Visibility)

	_, effects = flipped.ToggleSubthemeLayer("missing")
	assert.Empty(t, effects)
}

func TestClose(t *testing.T) {
	v := loadView(t)
	v, _ = v.ToggleSection(SectionConcerned)
	v, _ = v.ToggleTheme("LandUsePlans")

	closed, effects := v.Close()
	assert.Equal(t, []mapview.Effect{mapview.RemoveLayer{ID: "LandUsePlans-1"}}, effects)
	assert.Empty(t, closed.ExpandedSection())
	assert.Empty(t, closed.Layers())

	_, effects = closed.Close()
	assert.Empty(t, effects)
}

func TestReadAccessors(t *testing.T) {
	v := loadView(t)

	assert.Equal(t, []string{"Belastete Standorte", "Grundwasserschutzzonen"}, v.OtherThemes(SectionNotConcerned))
	assert.Equal(t, []string{"Waldgrenzen"}, v.OtherThemes(SectionWithoutData))

	themes := v.Themes(SectionConcerned)
	require.Len(t, themes, 1)
	assert.Equal(t, "Nutzungsplanung", themes[0].Title)

	tv := v.Theme("LandUsePlans")
	assert.Equal(t, "Nutzungsplanung", tv.Title)
	assert.Len(t, tv.Regulations, 1)

	info := v.GeneralInformation()
	assert.Equal(t, Address{
		Name:        "Amt für Geoinformation",
		Street:      "Hauptstrasse 1",
		PostalCity:  "4500 Solothurn",
		OfficeAtWeb: "https://agi.example.ch",
	}, info.Authority)
	assert.Equal(t, "https://oereb.example.ch/logo/canton.png", info.LogoRef)
	assert.Equal(t, "Der Auszug ist rechtlich verbindlich.", info.GeneralInformation)
	assert.Equal(t, []Disclaimer{{Title: "Haftungsausschluss", Content: "Keine Gewähr."}}, info.Disclaimers)
}
