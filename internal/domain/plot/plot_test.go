package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Bounds(t *testing.T) {
	rec := Record{EGRID: "CH123", BBox: []float64{2600000, 1200000, 2600100, 1200100}}
	require.True(t, rec.HasBBox())
	b, err := rec.Bounds()
	require.NoError(t, err)
	assert.Equal(t, [4]float64{2600000, 1200000, 2600100, 1200100}, b)

	for _, bbox := range [][]float64{nil, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		rec := Record{EGRID: "CH124", BBox: bbox}
		assert.False(t, rec.HasBBox())
		_, err := rec.Bounds()
		assert.ErrorContains(t, err, "plot CH124")
	}
}

func TestResolveURL(t *testing.T) {
	base := "https://geo.example.ch/plotinfo/"

	assert.Equal(t, "https://geo.example.ch/plotinfo/oereb/json/CH123",
		ResolveURL(base, "/oereb/json/$egrid$", "CH123"))
	assert.Equal(t, "https://other.example.ch/x?egrid=CH123",
		ResolveURL(base, "https://other.example.ch/x?egrid=$egrid$", "CH123"))
	// Only the first token is substituted.
	assert.Equal(t, "https://geo.example.ch/plotinfo/a/CH1/$egrid$",
		ResolveURL(base, "/a/$egrid$/$egrid$", "CH1"))
}

func TestInfoQuery_URLs(t *testing.T) {
	q := InfoQuery{Key: "oereb", Query: "/oereb/json/$egrid$", PDFQuery: "/oereb/pdf/$egrid$"}
	assert.Equal(t, "http://svc/oereb/json/CH9", q.QueryURL("http://svc", "CH9"))
	assert.Equal(t, "http://svc/oereb/pdf/CH9", q.PDFURL("http://svc", "CH9"))
	assert.Equal(t, "", InfoQuery{Query: "/x"}.PDFURL("http://svc", "CH9"))
}

func TestQuerySet(t *testing.T) {
	s := NewQuerySet([]InfoQuery{{Key: "a", Title: "first"}, {Key: "b"}, {Key: "a", Title: "dup"}})
	q, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", q.Title)
	assert.Len(t, s.All(), 2)
	_, ok = s.Get("zzz")
	assert.False(t, ok)
}

func TestFilenameFromDisposition(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{`attachment; filename="extract CH123.pdf"`, "extract CH123.pdf"},
		{`attachment; filename='single.pdf'; size=10`, "single.pdf"},
		{`attachment; filename=plain.pdf`, "plain.pdf"},
		{`attachment; filename=plain.pdf; creation-date=x`, "plain.pdf"},
		{`attachment`, "oereb.pdf"},
		{``, "oereb.pdf"},
		{`attachment; filename=`, "oereb.pdf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FilenameFromDisposition(tc.header, DefaultPDFName("oereb")), tc.header)
	}
}

func TestIdentifyResults_Merge(t *testing.T) {
	r := NewIdentifyResults()
	r.Merge("L", []IdentifyFeature{{ID: "F1", Properties: map[string]interface{}{"v": 1}}})
	r.Merge("L", []IdentifyFeature{{ID: "F1", Properties: map[string]interface{}{"v": 2}}})

	fs := r.Features("L")
	require.Len(t, fs, 1)
	assert.Equal(t, 2, fs[0].Properties["v"])

	r.Merge("L", []IdentifyFeature{{ID: "F2"}})
	r.Merge("M", []IdentifyFeature{{ID: "F1"}})

	fs = r.Features("L")
	require.Len(t, fs, 2)
	assert.Equal(t, "F1", fs[0].ID)
	assert.Equal(t, "F2", fs[1].ID)
	assert.Equal(t, []string{"L", "M"}, r.Layers())
	assert.Equal(t, 3, r.Len())
}

func TestIdentifyResults_CloneIsIndependent(t *testing.T) {
	r := NewIdentifyResults()
	r.Merge("L", []IdentifyFeature{{ID: "F1"}})
	c := r.Clone()
	c.Merge("L", []IdentifyFeature{{ID: "F2"}})

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 2, c.Len())

	var nilSet *IdentifyResults
	assert.Equal(t, 0, nilSet.Len())
	assert.NotNil(t, nilSet.Clone())
}
