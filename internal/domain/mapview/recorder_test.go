package mapview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_LayerLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()

	require.NoError(t, r.Apply(ctx, AddLayer{Layer: Layer{ID: "a", Type: TypeWMS, Visibility: true, Tags: Tags{Highlight: true, Subtheme: "x"}}}))
	require.NoError(t, r.Apply(ctx, AddLayerFeatures{Layer: Layer{ID: "b", Type: TypeVector}, Features: []Feature{{ID: "f1"}}}))
	require.NoError(t, r.Apply(ctx, AddLayerFeatures{Layer: Layer{ID: "b", Type: TypeVector}, Features: []Feature{{ID: "f2"}}, Clear: true}))

	assert.Len(t, r.Layers(), 2)
	assert.Equal(t, []Feature{{ID: "f2"}}, r.Features("b"))

	hidden := false
	require.NoError(t, r.Apply(ctx, ChangeLayerProperties{ID: "a", Visibility: &hidden}))
	l, ok := r.Layer("a")
	require.True(t, ok)
	assert.False(t, l.Visibility)

	highlights := r.FindByTags(func(t Tags) bool { return t.Highlight })
	assert.Len(t, highlights, 1)

	require.NoError(t, r.Apply(ctx, RemoveLayer{ID: "a"}))
	require.NoError(t, r.Apply(ctx, RemoveLayer{ID: "a"}))
	assert.Len(t, r.Layers(), 1)
	assert.Len(t, r.History(), 6)
}

func TestRecorder_MapState(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()

	_ = r.Apply(ctx, SetPointSelection{Enabled: true})
	_ = r.Apply(ctx, AddThemeSublayers{Layers: []string{"Grundbuchplan"}})
	_ = r.Apply(ctx, ZoomToPoint{X: 1, Y: 2, Zoom: 14, CRS: "EPSG:3857"})

	assert.True(t, r.PointSelection())
	assert.Equal(t, []string{"Grundbuchplan"}, r.Sublayers())
	z, ok := r.LastZoom()
	require.True(t, ok)
	assert.Equal(t, 14, z.Zoom)
}

func TestMulti_AppliesToAllAndReturnsFirstError(t *testing.T) {
	ctx := context.Background()
	a, b := NewRecorder(), NewRecorder()
	boom := errors.New("boom")
	failing := MapFunc(func(context.Context, Effect) error { return boom })

	err := Multi(a, failing, b).Apply(ctx, SetPointSelection{Enabled: true})
	assert.ErrorIs(t, err, boom)
	assert.True(t, a.PointSelection())
	assert.True(t, b.PointSelection())
}

func TestIsMapEffect(t *testing.T) {
	assert.True(t, IsMapEffect(RemoveLayer{ID: "x"}))
	assert.False(t, IsMapEffect(nil))
}
