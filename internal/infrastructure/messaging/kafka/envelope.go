package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// SchemaVersion is written into every envelope.
const SchemaVersion = "v1"

// Header names.
const (
	HeaderKind          = "effect_kind"
	HeaderSession       = "session_id"
	HeaderSchemaVersion = "schema_version"
)

// EffectEnvelope is the wire form of one map effect.
type EffectEnvelope struct {
	EventID       string          `json:"event_id"`
	Kind          string          `json:"kind"`
	Session       string          `json:"session"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// wireFeature carries the geometry as GeoJSON.
type wireFeature struct {
	ID         string                 `json:"id"`
	CRS        string                 `json:"crs"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Style      *mapview.Style         `json:"style,omitempty"`
}

type wireAddLayerFeatures struct {
	Layer    mapview.Layer `json:"layer"`
	Features []wireFeature `json:"features"`
	Clear    bool          `json:"clear"`
}

// NewEffectEnvelope encodes a map effect. Effects other than map effects are
// rejected.
func NewEffectEnvelope(session string, effect mapview.Effect) (*EffectEnvelope, error) {
	if effect == nil || !mapview.IsMapEffect(effect) {
		return nil, errors.New(errors.ErrCodeValidation, "not a map effect")
	}
	var (
		data []byte
		err  error
	)
	if e, ok := effect.(mapview.AddLayerFeatures); ok {
		data, err = encodeAddLayerFeatures(e)
	} else {
		data, err = json.Marshal(effect)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal effect").WithDetail(effect.Kind())
	}
	return &EffectEnvelope{
		EventID:       uuid.NewString(),
		Kind:          effect.Kind(),
		Session:       session,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

func encodeAddLayerFeatures(e mapview.AddLayerFeatures) ([]byte, error) {
	w := wireAddLayerFeatures{Layer: e.Layer, Clear: e.Clear, Features: make([]wireFeature, 0, len(e.Features))}
	for _, f := range e.Features {
		wf := wireFeature{ID: f.ID, CRS: f.CRS, Properties: f.Properties, Style: f.Style}
		if f.Geometry != nil {
			g, err := geojson.Marshal(f.Geometry)
			if err != nil {
				return nil, err
			}
			wf.Geometry = g
		}
		w.Features = append(w.Features, wf)
	}
	return json.Marshal(w)
}

// Effect decodes the envelope back into its map effect.
func (e *EffectEnvelope) Effect() (mapview.Effect, error) {
	var (
		effect mapview.Effect
		err    error
	)
	switch e.Kind {
	case mapview.KindAddLayer:
		var v mapview.AddLayer
		err = json.Unmarshal(e.Payload, &v)
		effect = v
	case mapview.KindAddLayerFeatures:
		effect, err = decodeAddLayerFeatures(e.Payload)
	case mapview.KindRemoveLayer:
		var v mapview.RemoveLayer
		err = json.Unmarshal(e.Payload, &v)
		effect = v
	case mapview.KindChangeLayerProperties:
		var v mapview.ChangeLayerProperties
		err = json.Unmarshal(e.Payload, &v)
		effect = v
	case mapview.KindZoomToPoint:
		var v mapview.ZoomToPoint
		err = json.Unmarshal(e.Payload, &v)
		effect = v
	case mapview.KindSetPointSelection:
		var v mapview.SetPointSelection
		err = json.Unmarshal(e.Payload, &v)
		effect = v
	case mapview.KindAddThemeSublayers:
		var v mapview.AddThemeSublayers
		err = json.Unmarshal(e.Payload, &v)
		effect = v
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unknown effect kind").WithDetail(e.Kind)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode effect").WithDetail(e.Kind)
	}
	return effect, nil
}

func decodeAddLayerFeatures(data []byte) (mapview.Effect, error) {
	var w wireAddLayerFeatures
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	out := mapview.AddLayerFeatures{Layer: w.Layer, Clear: w.Clear}
	for _, wf := range w.Features {
		f := mapview.Feature{ID: wf.ID, CRS: wf.CRS, Properties: wf.Properties, Style: wf.Style}
		if len(wf.Geometry) > 0 && string(wf.Geometry) != "null" {
			var g geom.T
			if err := geojson.Unmarshal(wf.Geometry, &g); err != nil {
				return nil, err
			}
			f.Geometry = g
		}
		out.Features = append(out.Features, f)
	}
	return out, nil
}

// ToMessage wraps the envelope in a Kafka message keyed by session.
func (e *EffectEnvelope) ToMessage() (Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return Message{
		Key:   []byte(e.Session),
		Value: val,
		Headers: map[string]string{
			HeaderKind:          e.Kind,
			HeaderSession:       e.Session,
			HeaderSchemaVersion: e.SchemaVersion,
		},
		Time: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a message value.
func DecodeEnvelope(value []byte) (*EffectEnvelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EffectEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}
