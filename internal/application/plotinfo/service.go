package plotinfo

import (
	"context"

	"github.com/turtacn/plotinfo/internal/domain/plot"
	"github.com/turtacn/plotinfo/pkg/client"
)

// PlotService is the remote plot-info service.
type PlotService interface {
	PlotsAtPoint(ctx context.Context, x, y float64) ([]plot.Record, error)
	PlotsByEGRID(ctx context.Context, egrid string) ([]plot.Record, error)
	FetchQuery(ctx context.Context, url string) (plot.Payload, error)
	FetchBinary(ctx context.Context, url string) (plot.Binary, error)
}

// DocumentSaver persists a downloaded document and returns where it went.
type DocumentSaver interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Notifier surfaces messages to the user.
type Notifier interface {
	Notify(ctx context.Context, level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, level, message string)

func (f NotifierFunc) Notify(ctx context.Context, level, message string) { f(ctx, level, message) }

// ClientService adapts pkg/client to PlotService.
type ClientService struct {
	c *client.Client
}

// NewClientService wraps c.
func NewClientService(c *client.Client) *ClientService {
	return &ClientService{c: c}
}

func (s *ClientService) PlotsAtPoint(ctx context.Context, x, y float64) ([]plot.Record, error) {
	plots, err := s.c.PlotsAtPoint(ctx, x, y)
	if err != nil {
		return nil, err
	}
	return toRecords(plots), nil
}

func (s *ClientService) PlotsByEGRID(ctx context.Context, egrid string) ([]plot.Record, error) {
	plots, err := s.c.PlotsByEGRID(ctx, egrid)
	if err != nil {
		return nil, err
	}
	return toRecords(plots), nil
}

func (s *ClientService) FetchQuery(ctx context.Context, url string) (plot.Payload, error) {
	p, err := s.c.FetchQuery(ctx, url)
	if err != nil {
		return plot.Payload{}, err
	}
	return plot.Payload{Data: p.Data, ContentType: p.ContentType}, nil
}

func (s *ClientService) FetchBinary(ctx context.Context, url string) (plot.Binary, error) {
	b, err := s.c.FetchBinary(ctx, url)
	if err != nil {
		return plot.Binary{}, err
	}
	return plot.Binary{Data: b.Data, ContentType: b.ContentType, Disposition: b.Disposition}, nil
}

func toRecords(plots []client.Plot) []plot.Record {
	out := make([]plot.Record, 0, len(plots))
	for _, p := range plots {
		rec := plot.Record{
			Label: p.Label,
			EGRID: p.EGRID,
			Geom:  p.Geom,
			BBox:  append([]float64(nil), p.BBox...),
		}
		for _, f := range p.Fields {
			rec.Fields = append(rec.Fields, plot.Field{Key: f.Key, Value: string(f.Value)})
		}
		out = append(out, rec)
	}
	return out
}
