package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// Plot is one cadastral plot returned by a lookup. Geom is WKT in the
// service projection.
type Plot struct {
	Label  string    `json:"label"`
	EGRID  string    `json:"egrid"`
	Geom   string    `json:"geom"`
	BBox   []float64 `json:"bbox"`
	Fields []Field   `json:"fields"`
}

// Field is a display row of a plot.
type Field struct {
	Key   string     `json:"key"`
	Value FieldValue `json:"value"`
}

// FieldValue is a field value rendered as text. Numbers and booleans are
// accepted on input.
type FieldValue string

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	}
	*v = FieldValue(data)
	return nil
}

// Payload is the body of an info query.
type Payload struct {
	Data        []byte
	ContentType string
}

// Binary is a downloaded document.
type Binary struct {
	Data        []byte
	ContentType string
	Disposition string
}

type lookupResponse struct {
	Plots []Plot `json:"plots"`
}

// PlotsAtPoint returns the plots at (x, y) in the service projection.
func (c *Client) PlotsAtPoint(ctx context.Context, x, y float64) ([]Plot, error) {
	q := url.Values{}
	q.Set("x", formatCoord(x))
	q.Set("y", formatCoord(y))
	return c.lookup(ctx, c.baseURL+"/?"+q.Encode())
}

// PlotsByEGRID returns the plot with the given EGRID.
func (c *Client) PlotsByEGRID(ctx context.Context, egrid string) ([]Plot, error) {
	if egrid == "" {
		return nil, errors.InvalidParam("egrid is required")
	}
	return c.lookup(ctx, c.baseURL+"/query/"+url.PathEscape(egrid))
}

func (c *Client) lookup(ctx context.Context, fullURL string) ([]Plot, error) {
	resp, err := c.get(ctx, fullURL, "application/json")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLookupFailed, "plot lookup failed").WithDetail(fullURL)
	}
	var out lookupResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLookupFailed, "invalid lookup response").WithDetail(fullURL)
	}
	return out.Plots, nil
}

// FetchQuery loads an info query from an absolute URL.
func (c *Client) FetchQuery(ctx context.Context, queryURL string) (Payload, error) {
	resp, err := c.get(ctx, queryURL, "")
	if err != nil {
		return Payload{}, errors.Wrap(err, errors.ErrCodeQueryFailed, "query failed").WithDetail(queryURL)
	}
	return Payload{Data: resp.Body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// FetchBinary downloads a document from an absolute URL.
func (c *Client) FetchBinary(ctx context.Context, docURL string) (Binary, error) {
	resp, err := c.get(ctx, docURL, "application/pdf")
	if err != nil {
		return Binary{}, errors.Wrap(err, errors.ErrCodeDownloadFailed, "download failed").WithDetail(docURL)
	}
	return Binary{
		Data:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Disposition: resp.Header.Get("Content-Disposition"),
	}, nil
}
