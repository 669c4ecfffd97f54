package plotinfo

import (
	"context"
	"sync"

	"github.com/turtacn/plotinfo/internal/domain/plot"
)

type fakeService struct {
	mu        sync.Mutex
	plots     []plot.Record
	lookupErr error
	payloads  map[string]plot.Payload
	queryErr  error
	binary    plot.Binary
	binErr    error
	calls     map[string]int
}

func newFakeService() *fakeService {
	return &fakeService{payloads: make(map[string]plot.Payload), calls: make(map[string]int)}
}

func (f *fakeService) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeService) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) PlotsAtPoint(_ context.Context, _, _ float64) ([]plot.Record, error) {
	f.count("point")
	return f.plots, f.lookupErr
}

func (f *fakeService) PlotsByEGRID(_ context.Context, egrid string) ([]plot.Record, error) {
	f.count("egrid")
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []plot.Record
	for _, p := range f.plots {
		if p.EGRID == egrid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeService) FetchQuery(_ context.Context, url string) (plot.Payload, error) {
	f.count("query")
	if f.queryErr != nil {
		return plot.Payload{}, f.queryErr
	}
	return f.payloads[url], nil
}

func (f *fakeService) FetchBinary(_ context.Context, _ string) (plot.Binary, error) {
	f.count("binary")
	return f.binary, f.binErr
}

type savedDoc struct {
	Name        string
	ContentType string
	Data        []byte
}

type memorySaver struct {
	mu   sync.Mutex
	docs []savedDoc
	err  error
}

func (m *memorySaver) Save(_ context.Context, name, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.docs = append(m.docs, savedDoc{Name: name, ContentType: contentType, Data: data})
	return "mem://" + name, nil
}

type notification struct{ Level, Message string }

type notifications struct {
	mu  sync.Mutex
	got []notification
}

func (n *notifications) Notify(_ context.Context, level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notification{level, message})
}

func (n *notifications) All() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.got...)
}
