package plotinfo

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// ErrSessionClosed is returned by Dispatch once Run has returned.
var ErrSessionClosed = errors.New(errors.ErrCodeServiceUnavailable, "session closed")

// Session owns a State and executes the effects produced by a Machine.
//
// In the default asynchronous mode events are queued by Dispatch and applied
// by Run, and remote calls run on their own goroutines which post their
// completion events back to the queue. WithSynchronousIO applies events and
// performs remote calls inside Dispatch.
type Session struct {
	machine  *Machine
	service  PlotService
	mapView  mapview.Map
	saver    DocumentSaver
	notifier Notifier
	logger   logging.Logger
	metrics  *prometheus.PlotInfoMetrics

	onClearSearch   func()
	onClearURLParam func(key string)

	synchronous    bool
	requestTimeout time.Duration

	mu    sync.Mutex
	state State

	inbox     chan Event
	done      chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSynchronousIO performs remote calls inline in Dispatch.
func WithSynchronousIO() SessionOption {
	return func(s *Session) { s.synchronous = true }
}

func WithSessionLogger(log logging.Logger) SessionOption {
	return func(s *Session) { s.logger = log }
}

func WithSessionMetrics(m *prometheus.PlotInfoMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithDocumentSaver sets where downloaded PDFs are written.
func WithDocumentSaver(d DocumentSaver) SessionOption {
	return func(s *Session) { s.saver = d }
}

func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) { s.notifier = n }
}

// WithClearSearch registers the hook run for ClearSearch effects.
func WithClearSearch(fn func()) SessionOption {
	return func(s *Session) { s.onClearSearch = fn }
}

// WithClearURLParam registers the hook run for ClearURLParam effects.
func WithClearURLParam(fn func(key string)) SessionOption {
	return func(s *Session) { s.onClearURLParam = fn }
}

// WithRequestTimeout bounds every remote call.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.requestTimeout = d }
}

// WithInboxSize sets the capacity of the event queue.
func WithInboxSize(n int) SessionOption {
	return func(s *Session) { s.inbox = make(chan Event, n) }
}

// NewSession creates a Session in the inactive phase.
func NewSession(machine *Machine, service PlotService, m mapview.Map, opts ...SessionOption) *Session {
	s := &Session{
		machine: machine,
		service: service,
		mapView: m,
		logger:  logging.NewNopLogger(),
		inbox:   make(chan Event, 64),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch submits ev. In synchronous mode it returns once ev and every
// completion event it caused have been applied. Hooks and collaborators must
// not call Dispatch re-entrantly in that mode.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	if s.synchronous {
		s.mu.Lock()
		defer s.mu.Unlock()
		queue := []Event{ev}
		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			queue = append(queue, s.step(ctx, next)...)
		}
		return nil
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.inbox <- ev:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued events until ctx is cancelled, then waits for the remote
// calls still in flight.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		s.closeOnce.Do(func() { close(s.done) })
		s.inflight.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.inbox:
			s.mu.Lock()
			s.step(ctx, ev)
			s.mu.Unlock()
		}
	}
}

// step applies ev and executes the resulting effects. It returns the
// completion events of remote calls made inline. Callers hold s.mu.
func (s *Session) step(ctx context.Context, ev Event) []Event {
	next, effects := s.machine.Apply(s.state, ev)
	if next.Phase != s.state.Phase {
		s.logger.Debug("plot info phase changed",
			logging.String("event", ev.Name()),
			logging.String("from", s.state.Phase.String()),
			logging.String("to", next.Phase.String()))
	}
	s.state = next
	s.metrics.RecordEvent(ev.Name())
	s.metrics.SetPending(len(next.PendingPDFs))

	var completions []Event
	for _, effect := range effects {
		if c := s.execute(ctx, effect); c != nil {
			completions = append(completions, c)
		}
	}
	return completions
}

func (s *Session) execute(ctx context.Context, effect Effect) Event {
	if mapview.IsMapEffect(effect) {
		s.metrics.RecordMapEffect(effect.Kind())
		if err := s.mapView.Apply(ctx, effect); err != nil {
			s.logger.Warn("map effect failed", logging.String("kind", effect.Kind()), logging.Err(err))
		}
		return nil
	}

	switch e := effect.(type) {
	case ClearSearch:
		if s.onClearSearch != nil {
			s.onClearSearch()
		}
	case ClearURLParam:
		if s.onClearURLParam != nil {
			s.onClearURLParam(e.Key)
		}
	case Notify:
		s.notify(ctx, e)
	case FetchPlotsAtPoint, FetchPlotsByIdentifier, FetchQuery, DownloadPDF:
		return s.remote(ctx, effect)
	default:
		s.logger.Warn("unhandled effect", logging.String("kind", effect.Kind()))
	}
	return nil
}

func (s *Session) notify(ctx context.Context, n Notify) {
	if s.notifier == nil {
		s.logger.Info("notification", logging.String("level", n.Level), logging.String("message", n.Message))
		return
	}
	s.notifier.Notify(ctx, n.Level, n.Message)
}

// remote performs effect inline in synchronous mode and returns its
// completion. Otherwise it starts a goroutine which posts the completion.
func (s *Session) remote(ctx context.Context, effect Effect) Event {
	if s.synchronous {
		return s.perform(ctx, effect)
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ev := s.perform(ctx, effect)
		select {
		case s.inbox <- ev:
		case <-s.done:
		}
	}()
	return nil
}

func (s *Session) perform(ctx context.Context, effect Effect) Event {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	start := time.Now()

	switch e := effect.(type) {
	case FetchPlotsAtPoint:
		plots, err := s.service.PlotsAtPoint(ctx, e.X, e.Y)
		s.metrics.RecordLookup(string(LookupByPoint), len(plots), err, time.Since(start))
		if err != nil {
			s.logger.Warn("plot lookup at point failed", logging.Float64("x", e.X), logging.Float64("y", e.Y), logging.Err(err))
			return LookupFailed{Seq: e.Seq, Mode: LookupByPoint, Err: err}
		}
		return LookupSucceeded{Seq: e.Seq, Mode: LookupByPoint, Plots: plots}

	case FetchPlotsByIdentifier:
		plots, err := s.service.PlotsByEGRID(ctx, e.EGRID)
		s.metrics.RecordLookup(string(LookupByIdentifier), len(plots), err, time.Since(start))
		if err != nil {
			s.logger.Warn("plot lookup by identifier failed", logging.String("egrid", e.EGRID), logging.Err(err))
			return LookupFailed{Seq: e.Seq, Mode: LookupByIdentifier, Err: err}
		}
		return LookupSucceeded{Seq: e.Seq, Mode: LookupByIdentifier, QueryKey: e.QueryKey, Plots: plots}

	case FetchQuery:
		payload, err := s.service.FetchQuery(ctx, e.URL)
		s.metrics.RecordQuery(e.Key, err, time.Since(start))
		if err != nil {
			s.logger.Warn("info query failed", logging.String("query", e.Key), logging.String("url", e.URL), logging.Err(err))
			return QueryFailed{Seq: e.Seq, Key: e.Key, EGRID: e.EGRID, URL: e.URL, Err: err}
		}
		return QueryLoaded{Seq: e.Seq, Key: e.Key, EGRID: e.EGRID, URL: e.URL, Payload: payload}

	case DownloadPDF:
		ev := s.download(ctx, e)
		var err error
		if f, ok := ev.(PDFFailed); ok {
			err = f.Err
		}
		s.metrics.RecordDownload(err, time.Since(start))
		return ev
	}
	return nil
}

func (s *Session) download(ctx context.Context, e DownloadPDF) Event {
	if s.saver == nil {
		return PDFFailed{URL: e.URL, Err: errors.New(errors.ErrCodeDownloadFailed, "no document saver configured")}
	}
	bin, err := s.service.FetchBinary(ctx, e.URL)
	if err != nil {
		s.logger.Warn("pdf download failed", logging.String("url", e.URL), logging.Err(err))
		return PDFFailed{URL: e.URL, Err: err}
	}
	name := bin.Filename(e.Fallback)
	location, err := s.saver.Save(ctx, name, bin.ContentType, bin.Data)
	if err != nil {
		s.logger.Warn("saving pdf failed", logging.String("filename", name), logging.Err(err))
		return PDFFailed{URL: e.URL, Err: errors.Wrap(err, errors.ErrCodeDownloadFailed, "save failed")}
	}
	s.logger.Info("pdf saved", logging.String("filename", name), logging.String("location", location))
	return PDFSaved{URL: e.URL, Filename: name, Location: location}
}
