package watcher

import (
	"context"
	"log/slog"
	"time"

	"safeclaw/internal/session"
)

// DefaultBackoff is the pause before resubscribing after the feed ends.
const DefaultBackoff = time.Second

// EventSource is the runtime event feed.
type EventSource interface {
	Events(ctx context.Context, prefix string) (<-chan session.Event, <-chan error)
}

// Sink receives normalized change notifications.
type Sink interface {
	Publish(change session.Change)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(change session.Change)

func (f SinkFunc) Publish(change session.Change) { f(change) }

// Recorder observes watcher activity.
type Recorder interface {
	ObserveEvent(action string)
	ObserveWatchRestart()
}

// Watcher keeps one subscription to the runtime event feed alive and turns
// every relevant event into a session.Change for its sinks.
type Watcher struct {
	source   EventSource
	prefix   string
	backoff  time.Duration
	sinks    []Sink
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithBackoff overrides DefaultBackoff.
func WithBackoff(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.backoff = d
		}
	}
}

// WithRecorder attaches metrics.
func WithRecorder(r Recorder) Option {
	return func(w *Watcher) { w.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher publishing to sinks in the given order.
func New(source EventSource, prefix string, sinks []Sink, opts ...Option) *Watcher {
	w := &Watcher{
		source:  source,
		prefix:  prefix,
		backoff: DefaultBackoff,
		sinks:   sinks,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run subscribes and resubscribes after a fixed backoff whenever the feed
// ends, for as long as ctx lives. Subscription errors are never returned.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("event watcher started", "prefix", w.prefix)
	for {
		w.watch(ctx)
		if ctx.Err() != nil {
			w.logger.Info("event watcher stopped")
			return
		}

		if w.recorder != nil {
			w.recorder.ObserveWatchRestart()
		}

		select {
		case <-ctx.Done():
			w.logger.Info("event watcher stopped")
			return
		case <-time.After(w.backoff):
		}
	}
}

func (w *Watcher) watch(ctx context.Context) {
	evs, errs := w.source.Events(ctx, w.prefix)
	for ev := range evs {
		action, ok := session.ActionFromRuntime(ev.Action)
		if !ok {
			continue
		}
		if w.recorder != nil {
			w.recorder.ObserveEvent(string(action))
		}
		change := session.Change{Action: action, Name: ev.Name}
		for _, s := range w.sinks {
			s.Publish(change)
		}
	}

	select {
	case err := <-errs:
		w.logger.Debug("event subscription ended", "error", err, "retry_in", w.backoff)
	default:
		w.logger.Debug("event subscription ended", "retry_in", w.backoff)
	}
}
