package reader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"comicshelf/internal/gateway"
	"comicshelf/pkg/models"
)

// ProgressSink persists reading positions. *gateway.Client satisfies it.
type ProgressSink interface {
	UpsertProgress(ctx context.Context, u gateway.Update) (*models.ReadingProgress, error)
}

const writeTimeout = 5 * time.Second

// Writer stores reading positions in the background. It keeps a single
// pending slot: pushing while a write is in flight replaces whatever was
// queued, so the newest position always wins and stale ones are never sent.
type Writer struct {
	sink   ProgressSink
	logger *log.Logger

	mu      sync.Mutex
	pending *gateway.Update
	closed  bool

	kick chan struct{}
	done chan struct{}
}

// NewWriter starts the background worker. A nil logger falls back to the
// package default.
func NewWriter(sink ProgressSink, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	w := &Writer{
		sink:   sink,
		logger: logger,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Push queues u as the next position to store, replacing any queued one that
// has not been written yet. It never blocks. Pushes after Close are dropped.
func (w *Writer) Push(u gateway.Update) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = &u
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Close stops the worker and blocks until the last pending write has been
// attempted. Safe to call more than once.
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.kick)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *Writer) take() *gateway.Update {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := w.pending
	w.pending = nil
	return u
}

func (w *Writer) run() {
	defer close(w.done)
	for range w.kick {
		for {
			u := w.take()
			if u == nil {
				break
			}
			w.write(*u)
		}
	}
	// the channel is closed; flush anything queued right before Close
	if u := w.take(); u != nil {
		w.write(*u)
	}
}

// write attempts one upsert. Failures are terminal for that position: the
// next push carries a fresher one anyway.
func (w *Writer) write(u gateway.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err := w.sink.UpsertProgress(ctx, u)
	if err == nil || errors.Is(err, gateway.ErrAuthRequired) {
		return
	}
	w.logger.Warn("progress write dropped",
		"comic", u.ComicID, "page", u.PageNumber, "err", err)
}
