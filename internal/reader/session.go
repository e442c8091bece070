package reader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"comicshelf/internal/gateway"
	"comicshelf/pkg/models"
)

// PageSource fetches a chapter's ordered pages. *gateway.Client satisfies it.
type PageSource interface {
	GetPages(ctx context.Context, chapterID string) ([]models.Page, error)
}

// Session owns the navigable state of one open chapter. At most one session
// is open at a time; opening another chapter replaces it.
type Session struct {
	comicID   string
	chapterID string
	pages     []models.Page
	writer    *Writer

	mu      sync.Mutex
	index   int
	closed  bool
	onFocus func(int)
}

// Open fetches the chapter's pages and starts a session on its first page.
// A chapter without pages is not readable and reports ErrNotFound. The
// opening position is pushed to the sink immediately.
func Open(ctx context.Context, src PageSource, sink ProgressSink, logger *log.Logger, comicID, chapterID string) (*Session, error) {
	pages, err := src.GetPages(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("open chapter: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("chapter %s has no pages: %w", chapterID, gateway.ErrNotFound)
	}

	s := &Session{
		comicID:   comicID,
		chapterID: chapterID,
		pages:     pages,
		writer:    NewWriter(sink, logger),
	}
	s.push(0)
	return s, nil
}

// OnFocus registers fn to run with the new index after every successful jump.
// The view uses it to scroll the page strip.
func (s *Session) OnFocus(fn func(int)) {
	s.mu.Lock()
	s.onFocus = fn
	s.mu.Unlock()
}

// JumpTo moves to page index i (0-based) and persists the new position.
// Out-of-bounds indexes change nothing and report false.
func (s *Session) JumpTo(i int) bool {
	s.mu.Lock()
	if s.closed || i < 0 || i >= len(s.pages) {
		s.mu.Unlock()
		return false
	}
	s.index = i
	fn := s.onFocus
	s.mu.Unlock()

	s.push(i)
	if fn != nil {
		fn(i)
	}
	return true
}

// Step moves by d pages, clamping at the first and last page. There is no
// wraparound; stepping off an edge lands on that edge.
func (s *Session) Step(d int) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	target := s.index + d
	if target < 0 {
		target = 0
	}
	if target > len(s.pages)-1 {
		target = len(s.pages) - 1
	}
	moved := target != s.index
	s.mu.Unlock()

	if !moved {
		return false
	}
	return s.JumpTo(target)
}

// Close discards the session after the last pending position write drains.
// Safe to call more than once; navigation after Close is refused.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.writer.Close()
}

// Page returns the current page.
func (s *Session) Page() models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[s.index]
}

// Index returns the 0-based position of the current page.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Len returns the number of pages in the chapter.
func (s *Session) Len() int {
	return len(s.pages)
}

// Pages returns the chapter's pages in reading order.
func (s *Session) Pages() []models.Page {
	return s.pages
}

// ComicID returns the comic the session belongs to.
func (s *Session) ComicID() string {
	return s.comicID
}

// ChapterID returns the open chapter.
func (s *Session) ChapterID() string {
	return s.chapterID
}

// push queues the position at index i. Pages are immutable after Open, so no
// lock is needed here.
func (s *Session) push(i int) {
	s.writer.Push(gateway.Update{
		ComicID:    s.comicID,
		ChapterID:  s.chapterID,
		PageNumber: s.pages[i].PageNumber,
		ClientTS:   time.Now().UnixMilli(),
	})
}
