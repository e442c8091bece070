package reader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicshelf/internal/gateway"
	"comicshelf/pkg/models"
)

type fakeSource struct {
	pages []models.Page
	err   error
}

func (f *fakeSource) GetPages(ctx context.Context, chapterID string) ([]models.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func threePages() []models.Page {
	return []models.Page{
		{ID: "p1", PageNumber: 1, ImageURL: "https://img/1.png"},
		{ID: "p2", PageNumber: 2, ImageURL: "https://img/2.png"},
		{ID: "p3", PageNumber: 3, ImageURL: "https://img/3.png"},
	}
}

func openTestSession(t *testing.T) (*Session, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	s, err := Open(context.Background(), &fakeSource{pages: threePages()}, sink, nil, "c1", "ch1")
	require.NoError(t, err)
	return s, sink
}

func TestOpenStartsAtFirstPage(t *testing.T) {
	s, sink := openTestSession(t)

	assert.Equal(t, 0, s.Index())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Page().PageNumber)
	assert.Equal(t, "c1", s.ComicID())
	assert.Equal(t, "ch1", s.ChapterID())

	// the opening position is persisted without any navigation
	s.Close()
	got := sink.snapshot()
	require.NotEmpty(t, got)
	assert.Equal(t, "c1", got[0].ComicID)
	assert.Equal(t, "ch1", got[0].ChapterID)
	assert.Equal(t, 1, got[0].PageNumber)
	assert.NotZero(t, got[0].ClientTS)
}

func TestOpenEmptyChapter(t *testing.T) {
	s, err := Open(context.Background(), &fakeSource{}, &fakeSink{}, nil, "c1", "ch1")
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, gateway.ErrNotFound))
}

func TestOpenSourceFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("backend down")}
	s, err := Open(context.Background(), src, &fakeSink{}, nil, "c1", "ch1")
	assert.Nil(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open chapter")
}

func TestJumpToBounds(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	assert.False(t, s.JumpTo(-1))
	assert.False(t, s.JumpTo(3))
	assert.Equal(t, 0, s.Index(), "failed jumps must not move")

	assert.True(t, s.JumpTo(2))
	assert.Equal(t, 2, s.Index())
	assert.Equal(t, 3, s.Page().PageNumber)
}

func TestStepClamps(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	assert.False(t, s.Step(-1), "stepping back from the first page is a no-op")
	assert.Equal(t, 0, s.Index())

	assert.True(t, s.Step(1))
	assert.Equal(t, 1, s.Index())

	// overshooting lands on the last page instead of wrapping
	assert.True(t, s.Step(10))
	assert.Equal(t, 2, s.Index())

	assert.False(t, s.Step(1), "stepping forward from the last page is a no-op")
	assert.Equal(t, 2, s.Index())

	assert.True(t, s.Step(-10))
	assert.Equal(t, 0, s.Index())
}

func TestOnFocus(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	var focused []int
	s.OnFocus(func(i int) { focused = append(focused, i) })

	s.JumpTo(2)
	s.JumpTo(99) // refused, must not fire
	s.Step(-1)

	assert.Equal(t, []int{2, 1}, focused)
}

func TestNavigationPersistsLatestPosition(t *testing.T) {
	s, sink := openTestSession(t)

	s.JumpTo(1)
	s.JumpTo(2)
	s.Close()

	got := sink.snapshot()
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, 3, last.PageNumber, "close must drain the newest position")
}

func TestCloseRefusesFurtherNavigation(t *testing.T) {
	s, _ := openTestSession(t)

	s.Close()
	assert.False(t, s.JumpTo(1))
	assert.False(t, s.Step(1))
	assert.Equal(t, 0, s.Index())

	s.Close() // second close is a no-op
}
