package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicshelf/internal/gateway"
	"comicshelf/internal/reader"
	"comicshelf/pkg/models"
)

type stubSource struct{ pages []models.Page }

func (s stubSource) GetPages(ctx context.Context, chapterID string) ([]models.Page, error) {
	return s.pages, nil
}

type stubSink struct{}

func (stubSink) UpsertProgress(ctx context.Context, u gateway.Update) (*models.ReadingProgress, error) {
	return &models.ReadingProgress{}, nil
}

// newTestModel builds a model whose client points at a dead address. Commands
// are never executed in these tests unless stated, so nothing dials it.
func newTestModel(t *testing.T) *Model {
	t.Helper()
	client := gateway.New("http://127.0.0.1:1", filepath.Join(t.TempDir(), "token.json"))
	return NewModel(context.Background(), client, nil)
}

func openStubSession(t *testing.T) *reader.Session {
	t.Helper()
	src := stubSource{pages: []models.Page{
		{ID: "p1", PageNumber: 1},
		{ID: "p2", PageNumber: 2},
		{ID: "p3", PageNumber: 3},
	}}
	s, err := reader.Open(context.Background(), src, stubSink{}, nil, "c1", "ch1")
	require.NoError(t, err)
	return s
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestEscUnwindsTowardHome(t *testing.T) {
	m := newTestModel(t)

	m.view = LibraryView
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, HomeView, m.view)

	m.view = DetailView
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, HomeView, m.view)
}

func TestTabTogglesLibrary(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, LibraryView, m.view)
	assert.NotNil(t, cmd, "entering the library must trigger a load")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, HomeView, m.view)
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(keyRune('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestReaderEscClosesSession(t *testing.T) {
	m := newTestModel(t)
	s := openStubSession(t)
	m.session = s
	m.view = ReaderView

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, DetailView, m.view)
	assert.Nil(t, m.session, "the session must detach before the close runs")
	require.NotNil(t, cmd)

	msg := cmd()
	assert.IsType(t, sessionClosedMsg{}, msg)
	assert.False(t, s.JumpTo(0), "a closed session must refuse navigation")
}

func TestReaderNavigationKeys(t *testing.T) {
	m := newTestModel(t)
	s := openStubSession(t)
	m.session = s
	m.view = ReaderView

	m.Update(keyRune('l'))
	assert.Equal(t, 1, s.Index())

	m.Update(keyRune('h'))
	assert.Equal(t, 0, s.Index())

	m.Update(keyRune('G'))
	assert.Equal(t, 2, s.Index())

	m.Update(keyRune('g'))
	assert.Equal(t, 0, s.Index())

	s.Close()
}

func TestJumpPrompt(t *testing.T) {
	m := newTestModel(t)
	s := openStubSession(t)
	m.session = s
	m.view = ReaderView

	m.Update(keyRune(':'))
	assert.True(t, m.jumping)

	m.Update(keyRune('3'))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.jumping)
	assert.Equal(t, 2, s.Index(), "jump is 1-based for the user")

	m.Update(keyRune(':'))
	m.Update(keyRune('9'))
	m.Update(keyRune('9'))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "out of range")
	assert.Equal(t, 2, s.Index(), "a failed jump must not move")

	s.Close()
}

func TestSearchPromptFlow(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(keyRune('/'))
	assert.True(t, m.searching)
	assert.NotNil(t, cmd)

	// while searching, view keys are swallowed by the input
	m.Update(keyRune('q'))
	assert.True(t, m.searching)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Equal(t, HomeView, m.view)

	m.Update(keyRune('/'))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.NotNil(t, cmd, "submitting a search must trigger a load")
}

func TestComicsLoaded(t *testing.T) {
	m := newTestModel(t)

	m.Update(comicsLoadedMsg{
		comics: []models.Comic{{ID: "c1", Title: "Alpha"}, {ID: "c2", Title: "Beta"}},
		total:  7,
	})
	assert.Len(t, m.comicList.Items(), 2)
	assert.Equal(t, "7 comics", m.status)
}

func TestSessionOpened(t *testing.T) {
	m := newTestModel(t)
	s := openStubSession(t)

	m.Update(sessionOpenedMsg{
		detail:  &models.ComicDetail{Comic: models.Comic{ID: "c1", Title: "Alpha"}},
		session: s,
	})
	assert.Equal(t, ReaderView, m.view)
	assert.Equal(t, s, m.session)
	require.NotNil(t, m.detail)
	assert.Equal(t, "Alpha", m.detail.Title)

	s.Close()
}

func TestLoadErrorsSetStatus(t *testing.T) {
	m := newTestModel(t)

	m.Update(comicsLoadedMsg{err: gateway.ErrAuthRequired})
	assert.Equal(t, "sign in first: comicshelf auth login", m.status)
	assert.Equal(t, HomeView, m.view)

	m.Update(sessionOpenedMsg{err: fmt.Errorf("chapter gone: %w", gateway.ErrNotFound)})
	assert.Equal(t, "open chapter: not found", m.status)
	assert.Nil(t, m.session)
}

func TestErrStatus(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "auth required",
			err:  gateway.ErrAuthRequired,
			want: "sign in first: comicshelf auth login",
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("comic x: %w", gateway.ErrNotFound),
			want: "load: not found",
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: "load failed: boom",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errStatus("load", tc.err))
		})
	}
}

func TestWindowResize(t *testing.T) {
	m := newTestModel(t)

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 40, m.height)

	// tiny terminals must not produce negative list sizes
	m.Update(tea.WindowSizeMsg{Width: 2, Height: 3})
	assert.Equal(t, 2, m.width)
}
