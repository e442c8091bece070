package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"comicshelf/internal/gateway"
	"comicshelf/internal/reader"
	"comicshelf/pkg/models"
)

// ViewState selects the active screen. Exactly one screen is active at a
// time and esc always unwinds toward home.
type ViewState int

const (
	HomeView ViewState = iota
	DetailView
	ReaderView
	LibraryView
)

// Model is the TUI application state. The signed-in user, the open comic and
// the reading session all live here.
type Model struct {
	ctx    context.Context
	client *gateway.Client
	logger *log.Logger
	user   *gateway.User

	view   ViewState
	width  int
	height int
	status string

	comicList list.Model
	search    textinput.Model
	searching bool
	total     int

	detail      *models.ComicDetail
	resume      *models.ReadingProgress
	chapterList list.Model

	session *reader.Session
	jump    textinput.Model
	jumping bool

	libList list.Model

	help help.Model
	keys keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	enter   key.Binding
	back    key.Binding
	search  key.Binding
	library key.Binding
	resume  key.Binding
	prev    key.Binding
	next    key.Binding
	first   key.Binding
	last    key.Binding
	jump    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		library: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "library"),
		),
		resume: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resume"),
		),
		prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev page"),
		),
		next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next page"),
		),
		first: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "first"),
		),
		last: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "last"),
		),
		jump: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "go to page"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.back, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back, k.search, k.library},
		{k.prev, k.next, k.first, k.last},
		{k.jump, k.resume, k.quit},
	}
}

type comicsLoadedMsg struct {
	comics []models.Comic
	total  int
	err    error
}

type comicLoadedMsg struct {
	detail *models.ComicDetail
	resume *models.ReadingProgress
	err    error
}

type sessionOpenedMsg struct {
	// detail is set when the command had to fetch it, i.e. on library resume.
	detail  *models.ComicDetail
	resume  *models.ReadingProgress
	session *reader.Session
	err     error
}

type libraryLoadedMsg struct {
	entries []models.LibraryEntry
	err     error
}

type sessionClosedMsg struct{}

// NewModel creates the TUI model. The client's cached user (from a restored
// session) becomes the signed-in indicator.
func NewModel(ctx context.Context, client *gateway.Client, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}

	search := textinput.New()
	search.Placeholder = "title…"
	search.CharLimit = 80
	search.Width = 32

	jump := textinput.New()
	jump.Placeholder = "page #"
	jump.CharLimit = 5
	jump.Width = 8

	m := &Model{
		ctx:    ctx,
		client: client,
		logger: logger,
		user:   client.User(),
		view:   HomeView,
		search: search,
		jump:   jump,
		help:   help.New(),
		keys:   newKeyMap(),
	}
	m.comicList = newListModel("Comics")
	m.chapterList = newListModel("Chapters")
	m.libList = newListModel("Library")
	return m
}

// newListModel builds a list with the chrome we render ourselves turned off.
// Filtering stays off because search runs server-side.
func newListModel(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

// Init fetches the catalog.
func (m *Model) Init() tea.Cmd {
	m.status = "loading catalog…"
	return m.loadCatalog("")
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.setSizes()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case comicsLoadedMsg:
		if msg.err != nil {
			m.status = errStatus("load comics", msg.err)
			return m, nil
		}
		items := make([]list.Item, len(msg.comics))
		for i, c := range msg.comics {
			items[i] = comicItem{comic: c}
		}
		m.comicList.SetItems(items)
		m.total = msg.total
		m.status = fmt.Sprintf("%d comics", msg.total)
		return m, nil

	case comicLoadedMsg:
		if msg.err != nil {
			m.status = errStatus("load comic", msg.err)
			return m, nil
		}
		m.setDetail(msg.detail, msg.resume)
		m.view = DetailView
		m.status = ""
		return m, nil

	case sessionOpenedMsg:
		if msg.err != nil {
			m.status = errStatus("open chapter", msg.err)
			return m, nil
		}
		if msg.detail != nil {
			m.setDetail(msg.detail, msg.resume)
		}
		m.session = msg.session
		m.view = ReaderView
		m.status = ""
		return m, nil

	case libraryLoadedMsg:
		if msg.err != nil {
			m.status = errStatus("load library", msg.err)
			return m, nil
		}
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = libraryItem{entry: e}
		}
		m.libList.SetItems(items)
		m.status = fmt.Sprintf("%d in library", len(msg.entries))
		return m, nil

	case sessionClosedMsg:
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) setDetail(d *models.ComicDetail, resume *models.ReadingProgress) {
	m.detail = d
	m.resume = resume
	items := make([]list.Item, len(d.Chapters))
	for i, ch := range d.Chapters {
		items[i] = chapterItem{chapter: ch}
	}
	m.chapterList.SetItems(items)
}

func (m *Model) setSizes() {
	w, h := m.width-4, m.height-8
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	m.comicList.SetSize(w, h)
	m.chapterList.SetSize(w, h)
	m.libList.SetSize(w, h)
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// an active text input swallows everything but esc and enter
	if m.searching {
		return m.handleSearchKeys(msg)
	}
	if m.jumping {
		return m.handleJumpKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.view {
	case HomeView:
		return m.handleHomeKeys(msg)
	case DetailView:
		return m.handleDetailKeys(msg)
	case ReaderView:
		return m.handleReaderKeys(msg)
	case LibraryView:
		return m.handleLibraryKeys(msg)
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		m.status = "searching…"
		return m, m.loadCatalog(strings.TrimSpace(m.search.Value()))
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) handleJumpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.jumping = false
		m.jump.Blur()
		return m, nil
	case "enter":
		m.jumping = false
		m.jump.Blur()
		raw := strings.TrimSpace(m.jump.Value())
		n, err := strconv.Atoi(raw)
		if err != nil {
			m.status = fmt.Sprintf("not a page number: %q", raw)
			return m, nil
		}
		if m.session == nil || !m.session.JumpTo(n-1) {
			m.status = fmt.Sprintf("page %d out of range", n)
			return m, nil
		}
		m.status = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case "tab":
		m.view = LibraryView
		m.status = "loading library…"
		return m, m.loadLibrary()
	case "enter":
		if it, ok := m.comicList.SelectedItem().(comicItem); ok {
			m.status = "loading " + it.comic.Title + "…"
			return m, m.loadComic(it.comic.ID)
		}
	}
	var cmd tea.Cmd
	m.comicList, cmd = m.comicList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = HomeView
		m.status = ""
		return m, nil
	case "r":
		if m.detail != nil && m.resume != nil && m.resume.ChapterID != "" {
			return m, m.openChapter(m.detail.ID, m.resume.ChapterID, m.resume.PageNumber)
		}
		m.status = "nothing to resume"
		return m, nil
	case "enter":
		if it, ok := m.chapterList.SelectedItem().(chapterItem); ok && m.detail != nil {
			return m, m.openChapter(m.detail.ID, it.chapter.ID, 0)
		}
	}
	var cmd tea.Cmd
	m.chapterList, cmd = m.chapterList.Update(msg)
	return m, cmd
}

func (m *Model) handleReaderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		m.view = DetailView
		return m, nil
	}
	switch msg.String() {
	case "esc":
		s := m.session
		m.session = nil
		m.view = DetailView
		m.status = ""
		return m, closeSession(s)
	case "left", "h":
		m.session.Step(-1)
	case "right", "l":
		m.session.Step(1)
	case "g":
		m.session.JumpTo(0)
	case "G":
		m.session.JumpTo(m.session.Len() - 1)
	case ":":
		m.jumping = true
		m.jump.SetValue("")
		m.jump.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab":
		m.view = HomeView
		m.status = ""
		return m, nil
	case "enter":
		if it, ok := m.libList.SelectedItem().(libraryItem); ok {
			m.status = "resuming " + it.entry.ComicTitle + "…"
			return m, m.resumeEntry(it.entry)
		}
	}
	var cmd tea.Cmd
	m.libList, cmd = m.libList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case HomeView:
		m.comicList, cmd = m.comicList.Update(msg)
	case DetailView:
		m.chapterList, cmd = m.chapterList.Update(msg)
	case LibraryView:
		m.libList, cmd = m.libList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadCatalog(search string) tea.Cmd {
	return func() tea.Msg {
		comics, total, err := m.client.ListComics(m.ctx, search, 50, 0)
		return comicsLoadedMsg{comics: comics, total: total, err: err}
	}
}

func (m *Model) loadComic(id string) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.client.GetComic(m.ctx, id)
		if err != nil {
			return comicLoadedMsg{err: err}
		}
		return comicLoadedMsg{detail: detail, resume: m.fetchResume(id)}
	}
}

// fetchResume is best-effort: a missing or failed lookup just means no
// resume hint.
func (m *Model) fetchResume(comicID string) *models.ReadingProgress {
	if !m.client.Authenticated() {
		return nil
	}
	p, err := m.client.GetProgress(m.ctx, comicID)
	if err != nil {
		if !errors.Is(err, gateway.ErrNotFound) && !errors.Is(err, gateway.ErrAuthRequired) {
			m.logger.Warn("resume lookup failed", "comic", comicID, "err", err)
		}
		return nil
	}
	return p
}

func (m *Model) openChapter(comicID, chapterID string, page int) tea.Cmd {
	return func() tea.Msg {
		s, err := reader.Open(m.ctx, m.client, m.client, m.logger, comicID, chapterID)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}
		if page > 1 {
			jumpToPage(s, page)
		}
		return sessionOpenedMsg{session: s}
	}
}

func (m *Model) resumeEntry(e models.LibraryEntry) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.client.GetComic(m.ctx, e.ComicID)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}
		resume := e.ReadingProgress
		if e.ChapterID == "" {
			// nothing read yet, land on the detail screen instead
			return comicLoadedMsg{detail: detail, resume: &resume}
		}
		s, err := reader.Open(m.ctx, m.client, m.client, m.logger, e.ComicID, e.ChapterID)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}
		if e.PageNumber > 1 {
			jumpToPage(s, e.PageNumber)
		}
		return sessionOpenedMsg{detail: detail, resume: &resume, session: s}
	}
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.client.Library(m.ctx)
		return libraryLoadedMsg{entries: entries, err: err}
	}
}

func closeSession(s *reader.Session) tea.Cmd {
	return func() tea.Msg {
		s.Close()
		return sessionClosedMsg{}
	}
}

// jumpToPage positions s on the page numbered page, matching the stored page
// number rather than assuming a gapless 1..N sequence.
func jumpToPage(s *reader.Session, page int) {
	for i, p := range s.Pages() {
		if p.PageNumber == page {
			s.JumpTo(i)
			return
		}
	}
}

func errStatus(op string, err error) string {
	switch {
	case errors.Is(err, gateway.ErrAuthRequired):
		return "sign in first: comicshelf auth login"
	case errors.Is(err, gateway.ErrNotFound):
		return op + ": not found"
	default:
		return op + " failed: " + err.Error()
	}
}
