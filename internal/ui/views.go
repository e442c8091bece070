package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// View renders the active screen plus the status line.
func (m *Model) View() string {
	var body string
	switch m.view {
	case HomeView:
		body = m.renderHome()
	case DetailView:
		body = m.renderDetail()
	case ReaderView:
		body = m.renderReader()
	case LibraryView:
		body = m.renderLibrary()
	}
	if m.status != "" {
		body = fmt.Sprintf("%s\n%s", body, styles.warn.Render(m.status))
	}
	return body
}

func (m *Model) renderHome() string {
	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.enter, m.keys.search, m.keys.library, m.keys.quit,
	})
	return fmt.Sprintf("%s\n%s\n\n%s  %s",
		m.renderSearchBar(), m.comicList.View(), helpView, m.renderWho())
}

func (m *Model) renderSearchBar() string {
	if m.searching {
		return "search: " + m.search.View()
	}
	if q := strings.TrimSpace(m.search.Value()); q != "" {
		return styles.help.Render(fmt.Sprintf("search: %q (/ to change)", q))
	}
	return styles.help.Render("/ to search")
}

func (m *Model) renderWho() string {
	if m.user != nil {
		return styles.ok.Render("signed in as " + m.user.Username)
	}
	return styles.help.Render("signed out")
}

func (m *Model) renderDetail() string {
	if m.detail == nil {
		return styles.err.Render("no comic loaded")
	}
	d := m.detail

	title := styles.title.Render(d.Title)
	meta := fmt.Sprintf("by %s", d.Author)
	if d.Status != "" {
		meta = fmt.Sprintf("%s • %s", meta, d.Status)
	}
	rating := styles.help.Render("no reviews yet")
	if d.ReviewCount > 0 {
		rating = fmt.Sprintf("★ %.1f (%d reviews)", d.AverageRating, d.ReviewCount)
	}

	head := fmt.Sprintf("%s\n%s\n%s", title, meta, rating)
	if d.Description != "" {
		head = fmt.Sprintf("%s\n\n%s", head, d.Description)
	}
	if hint := m.resumeHint(); hint != "" {
		head = fmt.Sprintf("%s\n\n%s", head, styles.ok.Render(hint))
	}

	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.enter, m.keys.resume, m.keys.back, m.keys.quit,
	})
	return fmt.Sprintf("%s\n\n%s\n\n%s", head, m.chapterList.View(), helpView)
}

func (m *Model) resumeHint() string {
	if m.resume == nil || m.resume.ChapterID == "" || m.detail == nil {
		return ""
	}
	for _, ch := range m.detail.Chapters {
		if ch.ID == m.resume.ChapterID {
			return fmt.Sprintf("resume: chapter %d, page %d (press r)",
				ch.ChapterNumber, m.resume.PageNumber)
		}
	}
	return fmt.Sprintf("resume: page %d (press r)", m.resume.PageNumber)
}

func (m *Model) renderReader() string {
	if m.session == nil {
		return styles.err.Render("no open chapter")
	}
	s := m.session
	p := s.Page()

	title := styles.title.Render(m.readerTitle())
	panel := fmt.Sprintf("%s\n%s",
		styles.ok.Render(fmt.Sprintf("Page %d / %d", s.Index()+1, s.Len())),
		p.ImageURL)

	stripWidth := m.width / 4
	if stripWidth < 5 {
		stripWidth = 5
	}
	strip := styles.help.Render(renderStrip(s.Len(), s.Index(), stripWidth))

	var jump string
	if m.jumping {
		jump = "\ngo to page: " + m.jump.View()
	}

	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.prev, m.keys.next, m.keys.first, m.keys.last, m.keys.jump, m.keys.back,
	})
	return fmt.Sprintf("%s\n%s\n\n%s%s\n\n%s", title, panel, strip, jump, helpView)
}

func (m *Model) readerTitle() string {
	base := "Reading"
	if m.detail != nil {
		base = m.detail.Title
		for _, ch := range m.detail.Chapters {
			if ch.ID == m.session.ChapterID() {
				return fmt.Sprintf("%s • Chapter %d", base, ch.ChapterNumber)
			}
		}
	}
	return base
}

func (m *Model) renderLibrary() string {
	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.enter, m.keys.back, m.keys.quit,
	})
	return fmt.Sprintf("%s\n\n%s  %s", m.libList.View(), helpView, m.renderWho())
}
