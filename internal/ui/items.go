package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"comicshelf/pkg/models"
)

var (
	_ list.Item = comicItem{}
	_ list.Item = chapterItem{}
	_ list.Item = libraryItem{}
)

// comicItem wraps [models.Comic] to implement [list.Item].
type comicItem struct {
	comic models.Comic
}

func (i comicItem) FilterValue() string { return i.comic.Title }
func (i comicItem) Title() string       { return i.comic.Title }
func (i comicItem) Description() string {
	desc := i.comic.Author
	if desc == "" {
		desc = "unknown author"
	}
	if i.comic.Status != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.comic.Status)
	}
	return desc
}

// chapterItem wraps [models.Chapter] to implement [list.Item].
type chapterItem struct {
	chapter models.Chapter
}

func (i chapterItem) FilterValue() string { return i.chapter.Title }
func (i chapterItem) Title() string {
	if i.chapter.Title == "" {
		return fmt.Sprintf("Chapter %d", i.chapter.ChapterNumber)
	}
	return fmt.Sprintf("Chapter %d: %s", i.chapter.ChapterNumber, i.chapter.Title)
}
func (i chapterItem) Description() string {
	if i.chapter.PagesCount == 1 {
		return "1 page"
	}
	return fmt.Sprintf("%d pages", i.chapter.PagesCount)
}

// libraryItem wraps [models.LibraryEntry] to implement [list.Item].
type libraryItem struct {
	entry models.LibraryEntry
}

func (i libraryItem) FilterValue() string { return i.entry.ComicTitle }
func (i libraryItem) Title() string       { return i.entry.ComicTitle }
func (i libraryItem) Description() string {
	if i.entry.ChapterID == "" {
		return "not started"
	}
	desc := fmt.Sprintf("chapter %d • page %d", i.entry.ChapterNumber, i.entry.PageNumber)
	if i.entry.ChapterTitle != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.entry.ChapterTitle)
	}
	return desc
}
