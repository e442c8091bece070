package ui

import (
	"fmt"
	"strings"
)

// stripWindow returns the half-open slot range [start, end) that keeps index
// visible in a strip of at most width slots. The window centers on index and
// pins to the edges so it never runs past either end.
func stripWindow(total, index, width int) (start, end int) {
	if total <= 0 || width <= 0 {
		return 0, 0
	}
	if width >= total {
		return 0, total
	}
	if index < 0 {
		index = 0
	}
	if index > total-1 {
		index = total - 1
	}
	start = index - width/2
	if start < 0 {
		start = 0
	}
	if start+width > total {
		start = total - width
	}
	return start, start + width
}

// renderStrip draws the page strip: 1-based page slots with the current one
// bracketed, clipped to width slots around it. Ellipses mark clipped ends.
func renderStrip(total, index, width int) string {
	start, end := stripWindow(total, index, width)
	if start == end {
		return ""
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("… ")
	}
	for i := start; i < end; i++ {
		if i > start {
			b.WriteString(" ")
		}
		if i == index {
			fmt.Fprintf(&b, "[%d]", i+1)
		} else {
			fmt.Fprintf(&b, "%d", i+1)
		}
	}
	if end < total {
		b.WriteString(" …")
	}
	return b.String()
}
