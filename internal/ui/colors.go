package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/palgatox64/sonusitory/internal/formatter"
)

var styles = NewPalette("#7D56F4", "#5DA9E9", "#04B575", "#FF4D4D", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	info   lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	muted  lipgloss.Style
	help   lipgloss.Style
	accent string
}

func NewPalette(t, i, s, e, m string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		info:   NewStyle(i),
		ok:     NewBold(s),
		err:    NewBold(e),
		muted:  NewStyle(m),
		help:   NewEm(m),
		accent: t,
	}
}

// For returns the style of a view color.
func (p *Palette) For(c formatter.Color) lipgloss.Style {
	switch c {
	case formatter.ColorSuccess:
		return p.ok
	case formatter.ColorDanger:
		return p.err
	case formatter.ColorMuted:
		return p.muted
	default:
		return p.info
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
