package tasks

import (
	"fmt"
	"io"

	"github.com/palgatox64/sonusitory/internal/formatter"
)

// ChannelSurface forwards views to a channel consumed by another goroutine, such as the terminal UI.
//
// Render blocks until the view is received or done is closed, so terminal views are never dropped.
type ChannelSurface struct {
	views chan formatter.View
	done  <-chan struct{}
}

func NewChannelSurface(buffer int, done <-chan struct{}) *ChannelSurface {
	return &ChannelSurface{views: make(chan formatter.View, buffer), done: done}
}

func (c *ChannelSurface) Render(v formatter.View) {
	select {
	case c.views <- v:
	case <-c.done:
	}
}

func (c *ChannelSurface) Views() <-chan formatter.View { return c.views }

// Close closes the view channel. Call it once the polling loop has exited.
func (c *ChannelSurface) Close() { close(c.views) }

// TextSurface writes one plain-text line per view, skipping consecutive duplicates.
type TextSurface struct {
	w    io.Writer
	last string
}

func NewTextSurface(w io.Writer) *TextSurface {
	return &TextSurface{w: w}
}

func (t *TextSurface) Render(v formatter.View) {
	line := formatter.ToText(v)
	if line == t.last {
		return
	}
	t.last = line
	fmt.Fprintln(t.w, line)
}
