package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/palgatox64/sonusitory/internal/formatter"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgViewRendered MsgKind = iota
	MsgViewsClosed
	MsgNavigated
)

// viewRenderedMsg is the constructor for [MsgViewRendered]
func viewRenderedMsg(v formatter.View) Msg {
	return Msg{kind: MsgViewRendered, data: v}
}

// viewsClosedMsg is the constructor for [MsgViewsClosed]
func viewsClosedMsg() Msg {
	return Msg{kind: MsgViewsClosed}
}

// navigatedMsg is the constructor for [MsgNavigated]
func navigatedMsg(url string, err error) Msg {
	return Msg{
		kind: MsgNavigated,
		data: struct {
			url string
			err error
		}{url, err},
	}
}
