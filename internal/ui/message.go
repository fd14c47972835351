package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/queue"
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
	MsgSnapshotRefreshed MsgKind = iota
	MsgActionDone
	MsgTick
)

// snapshotRefreshedMsg is the constructor for [MsgSnapshotRefreshed]
func snapshotRefreshedMsg(snap queue.Snapshot) Msg {
	return Msg{kind: MsgSnapshotRefreshed, data: snap}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(err error) Msg {
	return Msg{kind: MsgActionDone, data: err}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
