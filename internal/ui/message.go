package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/averymorin/tunelist/internal/library"
	"github.com/averymorin/tunelist/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgSyncStarted MsgKind = iota
	MsgProgressUpdate
	MsgLibraryChanged
)

// syncStartedMsg is the constructor for [MsgSyncStarted]
func syncStartedMsg(result *tasks.RefreshResult, stop func(), err error) Msg {
	return Msg{
		kind: MsgSyncStarted,
		data: struct {
			result *tasks.RefreshResult
			stop   func()
			err    error
		}{result, stop, err},
	}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// libraryChangedMsg is the constructor for [MsgLibraryChanged]
func libraryChangedMsg(domain string, state library.State) Msg {
	return Msg{
		kind: MsgLibraryChanged,
		data: struct {
			domain string
			state  library.State
		}{domain, state},
	}
}
