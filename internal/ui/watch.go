package ui

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/averymorin/tunelist/internal/library"
	"github.com/averymorin/tunelist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	LibraryView
	ErrorView
)

// Model represents the watch TUI application state.
//
// One list per library domain; realtime changes stream into the lists via
// the events channel while the user browses.
type Model struct {
	ctx    context.Context
	view   ViewState
	engine tasks.SyncEngine
	slices []*library.Slice

	active int
	lists  []list.Model

	events     chan Msg
	progressCh chan tasks.ProgressUpdate
	progress   tasks.ProgressUpdate
	stop       func()
	unsubs     []func()
	eventCount int

	width  int
	height int
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new watch TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine tasks.SyncEngine, slices ...*library.Slice) *Model {
	return &Model{
		ctx:        ctx,
		view:       LoadingView,
		engine:     engine,
		slices:     slices,
		events:     make(chan Msg, 64),
		progressCh: make(chan tasks.ProgressUpdate, 50),
		lists:      make([]list.Model, len(slices)),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the initial refresh and subscribes to realtime changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startSync(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for i := range m.lists {
			m.lists[i].SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleAppMsg(msg)
	}

	return m.updateActiveList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoadingView:
		title := styles.title.Render("Syncing library...")
		return fmt.Sprintf("%s\n%s\n", title, m.progress.Message)
	case ErrorView:
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress q to quit", m.err))
	case LibraryView:
		return m.renderLibrary()
	default:
		return ""
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.teardown()
		return m, tea.Quit
	case "tab":
		if m.view == LibraryView && len(m.lists) > 1 {
			m.active = (m.active + 1) % len(m.lists)
		}
		return m, nil
	case "r":
		if m.view == LibraryView {
			return m, m.refresh()
		}
		return m, nil
	}

	return m.updateActiveList(msg)
}

func (m *Model) handleAppMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSyncStarted:
		data := msg.data.(struct {
			result *tasks.RefreshResult
			stop   func()
			err    error
		})
		if data.err != nil {
			m.err = data.err
			m.view = ErrorView
			return m, m.waitForEvent()
		}

		m.stop = data.stop
		m.subscribeSlices()
		m.buildLists()
		m.view = LibraryView
		return m, m.waitForEvent()

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForEvent()

	case MsgLibraryChanged:
		data := msg.data.(struct {
			domain string
			state  library.State
		})
		m.eventCount++
		for i, slice := range m.slices {
			if slice.Domain().Name == data.domain {
				m.lists[i].SetItems(stateItems(data.state))
			}
		}
		return m, m.waitForEvent()
	}

	return m, m.waitForEvent()
}

func (m *Model) updateActiveList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != LibraryView || m.active >= len(m.lists) {
		return m, nil
	}

	var cmd tea.Cmd
	m.lists[m.active], cmd = m.lists[m.active].Update(msg)
	return m, cmd
}

// startSync performs the full refresh and opens realtime subscriptions,
// bridging engine progress into the event channel. The progress channel
// stays open for the life of the watch: realtime subscribers keep
// reporting through it until teardown stops the engine, so it is only
// closed after stop has run.
func (m *Model) startSync() tea.Cmd {
	return func() tea.Msg {
		progress := m.progressCh

		go func() {
			for update := range progress {
				m.send(progressUpdateMsg(update))
			}
		}()

		result, err := m.engine.Refresh(m.ctx, progress)

		var stop func()
		if err == nil {
			stop, err = m.engine.Watch(m.ctx, progress)
		}

		return syncStartedMsg(result, stop, err)
	}
}

// refresh re-fetches every domain without touching the live subscriptions.
func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.engine.Refresh(m.ctx, nil); err != nil {
			return progressUpdateMsg(tasks.ProgressUpdate{
				Message: fmt.Sprintf("refresh failed: %v", err),
			})
		}
		return progressUpdateMsg(tasks.ProgressUpdate{Message: "refreshed"})
	}
}

// subscribeSlices forwards every slice state change into the event channel.
func (m *Model) subscribeSlices() {
	for _, slice := range m.slices {
		domain := slice.Domain().Name
		unsub := slice.Subscribe(func(st library.State) {
			m.send(libraryChangedMsg(domain, st))
		})
		m.unsubs = append(m.unsubs, unsub)
	}
}

// send queues msg without blocking; a full queue drops the message, the
// next state change carries the fresh value anyway.
func (m *Model) send(msg Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *Model) buildLists() {
	for i, slice := range m.slices {
		l := list.New(stateItems(slice.State()), list.NewDefaultDelegate(), 0, 0)
		l.Title = fmt.Sprintf("%s library", slice.Domain().Name)
		l.SetSize(m.width-4, m.height-8)
		m.lists[i] = l
	}
}

func (m *Model) teardown() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
	// Safe only after stop: the engine silences its progress reporting
	// before stop returns.
	if m.progressCh != nil {
		close(m.progressCh)
		m.progressCh = nil
	}
}

func (m *Model) renderLibrary() string {
	if m.active >= len(m.lists) {
		return ""
	}

	status := styles.ok.Render(fmt.Sprintf("● live · %d events", m.eventCount))
	if err := m.slices[m.active].Err(); err != "" {
		status = styles.warn.Render(fmt.Sprintf("! %s", err))
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s\n%s", m.lists[m.active].View(), status, helpView)
}

// stateItems converts slice state to sorted list items.
func stateItems(st library.State) []list.Item {
	ids := make([]string, 0, len(st.Entries))
	for id := range st.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]list.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, entryItem{entry: st.Entries[id]})
	}
	return items
}
