package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/queue"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QueueView ViewState = iota
	ConfirmSkipView
)

const refreshInterval = time.Second

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	engine   *queue.Engine
	session  *queue.Session
	channel  *playback.Channel
	width    int
	height   int
	snap     queue.Snapshot
	upcoming list.Model
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates the TUI model over a running engine and playback channel.
func NewModel(ctx context.Context, engine *queue.Engine, session *queue.Session, channel *playback.Channel) Model {
	upcoming := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	upcoming.Title = "Up next"
	upcoming.SetShowHelp(false)
	upcoming.SetFilteringEnabled(false)
	upcoming.SetShowStatusBar(false)

	return Model{
		ctx:      ctx,
		view:     QueueView,
		engine:   engine,
		session:  session,
		channel:  channel,
		upcoming: upcoming,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.tickCmd())
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return snapshotRefreshedMsg(m.engine.Snapshot())
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg()
	})
}

func (m Model) skipCmd(confirmed bool) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg(m.engine.Skip(m.ctx, confirmed))
	}
}

func (m Model) controlCmd(control func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg(control(m.ctx))
	}
}

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.upcoming.SetSize(msg.Width-4, max(msg.Height-14, 4))
		return m, nil

	case Msg:
		return m.updateMsg(msg)

	case tea.KeyMsg:
		if m.view == ConfirmSkipView {
			return m.updateConfirmKeys(msg)
		}
		return m.updateQueueKeys(msg)
	}

	return m, nil
}

func (m Model) updateMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshotRefreshed:
		m.snap = msg.data.(queue.Snapshot)
		items := make([]list.Item, len(m.snap.Upcoming))
		for i, item := range m.snap.Upcoming {
			items[i] = upcomingItem{item: item}
		}
		m.upcoming.SetItems(items)
		return m, nil

	case MsgActionDone:
		if err, ok := msg.data.(error); ok && err != nil {
			m.err = err
		} else {
			m.err = nil
		}
		m.view = QueueView
		return m, m.refreshCmd()

	case MsgTick:
		return m, tea.Batch(m.refreshCmd(), m.tickCmd())
	}

	return m, nil
}

func (m Model) updateQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.skip):
		if m.snap.Playing && m.snap.Source == models.SourceRequest {
			m.view = ConfirmSkipView
			return m, nil
		}
		return m, m.skipCmd(false)

	case key.Matches(msg, m.keys.shuffle):
		m.engine.ShuffleRemaining()
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.pause):
		return m, m.controlCmd(m.channel.Pause)

	case key.Matches(msg, m.keys.resume):
		return m, m.controlCmd(m.channel.Resume)
	}

	var cmd tea.Cmd
	m.upcoming, cmd = m.upcoming.Update(msg)
	return m, cmd
}

func (m Model) updateConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		return m, m.skipCmd(true)

	case key.Matches(msg, m.keys.no):
		m.view = QueueView
		return m, nil

	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current view.
func (m Model) View() string {
	if m.view == ConfirmSkipView {
		return m.viewConfirm()
	}
	return m.viewQueue()
}

func (m Model) viewQueue() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Jukebox"))
	b.WriteString("\n")

	if m.snap.Playing {
		title := m.engine.NowPlayingTitle()
		line := fmt.Sprintf("▶ %s", title)
		if m.snap.NowPlaying.ChannelTitle != "" {
			line = fmt.Sprintf("%s — %s", line, m.snap.NowPlaying.ChannelTitle)
		}
		b.WriteString(styles.ok.Render(line))
		if m.snap.Source == models.SourceRequest {
			b.WriteString(styles.warn.Render("  (requested)"))
		}
	} else {
		b.WriteString(styles.help.Render("nothing playing"))
	}
	b.WriteString("\n")

	if m.session != nil && m.session.Mode() == queue.ModeCoin {
		b.WriteString(styles.help.Render(fmt.Sprintf("credits: %d", m.session.Credits())))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.snap.Requests) > 0 {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Requests (%d)", len(m.snap.Requests))))
		b.WriteString("\n")
		for i, req := range m.snap.Requests {
			if i >= 5 {
				b.WriteString(styles.help.Render(fmt.Sprintf("  … and %d more", len(m.snap.Requests)-5)))
				b.WriteString("\n")
				break
			}
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, requestItem{request: req}.Title()))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.upcoming.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) viewConfirm() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Skip request?"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s was requested by a user.\n\n", m.engine.NowPlayingTitle()))
	b.WriteString(styles.warn.Render("Skip it anyway? (y/n)"))
	return b.String()
}

// Run starts the TUI event loop and blocks until the user quits.
func Run(ctx context.Context, engine *queue.Engine, session *queue.Session, channel *playback.Channel) error {
	program := tea.NewProgram(NewModel(ctx, engine, session, channel), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}
