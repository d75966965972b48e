// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/orstudio/internal/config"
	"github.com/jeranaias/orstudio/internal/model"
	"github.com/jeranaias/orstudio/internal/openrouter"
	"github.com/jeranaias/orstudio/internal/request"
	"github.com/jeranaias/orstudio/internal/session"
	"github.com/jeranaias/orstudio/internal/storage"
	"github.com/jeranaias/orstudio/internal/stream"
	"github.com/jeranaias/orstudio/internal/tempfiles"
	"github.com/jeranaias/orstudio/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streamed reply
)

// statusTimeout is how long a transient status message stays visible.
const statusTimeout = 4 * time.Second

// autoSaveCheckInterval is how often the auto-save condition is polled.
const autoSaveCheckInterval = 10 * time.Second

// inputHeight is the height of the input area in rows.
const inputHeight = 3

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures a chat Model.
type Options struct {
	Config  *config.Config
	Client  *openrouter.Client
	Catalog *model.Catalog

	// Store is the conversation store; nil disables persistence.
	Store *storage.Store

	// Registry collects temp files (downloads, saved images) for
	// cleanup at exit.
	Registry *tempfiles.Registry

	// SystemPrompt is the prompt prepended to every turn.
	SystemPrompt string

	// Conversation to resume; nil starts fresh.
	Conversation *model.Conversation
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Collaborators
	cfg        *config.Config
	client     *openrouter.Client
	builder    *request.Builder
	aggregator *stream.Aggregator
	catalog    *model.Catalog
	manager    *session.Manager
	store      *storage.Store
	tmp        *tempfiles.Registry

	// Turn parameters
	params        request.Params
	systemPrompt  string
	showReasoning bool
	generateImage bool

	// Pending image attachment for the next user turn
	attachment     []byte
	attachmentName string

	// Streaming turn state
	state       State
	events      chan tea.Msg
	streamingID string
	stats       *model.Statistics

	// Styling
	theme    *styles.Theme
	renderer *glamour.TermRenderer

	// UI components
	width    int
	height   int
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keys     KeyMap

	// Transient status line
	status      string
	statusIsErr bool
	statusSetAt time.Time

	quitting bool
}

// New creates a chat model.
func New(opts Options) Model {
	conv := opts.Conversation
	if conv == nil {
		conv = model.NewConversationWithModel(opts.Catalog.Default())
	}
	if conv.Model == "" {
		conv.Model = opts.Catalog.Default()
	}
	conv.SystemPrompt = opts.SystemPrompt

	theme := styles.NewTheme(opts.Config.UI.Theme)

	input := textarea.New()
	input.Placeholder = "Ask anything. /help for commands."
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.CharLimit = 0
	// Enter submits; Ctrl+J inserts a newline.
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j", "alt+enter"))
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	return Model{
		cfg:        opts.Config,
		client:     opts.Client,
		builder:    request.NewBuilder(opts.Client.IsConfigured()),
		aggregator: stream.NewAggregator(),
		catalog:    opts.Catalog,
		manager:    session.NewManager(conv),
		store:      opts.Store,
		tmp:        opts.Registry,

		params:        opts.Config.DefaultParams(),
		systemPrompt:  opts.SystemPrompt,
		showReasoning: opts.Config.UI.ShowReasoning,

		theme:    theme,
		input:    input,
		spinner:  spin,
		keys:     DefaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, autoSaveTick())
}

// Conversation returns the active conversation.
func (m Model) Conversation() *model.Conversation {
	return m.manager.Conversation()
}

// autoSaveTick schedules the next auto-save check.
func autoSaveTick() tea.Cmd {
	return tea.Tick(autoSaveCheckInterval, func(time.Time) tea.Msg {
		return AutoSaveTickMsg{}
	})
}

// setStatus records a transient status message and schedules its expiry.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.status = text
	m.statusIsErr = isErr
	m.statusSetAt = time.Now()

	setAt := m.statusSetAt
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return StatusExpiredMsg{SetAt: setAt}
	})
}
