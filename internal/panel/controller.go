// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/codebuddy/internal/cloud"
	"github.com/jeranaias/codebuddy/internal/config"
	"github.com/jeranaias/codebuddy/internal/editor"
	"github.com/jeranaias/codebuddy/internal/prompt"
	"github.com/jeranaias/codebuddy/internal/telemetry"
	"github.com/jeranaias/codebuddy/internal/util"
)

// OutboxSize is the number of outbound messages buffered for the UI.
const OutboxSize = 64

// Panel notices.
const (
	noticeLoading    = "[Info] - Loading configuration..."
	noticeConnecting = "Establishing connection to AOAI. Please wait..."
	noticeConnected  = "[Success] - Connected to Azure successfully and loaded AOAI configuration."
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Session is the part of a cloud session the panel drives.
type Session interface {
	ID() string
	Deployment() string
	TokenCount() int64
	Complete(ctx context.Context, messages []cloud.ChatMessage) (cloud.Completion, error)
}

// Connector establishes sessions for a settings snapshot.
type Connector interface {
	Connect(ctx context.Context, settings config.Settings) (Session, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, settings config.Settings) (Session, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, settings config.Settings) (Session, error) {
	return f(ctx, settings)
}

// CloudConnector adapts a cloud.Connector.
func CloudConnector(c *cloud.Connector) Connector {
	return ConnectorFunc(func(ctx context.Context, settings config.Settings) (Session, error) {
		s, err := c.Connect(ctx, settings)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// UsageRecorder persists per-completion token usage.
type UsageRecorder interface {
	Record(ctx context.Context, r telemetry.Record) error
}

// selectionSetter is implemented by editors that accept pushed selections.
type selectionSetter interface {
	SetSelection(text string)
}

// Options configures a Controller.
type Options struct {
	// Editor provides the selection and receives clicked snippets
	Editor editor.Editor
	// Usage records token usage (optional)
	Usage UsageRecorder
	// SystemPrompt overrides prompt.SystemPrompt
	SystemPrompt string
	// Logger for panel events
	Logger logrus.FieldLogger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// liveSession is the installed session and the connect generation that produced it.
type liveSession struct {
	session Session
	gen     uint64
}

// Controller owns the chat state of one panel. It turns inbound UI events
// into connects and completions and publishes updates on its outbox.
//
// Handle may be called from several goroutines. Settings are replaced
// wholesale and the latest started connect decides the active session.
type Controller struct {
	connector Connector
	editor    editor.Editor
	usage     UsageRecorder
	system    string
	log       logrus.FieldLogger

	settings atomic.Pointer[config.Settings]
	session  atomic.Pointer[liveSession]
	gen      atomic.Uint64
	state    atomic.Int32

	outMu   sync.Mutex
	outbox  chan OutboundMessage
	closed  bool
	dropped atomic.Int64
}

// NewController creates a controller for settings. The loading notice, and
// the missing-settings error when settings are incomplete, are queued on the
// outbox before any UI is attached.
func NewController(settings config.Settings, connector Connector, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	system := opts.SystemPrompt
	if system == "" {
		system = prompt.SystemPrompt
	}

	c := &Controller{
		connector: connector,
		editor:    opts.Editor,
		usage:     opts.Usage,
		system:    system,
		log:       log.WithField("component", "panel"),
		outbox:    make(chan OutboundMessage, OutboxSize),
	}
	c.settings.Store(&settings)

	c.push(AddResponse(prompt.Notice(noticeLoading)))
	if err := settings.Check(); err != nil {
		c.push(AddResponse(prompt.ErrorBlock(err.Error())))
	}
	return c
}

// Outbox returns the channel of UI updates. It is closed by Shutdown.
func (c *Controller) Outbox() <-chan OutboundMessage {
	return c.outbox
}

// State returns the current chat state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Settings returns the active settings snapshot.
func (c *Controller) Settings() config.Settings {
	return *c.settings.Load()
}

// TokenCount returns the active session's token count, or 0 without a session.
func (c *Controller) TokenCount() int64 {
	if s := c.current(); s != nil {
		return s.TokenCount()
	}
	return 0
}

// Connected reports whether a session is installed.
func (c *Controller) Connected() bool {
	return c.current() != nil
}

// Dropped returns how many outbound messages were discarded on overflow.
func (c *Controller) Dropped() int64 {
	return c.dropped.Load()
}

// Shutdown closes the outbox. Later updates are discarded.
func (c *Controller) Shutdown() error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
	return nil
}

// =============================================================================
// INBOUND EVENTS
// =============================================================================

// Handle dispatches one UI event. Chat failures are rendered in the panel
// and also returned.
func (c *Controller) Handle(ctx context.Context, msg InboundMessage) error {
	switch msg.Type {
	case TypePrompt:
		return c.RunChat(ctx, msg.Value)
	case TypeCommand:
		return c.RunCommand(ctx, msg.Value)
	case TypeCodeSelected:
		return c.codeSelected(msg.Value)
	case TypeSelectionChanged:
		if s, ok := c.editor.(selectionSetter); ok {
			s.SetSelection(msg.Value)
		}
		return nil
	case TypeClear:
		c.push(ClearResponse())
		return nil
	default:
		c.log.WithField("type", msg.Type).Debug("ignoring panel message")
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// codeSelected inserts a clicked code block when paste-on-click is enabled.
func (c *Controller) codeSelected(code string) error {
	if !c.Settings().PasteOnClick || code == "" {
		return nil
	}
	if c.editor == nil {
		return editor.ErrNoTarget
	}
	if err := c.editor.Insert(code); err != nil {
		c.log.WithError(err).Warn("could not insert snippet")
		return err
	}
	return nil
}

// RunCommand runs the prompt prefix bound to cmd against the current selection.
func (c *Controller) RunCommand(ctx context.Context, cmd string) error {
	prefix, ok := c.Settings().PromptPrefix(cmd)
	if !ok {
		err := fmt.Errorf("%w: no prompt prefix configured for command %q", cloud.ErrConfiguration, cmd)
		c.fail(err)
		return err
	}
	return c.RunChat(ctx, prefix)
}

// RunChat asks question about the current selection and displays the reply.
// A session is connected first when none is active.
func (c *Controller) RunChat(ctx context.Context, question string) error {
	if question == "" {
		return nil
	}

	session := c.current()
	if session == nil {
		c.setState(StateAwaitingConnection)
		s, err := c.connect(ctx)
		if err != nil {
			err = fmt.Errorf("%w: %w", cloud.ErrNoActiveSession, err)
			c.fail(err)
			return err
		}
		session = s
	}

	settings := c.Settings()
	var selection string
	if c.editor != nil {
		selection, _ = c.editor.Selection()
	}
	messages := prompt.Compose(c.system, question, selection, settings.SelectionInCodeBlock)

	c.log.WithFields(logrus.Fields{
		"session":   session.ID(),
		"question":  util.TruncateRunes(question, 80),
		"selection": len(selection),
	}).Debug("requesting completion")

	c.setState(StateAwaitingCompletion)
	c.push(SetPrompt(question))
	c.push(AddResponse(prompt.Placeholder))

	completion, err := session.Complete(ctx, messages)
	if err != nil {
		c.fail(err)
		return err
	}

	c.setState(StateDisplaying)
	c.display(prompt.EnsureCodeBlocks(completion.Content))
	c.recordUsage(ctx, session, completion)
	c.setState(StateIdle)
	return nil
}

// SetSettings replaces the settings and reconnects. On failure the error is
// rendered and the previous session, if any, stays active.
func (c *Controller) SetSettings(ctx context.Context, settings config.Settings) error {
	c.settings.Store(&settings)
	if err := settings.Check(); err != nil {
		err = fmt.Errorf("%w: %w", cloud.ErrConfiguration, err)
		c.fail(err)
		return err
	}

	c.setState(StateAwaitingConnection)
	c.push(SetPrompt(noticeConnecting))
	if _, err := c.connect(ctx); err != nil {
		c.fail(err)
		return err
	}
	c.push(SetPrompt(""))
	c.display(prompt.Notice(noticeConnected))
	c.setState(StateIdle)
	return nil
}

// Reconnect reconnects with the current settings.
func (c *Controller) Reconnect(ctx context.Context) error {
	return c.SetSettings(ctx, c.Settings())
}

// WatchSettings applies every snapshot from changes until ctx is done or
// changes is closed.
func (c *Controller) WatchSettings(ctx context.Context, changes <-chan config.Settings) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-changes:
			if !ok {
				return
			}
			_ = c.SetSettings(ctx, s)
		}
	}
}

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

func (c *Controller) current() Session {
	if live := c.session.Load(); live != nil {
		return live.session
	}
	return nil
}

// connect runs a connect and installs its session unless a later connect
// has already installed one. It returns the session that is active afterwards.
func (c *Controller) connect(ctx context.Context) (Session, error) {
	if c.connector == nil {
		return nil, fmt.Errorf("%w: no connector", cloud.ErrConfiguration)
	}
	gen := c.gen.Add(1)
	session, err := c.connector.Connect(ctx, c.Settings())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New("connector returned no session")
	}

	next := &liveSession{session: session, gen: gen}
	for {
		cur := c.session.Load()
		if cur != nil && cur.gen > gen {
			c.log.WithField("session", session.ID()).Debug("discarding stale connect")
			return cur.session, nil
		}
		if c.session.CompareAndSwap(cur, next) {
			return session, nil
		}
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// display replaces the answer pane and refreshes the token counter.
func (c *Controller) display(text string) {
	c.push(AddResponse(text))
	c.push(SetTokenCount(c.TokenCount()))
}

func (c *Controller) fail(err error) {
	c.log.WithError(err).Error("panel request failed")
	c.setState(StateError)
	c.display(prompt.ErrorBlock(err.Error()))
}

func (c *Controller) recordUsage(ctx context.Context, s Session, completion cloud.Completion) {
	if c.usage == nil {
		return
	}
	err := c.usage.Record(ctx, telemetry.Record{
		SessionID:        s.ID(),
		Deployment:       s.Deployment(),
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		TotalTokens:      completion.TotalTokens,
		Duration:         completion.Duration,
		CreatedAt:        time.Now(),
	})
	if err != nil {
		c.log.WithError(err).Warn("could not record usage")
	}
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// push queues msg without blocking. When the outbox is full the oldest
// message is dropped.
func (c *Controller) push(msg OutboundMessage) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.outbox <- msg:
			return
		default:
		}
		select {
		case <-c.outbox:
			c.dropped.Add(1)
		default:
		}
	}
}
