package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/injection"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

// Default timings.
const (
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultFitDelay   = 100 * time.Millisecond
	DefaultFrameDelay = 16 * time.Millisecond
)

// Lines the bridge writes into the terminal.
const (
	BannerText     = "Lab Sandbox Terminal"
	ConnectingText = "Connecting to sandbox..."
	ConnectedText  = "Connected!"
	ClosedText     = "Connection closed."
	FailedText     = "WebSocket connection failed."
	NoSessionText  = "No active session. Start a lab to use the terminal."
)

// State is where a bridge is in its lifecycle.
type State int

const (
	Unbound State = iota
	Resolving
	Connecting
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Resolving:
		return "resolving"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Surface is a rendered terminal.
type Surface interface {
	Write(data string)
	Writeln(line string)
	Fit() error
	Focus()
	ScrollToBottom()
	SetTheme(Theme)
	Dispose() error
}

// Conn is one streaming connection to a remote shell. Receive blocks until
// a frame arrives; it returns io.EOF when the peer closed normally.
type Conn interface {
	Send(data string) error
	Receive() (string, error)
	Close() error
}

// Dialer opens shell connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Observer reports size changes of the surface's container.
type Observer interface {
	Observe(onResize func())
	Disconnect()
}

// Options configures a Bridge.
type Options struct {
	// SessionID, when set, is used without consulting Address.
	SessionID string
	// Address yields the navigable address to read sessionId from.
	Address AddressSource
	// ShellURL maps a session id to the shell endpoint.
	ShellURL func(sessionID string) (string, error)
	Dialer   Dialer
	// Channel, when set, delivers injected commands.
	Channel *injection.Channel
	Theme   Theme

	RetryDelay time.Duration
	FitDelay   time.Duration
	FrameDelay time.Duration
}

// link is the live connection of one mount.
type link struct {
	conn      Conn
	closeOnce sync.Once
	closeErr  error
}

func (l *link) close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}

// Bridge binds a Surface to a remote shell.
type Bridge struct {
	opts Options

	// sendMu orders outbound frames. Sends run without mu so a stalled
	// write cannot hold up Unmount or the read loop.
	sendMu sync.Mutex

	mu          sync.Mutex
	gen         uint64
	state       State
	sessionID   string
	theme       Theme
	surface     Surface
	observer    Observer
	link        *link
	cancel      context.CancelFunc
	unsubscribe func()
	retryTimer  *time.Timer
	fitTimer    *time.Timer
	changed     chan struct{}
}

// New creates an unmounted bridge.
func New(opts Options) *Bridge {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.FitDelay <= 0 {
		opts.FitDelay = DefaultFitDelay
	}
	if opts.FrameDelay <= 0 {
		opts.FrameDelay = DefaultFrameDelay
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = DarkTheme
	}
	return &Bridge{
		opts:    opts,
		theme:   opts.Theme,
		changed: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SessionID returns the id the current mount resolved, or "".
func (b *Bridge) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// WaitFor blocks until the bridge reaches one of the given states.
func (b *Bridge) WaitFor(ctx context.Context, states ...State) (State, error) {
	for {
		b.mu.Lock()
		current, changed := b.state, b.changed
		b.mu.Unlock()

		for _, s := range states {
			if current == s {
				return current, nil
			}
		}
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-changed:
		}
	}
}

// setState must be called with b.mu held.
func (b *Bridge) setState(s State) {
	if b.state == s {
		return
	}
	logging.Debug("terminal state", "from", b.state, "to", s, "session", b.sessionID)
	b.state = s
	close(b.changed)
	b.changed = make(chan struct{})
}

// current runs fn under the lock if gen still names the active mount.
func (b *Bridge) current(gen uint64, fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen || b.surface == nil {
		return false
	}
	fn()
	return true
}

// Mount binds the bridge to surface and starts resolving a session. A
// bridge that is already mounted is torn down first. observer may be nil.
func (b *Bridge) Mount(ctx context.Context, surface Surface, observer Observer) error {
	if surface == nil {
		return errors.New("terminal: nil surface")
	}
	if err := b.Unmount(); err != nil {
		logging.Debug("teardown before remount failed", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.surface = surface
	b.observer = observer
	b.cancel = cancel
	b.sessionID = ""

	surface.SetTheme(b.theme)
	surface.Writeln(styled(BannerText, termenv.ANSIGreen))

	if observer != nil {
		observer.Observe(func() { b.scheduleFit(gen) })
	}
	b.fitTimer = time.AfterFunc(b.opts.FitDelay, func() { b.fit(gen) })

	if b.opts.Channel != nil {
		b.unsubscribe = b.opts.Channel.Subscribe(func(cmd string) { b.inject(gen, cmd) })
	}

	b.setState(Resolving)
	b.mu.Unlock()

	b.resolve(ctx, gen)
	return nil
}

// resolve looks up the session id, retrying the address once.
func (b *Bridge) resolve(ctx context.Context, gen uint64) {
	if id := b.lookup(); id != "" {
		b.connect(ctx, gen, id)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	b.retryTimer = time.AfterFunc(b.opts.RetryDelay, func() {
		if id := b.lookup(); id != "" {
			b.connect(ctx, gen, id)
			return
		}
		b.current(gen, func() {
			b.surface.Writeln(styled(NoSessionText, termenv.ANSIYellow))
			b.setState(Closed)
		})
	})
}

func (b *Bridge) lookup() string {
	if b.opts.SessionID != "" {
		return b.opts.SessionID
	}
	if b.opts.Address == nil {
		return ""
	}
	return SessionIDFromAddress(b.opts.Address.Address())
}

// connect dials the shell for id. The dial runs on its own goroutine so
// Mount returns without waiting for the network.
func (b *Bridge) connect(ctx context.Context, gen uint64, id string) {
	ok := b.current(gen, func() {
		b.sessionID = id
		b.setState(Connecting)
		b.surface.Writeln(ConnectingText)
	})
	if !ok {
		return
	}

	if b.opts.ShellURL == nil || b.opts.Dialer == nil {
		b.fail(gen, errors.New("no shell dialer configured"))
		return
	}
	url, err := b.opts.ShellURL(id)
	if err != nil {
		b.fail(gen, err)
		return
	}

	go func() {
		logging.Debug("dialing shell", "session", id, "url", url)
		conn, err := b.opts.Dialer.Dial(ctx, url)
		if err != nil {
			b.fail(gen, err)
			return
		}

		l := &link{conn: conn}
		ok := b.current(gen, func() {
			b.link = l
			b.setState(Connected)
			b.surface.Writeln(styled(ConnectedText, termenv.ANSIGreen))
			if err := b.surface.Fit(); err != nil {
				logging.Debug("fit failed", "error", err)
			}
			b.surface.Focus()
		})
		if !ok {
			_ = l.close()
			return
		}
		b.read(gen, l)
	}()
}

func (b *Bridge) fail(gen uint64, err error) {
	b.current(gen, func() {
		logging.Warn("shell connection failed", "session", b.sessionID, "error", err)
		b.surface.Writeln("\r\n" + styled(FailedText, termenv.ANSIRed))
		b.setState(Closed)
	})
}

// read delivers inbound frames in arrival order until the connection ends.
func (b *Bridge) read(gen uint64, l *link) {
	for {
		data, err := l.conn.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logging.Debug("shell connection ended", "error", err)
			}
			_ = l.close()
			b.current(gen, func() {
				if b.link != l {
					return
				}
				b.surface.Writeln("\r\n" + styled(ClosedText, termenv.ANSIRed))
				b.setState(Closed)
			})
			return
		}

		if !b.current(gen, func() {
			b.surface.Write(data)
			b.surface.ScrollToBottom()
		}) {
			return
		}
	}
}

// Input forwards typed data to the shell. It reports whether the data was
// sent; nothing is sent unless the bridge is connected.
func (b *Bridge) Input(data string) bool {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.Lock()
	l := b.connected()
	b.mu.Unlock()
	return send(l, data)
}

// connected returns the live link, or nil. Call with b.mu held.
func (b *Bridge) connected() *link {
	if b.state != Connected {
		return nil
	}
	return b.link
}

func send(l *link, data string) bool {
	if l == nil {
		return false
	}
	if err := l.conn.Send(data); err != nil {
		logging.Debug("shell send failed", "error", err)
		return false
	}
	return true
}

func (b *Bridge) inject(gen uint64, cmd string) {
	if cmd == "" {
		return
	}
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	var (
		l     *link
		state State
	)
	if !b.current(gen, func() { l, state = b.connected(), b.state }) {
		return
	}
	if !send(l, cmd) {
		logging.Warn("terminal not ready for command", "command", cmd, "state", state)
		return
	}
	b.current(gen, func() {
		b.surface.Focus()
		b.surface.ScrollToBottom()
	})
}

// scheduleFit defers a fit to the next frame. Notifications that arrive
// while a fit is pending are folded into it.
func (b *Bridge) scheduleFit(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen || b.surface == nil || b.fitTimer != nil {
		return
	}
	b.fitTimer = time.AfterFunc(b.opts.FrameDelay, func() { b.fit(gen) })
}

func (b *Bridge) fit(gen uint64) {
	b.current(gen, func() {
		b.fitTimer = nil
		if err := b.surface.Fit(); err != nil {
			logging.Debug("fit failed", "error", err)
		}
	})
}

// SetTheme re-themes the surface. The connection is untouched.
func (b *Bridge) SetTheme(t Theme) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.theme = t
	if b.surface != nil {
		b.surface.SetTheme(t)
	}
}

// Theme returns the active theme.
func (b *Bridge) Theme() Theme {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.theme
}

// Unmount stops observing resize, closes the connection and disposes the
// surface, in that order. Each step runs even if an earlier one fails.
// Pending timers, reads and injections from the old mount become no-ops.
// Calling Unmount on an unmounted bridge does nothing.
func (b *Bridge) Unmount() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return nil
	}

	b.gen++
	if b.cancel != nil {
		b.cancel()
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if b.retryTimer != nil {
		b.retryTimer.Stop()
	}
	if b.fitTimer != nil {
		b.fitTimer.Stop()
	}

	observer, l, surface := b.observer, b.link, b.surface

	var errs []error
	errs = append(errs, guard("disconnect observer", func() error {
		if observer != nil {
			observer.Disconnect()
		}
		return nil
	}))
	errs = append(errs, guard("close connection", func() error {
		if l != nil {
			return l.close()
		}
		return nil
	}))
	errs = append(errs, guard("dispose surface", surface.Dispose))

	b.observer = nil
	b.link = nil
	b.surface = nil
	b.cancel = nil
	b.unsubscribe = nil
	b.retryTimer = nil
	b.fitTimer = nil
	b.sessionID = ""
	b.setState(Unbound)

	return errors.Join(errs...)
}

// guard runs one teardown step, turning a panic into an error.
func guard(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", step, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

func styled(text string, color termenv.Color) string {
	return termenv.ANSI.String(text).Foreground(color).Bold().String()
}
