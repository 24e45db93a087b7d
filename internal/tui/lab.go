package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/injection"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/lab"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/manifest"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/monitor"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/system"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/terminal"
)

// focusArea is the part of the workspace receiving keys.
type focusArea int

const (
	focusSteps focusArea = iota
	focusEditor
	focusTerminal
)

// LabOptions wires a lab workspace. Controller must hold a loaded lab.
// Bridge and Channel must be the pair given to terminal.New; the other
// fields default when nil.
type LabOptions struct {
	Controller *lab.Controller
	Workbench  *manifest.Workbench
	Bridge     *terminal.Bridge
	Channel    *injection.Channel
	Opener     *system.Opener
	Pane       *Pane
	Observer   *terminal.ManualObserver
	Confirmer  *Confirmer

	// Watch, when set, is checked every WatchInterval while the workspace
	// runs. An ended session makes the workspace read-only.
	Watch         *lab.Watch
	WatchInterval time.Duration
}

// LabResult reports how the workspace was left.
type LabResult struct {
	Outcome lab.Outcome
}

// Async results.
type (
	actionMsg struct{ notice notice }
	nextMsg   struct {
		completed bool
		err       error
	}
	finishMsg  struct{ err error }
	sessionMsg struct {
		state lab.SessionState
		err   error
	}
)

// LabModel is the bubbletea model for the lab workspace.
type LabModel struct {
	ctx      context.Context
	ctrl     *lab.Controller
	bench    *manifest.Workbench
	bridge   *terminal.Bridge
	channel  *injection.Channel
	opener   *system.Opener
	pane     *Pane
	observer *terminal.ManualObserver
	confirm  *Confirmer
	watcher  *monitor.Monitor
	watched  chan sessionMsg

	editor   textarea.Model
	terminal viewport.Model
	spinner  spinner.Model

	rendered lab.Rendered
	focus    focusArea
	dialog   dialog
	ending   bool
	busy     bool
	inert    bool
	session  lab.SessionState
	notice   notice
	width    int
	height   int
	quitting bool
	result   LabResult
}

// NewLab creates the workspace for a loaded lab.
func NewLab(ctx context.Context, opts LabOptions) LabModel {
	if opts.Pane == nil {
		opts.Pane = NewPane()
	}
	if opts.Observer == nil {
		opts.Observer = &terminal.ManualObserver{}
	}
	if opts.Confirmer == nil {
		opts.Confirmer = NewConfirmer()
	}
	if opts.Channel == nil {
		opts.Channel = injection.NewChannel()
	}

	ed := textarea.New()
	ed.Placeholder = "Manifest YAML"
	ed.ShowLineNumbers = true
	ed.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := LabModel{
		ctx:      ctx,
		ctrl:     opts.Controller,
		bench:    opts.Workbench,
		bridge:   opts.Bridge,
		channel:  opts.Channel,
		opener:   opts.Opener,
		pane:     opts.Pane,
		observer: opts.Observer,
		confirm:  opts.Confirmer,
		editor:   ed,
		terminal: viewport.New(80, 10),
		spinner:  sp,
	}
	if opts.Watch != nil {
		interval := opts.WatchInterval
		if interval <= 0 {
			interval = lab.DefaultWatchInterval
		}
		m.watched = make(chan sessionMsg, 1)
		m.watcher = monitor.New(interval, watchSession(opts.Watch, m.watched), monitor.WithName("session"))
	}
	m.stepChanged()
	return m
}

// watchSession runs on the monitor goroutine. The channel holds only the
// latest result.
func watchSession(w *lab.Watch, out chan sessionMsg) monitor.RefreshFunc {
	return func(ctx context.Context) error {
		st, err := w.Check(ctx)
		select {
		case <-out:
		default:
		}
		select {
		case out <- sessionMsg{state: st, err: err}:
		default:
		}
		return err
	}
}

func (m LabModel) waitSession() tea.Cmd {
	if m.watched == nil {
		return nil
	}
	ch, done := m.watched, m.ctx.Done()
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-done:
			return nil
		}
	}
}

// stopWatch stops polling off the update loop, since Stop waits for an
// in-flight check.
func (m LabModel) stopWatch() tea.Cmd {
	w := m.watcher
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		w.Stop()
		return nil
	}
}

func (m LabModel) Init() tea.Cmd {
	return tea.Batch(m.pane.wait(), m.confirm.wait(), m.waitSession())
}

// stepChanged reloads the per-step view state from the controller.
func (m *LabModel) stepChanged() {
	m.rendered = lab.Render(m.ctrl.Step())
	m.editor.SetValue(m.ctrl.Draft())
}

func (m LabModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		m.observer.Notify()
		return m, nil

	case paneMsg:
		m.syncTerminal()
		return m, m.pane.wait()

	case confirmMsg:
		m.dialog.open(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionMsg:
		m.busy = false
		m.notice = msg.notice
		return m, nil

	case nextMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = errNotice(msg.err)
			return m, nil
		}
		if msg.completed {
			return m.quit()
		}
		m.stepChanged()
		return m, nil

	case sessionMsg:
		if msg.err != nil {
			return m, m.waitSession()
		}
		m.session = msg.state
		if msg.state.Ended() {
			m.inert = true
			m.ending = false
			m.notice = notice{text: fmt.Sprintf("Session %s; the lab is read-only now", msg.state.Status), err: true}
			return m, m.stopWatch()
		}
		return m, m.waitSession()

	case finishMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = errNotice(msg.err)
			return m, nil
		}
		return m.quit()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m LabModel) quit() (tea.Model, tea.Cmd) {
	m.result = LabResult{Outcome: m.ctrl.Outcome()}
	if m.inert && m.result.Outcome == lab.Continuing {
		m.result.Outcome = lab.Ended
	}
	m.quitting = true
	m.confirm.Close()
	return m, tea.Quit
}

func (m LabModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}

	if m.dialog.active() {
		if m.dialog.answer(key) {
			return m, m.confirm.wait()
		}
		return m, nil
	}
	if m.ending {
		return m.handleEndKey(key)
	}

	switch m.focus {
	case focusTerminal:
		if key == "esc" {
			m.focus = focusSteps
			m.pane.Blur()
			return m, nil
		}
		if data := keyInput(msg); data != "" && !m.sendInput(data) {
			m.notice = notice{text: "terminal is not connected", err: true}
		}
		return m, nil

	case focusEditor:
		if key == "esc" {
			m.ctrl.SetDraft(m.editor.Value())
			m.editor.Blur()
			m.focus = focusSteps
			return m, nil
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		m.ctrl.SetDraft(m.editor.Value())
		return m, cmd
	}

	if m.busy {
		return m, nil
	}
	if m.inert && m.blockedWhenEnded(key) {
		if key == "q" {
			return m.quit()
		}
		m.notice = notice{text: "the session has ended", err: true}
		return m, nil
	}

	switch key {
	case "n", "right":
		if !m.ctrl.IsLast() {
			m.notice = notice{}
			if _, err := m.ctrl.Next(m.ctx); err != nil {
				m.notice = errNotice(err)
			}
			m.stepChanged()
			return m, nil
		}
		return m.start(func(ctx context.Context) tea.Msg {
			completed, err := m.ctrl.Next(ctx)
			return nextMsg{completed: completed, err: err}
		})

	case "p", "left":
		m.ctrl.Previous()
		m.stepChanged()
		m.notice = notice{}
		return m, nil

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n, _ := strconv.Atoi(key)
		return m.activate(n)

	case "a":
		draft, ok := m.manifestDraft()
		if !ok {
			return m, nil
		}
		return m.start(func(ctx context.Context) tea.Msg {
			res, err := m.bench.Apply(ctx, m.ctrl.SessionID(), draft)
			return resultNotice("Manifest applied", res, err)
		})

	case "D":
		draft, ok := m.manifestDraft()
		if !ok {
			return m, nil
		}
		return m.start(func(ctx context.Context) tea.Msg {
			res, err := m.bench.Delete(ctx, m.ctrl.SessionID(), draft, m.confirm)
			return resultNotice("Manifest deleted", res, err)
		})

	case "t":
		if !m.ctrl.Hints().ShowShell || m.bridge == nil {
			m.notice = notice{text: "this lab has no terminal", err: true}
			return m, nil
		}
		m.focus = focusTerminal
		m.pane.Focus()
		return m, nil

	case "e":
		if !m.ctrl.Hints().ShowEditor {
			m.notice = notice{text: "this lab has no manifest editor", err: true}
			return m, nil
		}
		m.focus = focusEditor
		cmd := m.editor.Focus()
		return m, cmd

	case "T":
		if m.bridge != nil {
			m.bridge.SetTheme(m.bridge.Theme().Toggle())
		} else {
			m.pane.SetTheme(m.pane.Theme().Toggle())
		}
		return m, nil

	case "q":
		m.ending = true
		return m, nil
	}

	return m, nil
}

func (m LabModel) handleEndKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "f":
		m.ending = false
		return m.start(func(ctx context.Context) tea.Msg {
			return finishMsg{err: m.ctrl.FinishAndExit(ctx)}
		})
	case "x":
		m.ending = false
		return m.start(func(ctx context.Context) tea.Msg {
			return finishMsg{err: m.ctrl.TerminateOnly(ctx)}
		})
	case "c", "esc":
		m.ending = false
	}
	return m, nil
}

// blockedWhenEnded reports whether key needs a live session. Reading the
// steps and opening completion links still work.
func (m LabModel) blockedWhenEnded(key string) bool {
	switch key {
	case "a", "D", "q":
		return true
	case "n", "right":
		return m.ctrl.IsLast()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		step := m.ctrl.Step()
		return step == nil || !step.IsCompletion()
	}
	return false
}

// manifestDraft returns the draft when apply and delete are allowed. A
// hidden editor or a draft that does not parse blocks both, with a notice.
func (m *LabModel) manifestDraft() (string, bool) {
	if !m.ctrl.Hints().ShowEditor {
		m.notice = notice{text: "this lab has no manifest editor", err: true}
		return "", false
	}
	draft := m.ctrl.Draft()
	if _, err := manifest.Parse(draft); err != nil {
		m.notice = errNotice(err)
		return "", false
	}
	return draft, true
}

// start runs fn off the update loop and shows the spinner until it
// reports back.
func (m LabModel) start(fn func(ctx context.Context) tea.Msg) (tea.Model, tea.Cmd) {
	m.busy = true
	m.notice = notice{}
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return fn(ctx) })
}

func resultNotice(done string, res *api.ActionResult, err error) tea.Msg {
	switch {
	case errors.IsCancelled(err):
		return actionMsg{}
	case err != nil:
		return actionMsg{notice: errNotice(err)}
	case res != nil && res.Message != "":
		return actionMsg{notice: infoNotice("%s", res.Message)}
	default:
		return actionMsg{notice: infoNotice("%s", done)}
	}
}

// activate runs affordance n: a command on ordinary steps, a resource
// link on the completion step.
func (m LabModel) activate(n int) (tea.Model, tea.Cmd) {
	step := m.ctrl.Step()
	if step == nil {
		return m, nil
	}

	if step.IsCompletion() {
		l := m.ctrl.Lab()
		if l.Completion == nil || n > len(l.Completion.Resources) || m.opener == nil {
			return m, nil
		}
		res := l.Completion.Resources[n-1]
		return m.start(func(ctx context.Context) tea.Msg {
			if err := m.opener.Open(ctx, res.URL); err != nil {
				return actionMsg{notice: errNotice(err)}
			}
			return actionMsg{notice: infoNotice("Opened %s", res.Title)}
		})
	}

	cmd, ok := m.rendered.Command(n)
	if !ok {
		return m, nil
	}
	if m.bridge == nil || m.bridge.State() != terminal.Connected {
		m.notice = notice{text: "terminal not ready; command not sent", err: true}
		return m, nil
	}
	m.channel.Publish(cmd)
	m.notice = infoNotice("Sent to terminal: %s", cmd)
	return m, nil
}

func (m LabModel) sendInput(data string) bool {
	if m.bridge == nil {
		return false
	}
	return m.bridge.Input(data)
}

// keyInput maps a key press to the bytes a terminal would send.
func keyInput(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyRunes:
		return string(msg.Runes)
	case tea.KeySpace:
		return " "
	case tea.KeyEnter:
		return "\r"
	case tea.KeyBackspace:
		return "\x7f"
	case tea.KeyTab:
		return "\t"
	case tea.KeyCtrlD:
		return "\x04"
	case tea.KeyCtrlL:
		return "\x0c"
	case tea.KeyCtrlU:
		return "\x15"
	case tea.KeyCtrlW:
		return "\x17"
	case tea.KeyUp:
		return "\x1b[A"
	case tea.KeyDown:
		return "\x1b[B"
	case tea.KeyRight:
		return "\x1b[C"
	case tea.KeyLeft:
		return "\x1b[D"
	}
	return ""
}

func (m *LabModel) layout(width, height int) {
	m.width = width
	m.height = height

	right := width - width/2 - 4
	if right < 20 {
		right = 20
	}
	bodyHeight := height - 8
	if bodyHeight < 6 {
		bodyHeight = 6
	}

	termHeight := bodyHeight
	if m.ctrl.Hints().ShowEditor {
		edHeight := bodyHeight / 2
		m.editor.SetWidth(right)
		m.editor.SetHeight(edHeight)
		termHeight = bodyHeight - edHeight - 2
	}
	m.terminal.Width = right
	m.terminal.Height = termHeight
	m.syncTerminal()
}

func (m *LabModel) syncTerminal() {
	m.terminal.SetContent(m.pane.Content())
	if m.pane.takeFollow() {
		m.terminal.GotoBottom()
	}
}

func (m LabModel) View() string {
	if m.quitting {
		return ""
	}

	l := m.ctrl.Lab()
	if l == nil {
		return errorStyle.Render("No lab loaded.")
	}

	steps := m.ctrl.Steps()
	header := titleStyle.Render(fmt.Sprintf("%s  (step %d/%d)", l.Title, m.ctrl.Index()+1, len(steps)))

	if m.dialog.active() {
		return header + "\n" + m.dialog.View()
	}
	if m.ending {
		return header + "\n" + dialogStyle.Render("End this lab?\n\n"+
			dimStyle.Render("[f] Finish & exit  [x] End without completing  [c] Cancel"))
	}

	leftWidth := m.width / 2
	if leftWidth < 30 {
		leftWidth = 30
	}
	left := lipgloss.NewStyle().Width(leftWidth).Render(m.stepList() + "\n" + m.instructions())

	var right []string
	hints := m.ctrl.Hints()
	if hints.ShowEditor {
		right = append(right, m.paneBox(m.editorTitle(), m.editor.View(), m.focus == focusEditor))
	}
	if hints.ShowShell {
		right = append(right, m.terminalBox())
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.JoinVertical(lipgloss.Left, right...))

	var footer []string
	if hints.RequiresExternalUI {
		footer = append(footer, dimStyle.Render("This lab also uses an external web UI."))
	}
	if v := m.sessionLine(); v != "" {
		footer = append(footer, v)
	}
	if m.busy {
		footer = append(footer, m.spinner.View()+" Working...")
	} else if v := m.notice.View(); v != "" {
		footer = append(footer, v)
	}
	footer = append(footer, helpStyle.Render(m.help()))

	return header + "\n" + body + "\n" + strings.Join(footer, "\n")
}

// sessionLine reports an ended session or one close to expiry.
func (m LabModel) sessionLine() string {
	switch {
	case m.inert:
		return errorStyle.Render(fmt.Sprintf("Session %s. Press q to leave.", m.session.Status))
	case !m.session.Expiring():
		return ""
	case m.session.Remaining < time.Minute:
		return warnStyle.Render("⚠ Session expires in under a minute")
	default:
		return warnStyle.Render(fmt.Sprintf("⚠ Session expires in %dm", int(m.session.Remaining.Minutes())))
	}
}

func (m LabModel) help() string {
	if m.inert {
		return "[n/p] Next/Prev  [q] Leave"
	}
	switch m.focus {
	case focusTerminal:
		return "[esc] Leave terminal"
	case focusEditor:
		return "[esc] Leave editor"
	}

	keys := []string{"[n/p] Next/Prev", "[1-9] Run"}
	hints := m.ctrl.Hints()
	if hints.ShowEditor {
		if manifest.IsValid(m.ctrl.Draft()) {
			keys = append(keys, "[a] Apply", "[D] Delete")
		}
		keys = append(keys, "[e] Editor")
	}
	if hints.ShowShell {
		if m.bridge != nil {
			keys = append(keys, "[t] Terminal")
		}
		keys = append(keys, "[T] Theme")
	}
	return strings.Join(append(keys, "[q] End"), "  ")
}

func (m LabModel) editorTitle() string {
	draft := m.editor.Value()
	switch {
	case strings.TrimSpace(draft) == "":
		return "Manifest"
	case manifest.IsValid(draft):
		return "Manifest (valid)"
	default:
		return "Manifest (invalid YAML)"
	}
}

func (m LabModel) paneBox(title, content string, focused bool) string {
	style := paneStyle
	if focused {
		style = focusedPaneStyle
	}
	return style.Render(dimStyle.Render(title) + "\n" + content)
}

// terminalBox draws the pane in the palette the bridge last applied.
func (m LabModel) terminalBox() string {
	theme := m.pane.Theme()
	title := "Terminal"
	if m.bridge != nil {
		title += " (" + m.bridge.State().String() + ")"
	}
	title += " · " + theme.Name

	body := lipgloss.NewStyle().
		Background(lipgloss.Color(theme.Background)).
		Foreground(lipgloss.Color(theme.Foreground)).
		Width(m.terminal.Width).
		Render(m.terminal.View())
	return m.paneBox(title, body, m.focus == focusTerminal)
}

func (m LabModel) stepList() string {
	var sb strings.Builder
	steps := m.ctrl.Steps()
	cur := m.ctrl.Index()
	for i := range steps {
		marker := "  "
		line := steps[i].DisplayTitle(i)
		if i == cur {
			marker = "▸ "
			line = selectedStyle.Render(line)
		} else if i < cur {
			line = dimStyle.Render(line)
		}
		sb.WriteString(marker + line + "\n")
	}
	return sb.String()
}

func (m LabModel) instructions() string {
	step := m.ctrl.Step()
	if step == nil {
		return ""
	}
	if step.IsCompletion() {
		return m.completion()
	}

	var sb strings.Builder
	for _, seg := range m.rendered.Segments {
		if seg.Kind == lab.CommandSegment {
			sb.WriteString(commandStyle.Render(fmt.Sprintf("[%d] %s", seg.N, seg.Text)))
			continue
		}
		sb.WriteString(seg.Text)
	}
	if step.Verification != "" {
		sb.WriteString("\n\n" + dimStyle.Render("Verify: "+step.Verification))
	}
	return sb.String()
}

func (m LabModel) completion() string {
	l := m.ctrl.Lab()
	if l == nil || l.Completion == nil {
		return ""
	}
	c := l.Completion

	var sb strings.Builder
	sb.WriteString(successStyle.Render(lab.CompletionTitle) + "\n\n")
	if c.Summary != "" {
		sb.WriteString(c.Summary + "\n\n")
	}
	if len(c.NextSteps) > 0 {
		sb.WriteString("Next steps:\n")
		for _, s := range c.NextSteps {
			sb.WriteString("  • " + s + "\n")
		}
		sb.WriteString("\n")
	}
	for i, r := range c.Resources {
		if i >= 9 {
			break
		}
		sb.WriteString(commandStyle.Render(fmt.Sprintf("[%d] %s", i+1, r.Title)) + " " + dimStyle.Render(r.URL) + "\n")
	}
	return sb.String()
}

// Result returns how the workspace was left.
func (m LabModel) Result() LabResult {
	return m.result
}

// RunLab mounts the terminal, starts the session watch, runs the workspace
// and stops both when the program exits.
func RunLab(ctx context.Context, opts LabOptions) (LabResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewLab(ctx, opts)
	defer m.confirm.Close()

	if m.watcher != nil {
		m.watcher.Start(ctx)
		defer m.watcher.Stop()
	}

	if m.bridge != nil && m.ctrl.Hints().ShowShell {
		if err := m.bridge.Mount(ctx, m.pane, m.observer); err != nil {
			return LabResult{}, err
		}
		defer func() { _ = m.bridge.Unmount() }()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return LabResult{}, err
	}
	return finalModel.(LabModel).Result(), nil
}
