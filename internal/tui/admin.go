package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/admin"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/monitor"
)

// DefaultAdminInterval is the admin refresh period.
const DefaultAdminInterval = 10 * time.Second

// refreshMsg reports one poller refresh.
type refreshMsg struct{ err error }

// adminRow is a line of the session table: a session, or one of its
// resources when name is set.
type adminRow struct {
	session api.Session
	kind    api.Kind
	name    string
}

func (r adminRow) isResource() bool { return r.name != "" }

// AdminModel is the bubbletea model for the admin resource browser.
type AdminModel struct {
	ctx       context.Context
	browser   *admin.Browser
	poller    *monitor.Monitor
	refreshed chan error
	confirm   *Confirmer
	spinner   spinner.Model

	history  bool
	cursor   int
	dialog   dialog
	busy     bool
	notice   notice
	lastErr  error
	width    int
	quitting bool
}

// NewAdmin creates the browser view. The poller is created stopped;
// RunAdmin starts it.
func NewAdmin(ctx context.Context, b *admin.Browser, interval time.Duration) AdminModel {
	if interval <= 0 {
		interval = DefaultAdminInterval
	}

	m := AdminModel{
		ctx:       ctx,
		browser:   b,
		refreshed: make(chan error, 1),
		confirm:   NewConfirmer(),
		spinner:   spinner.New(),
	}
	m.poller = monitor.New(interval, monitor.RefreshFunc(m.refresh), monitor.WithName("admin"))
	return m
}

// refresh runs on the poller goroutine and signals the model.
func (m AdminModel) refresh(ctx context.Context) error {
	err := m.browser.Refresh(ctx)
	select {
	case m.refreshed <- err:
	default:
	}
	return err
}

func (m AdminModel) waitRefresh() tea.Cmd {
	return func() tea.Msg {
		select {
		case err := <-m.refreshed:
			return refreshMsg{err: err}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m AdminModel) Init() tea.Cmd {
	return tea.Batch(m.waitRefresh(), m.confirm.wait())
}

func (m AdminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case refreshMsg:
		m.lastErr = msg.err
		m.clamp()
		return m, m.waitRefresh()

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
		m.clamp()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AdminModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
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

	switch key {
	case "q", "esc":
		return m.quit()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.rows())-1 {
			m.cursor++
		}
		return m, nil
	case "tab":
		m.history = !m.history
		m.cursor = 0
		m.notice = notice{}
		return m, nil
	}

	if m.busy {
		return m, nil
	}
	row, ok := m.selected()
	if !ok {
		return m, nil
	}
	id := row.session.ID

	switch key {
	case "enter":
		if row.isResource() {
			return m, nil
		}
		return m.start(func(ctx context.Context) tea.Msg {
			if _, err := m.browser.ToggleExpand(ctx, id); err != nil {
				return actionMsg{notice: errNotice(err)}
			}
			return actionMsg{}
		})

	case "r":
		return m.start(func(ctx context.Context) tea.Msg {
			if _, err := m.browser.RefreshInventory(ctx, id); err != nil {
				return actionMsg{notice: errNotice(err)}
			}
			return actionMsg{notice: infoNotice("Resources reloaded")}
		})

	case "x":
		if !row.isResource() {
			return m, nil
		}
		kind, name := row.kind, row.name
		return m.start(func(ctx context.Context) tea.Msg {
			err := m.browser.DeleteResource(ctx, id, kind, name, m.confirm)
			return adminResult(err, "Deleted %s %s", kind, name)
		})

	case "K":
		return m.start(func(ctx context.Context) tea.Msg {
			err := m.browser.TerminateSession(ctx, id, m.confirm)
			return adminResult(err, "Terminated session %s", id)
		})
	}
	return m, nil
}

func adminResult(err error, format string, args ...any) tea.Msg {
	switch {
	case errors.IsCancelled(err):
		return actionMsg{}
	case err != nil:
		return actionMsg{notice: errNotice(err)}
	}
	return actionMsg{notice: infoNotice(format, args...)}
}

func (m AdminModel) start(fn func(ctx context.Context) tea.Msg) (tea.Model, tea.Cmd) {
	m.busy = true
	m.notice = notice{}
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return fn(ctx) })
}

func (m AdminModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.confirm.Close()
	return m, tea.Quit
}

func (m AdminModel) sessions() []api.Session {
	if m.history {
		return m.browser.History()
	}
	return m.browser.Active()
}

// rows flattens the current tab, listing the resources of open sessions
// under them.
func (m AdminModel) rows() []adminRow {
	var rows []adminRow
	for _, s := range m.sessions() {
		rows = append(rows, adminRow{session: s})
		if !m.browser.Expanded(s.ID) {
			continue
		}
		inv, ok := m.browser.Inventory(s.ID)
		if !ok {
			continue
		}
		for _, kind := range api.Kinds {
			for _, name := range inv.Names(kind) {
				rows = append(rows, adminRow{session: s, kind: kind, name: name})
			}
		}
	}
	return rows
}

func (m AdminModel) selected() (adminRow, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return adminRow{}, false
	}
	return rows[m.cursor], true
}

func (m *AdminModel) clamp() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m AdminModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Lab Admin") + "\n")

	if st := m.browser.Stats(); st != nil {
		sb.WriteString(fmt.Sprintf("Active: %d  Total: %d  Utilization: %.1f%%\n\n",
			st.ActiveSessions, st.TotalSessionsAllTime, st.ClusterUtilizationPct))
	} else {
		sb.WriteString(dimStyle.Render("Loading...") + "\n\n")
	}

	active, history := "Active", "History"
	if m.history {
		history = selectedStyle.Render("[" + history + "]")
	} else {
		active = selectedStyle.Render("[" + active + "]")
	}
	sb.WriteString(active + "  " + history + "\n\n")

	if m.dialog.active() {
		sb.WriteString(m.dialog.View() + "\n")
		return sb.String()
	}

	rows := m.rows()
	if len(rows) == 0 {
		sb.WriteString(dimStyle.Render("No sessions.") + "\n")
	}
	for i, r := range rows {
		line := m.rowView(r)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}

	if m.lastErr != nil {
		sb.WriteString("\n" + errorStyle.Render("Refresh failed: "+m.lastErr.Error()))
	}
	if m.busy {
		sb.WriteString("\n" + m.spinner.View() + " Working...")
	} else if v := m.notice.View(); v != "" {
		sb.WriteString("\n" + v)
	}

	sb.WriteString("\n" + helpStyle.Render("[enter] Expand  [r] Reload  [x] Delete resource  [K] Terminate  [tab] Active/History  [q] Quit"))
	return sb.String()
}

func (m AdminModel) rowView(r adminRow) string {
	if r.isResource() {
		return fmt.Sprintf("    %s/%s", r.kind, r.name)
	}
	s := r.session
	arrow := "▸"
	if m.browser.Expanded(s.ID) {
		arrow = "▾"
	}
	expires := "-"
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.Format("2006-01-02 15:04")
	}
	line := fmt.Sprintf("%s %s  %-12s %-24s %-16s %-10s %s",
		arrow, shortID(s.ID), truncate(s.UserID, 12), truncate(s.LabID, 24),
		truncate(s.SandboxNamespace, 16), s.Status, expires)
	if inv, ok := m.browser.Inventory(s.ID); ok && m.browser.Expanded(s.ID) && inv.Len() == 0 {
		line += "\n      " + dimStyle.Render("(no resources)")
	}
	return line
}

// shortID keeps the first block of a session uuid.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RunAdmin runs the admin browser, polling until the program exits.
func RunAdmin(ctx context.Context, b *admin.Browser, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewAdmin(ctx, b, interval)
	defer m.confirm.Close()

	m.poller.Start(ctx)
	defer m.poller.Stop()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
