package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmRequest is a question waiting for the user.
type confirmRequest struct {
	prompt string
	reply  chan bool
}

// confirmMsg delivers a pending question to the model.
type confirmMsg confirmRequest

// Confirmer implements prompt.Confirmer for a running program. Confirm
// blocks the calling goroutine until the model answers the question shown
// in its dialog. After Close every question is declined.
type Confirmer struct {
	asks chan confirmRequest
	done chan struct{}
	once sync.Once
}

// NewConfirmer creates a confirmer with no questions pending.
func NewConfirmer() *Confirmer {
	return &Confirmer{
		asks: make(chan confirmRequest),
		done: make(chan struct{}),
	}
}

// Confirm implements prompt.Confirmer.
func (c *Confirmer) Confirm(prompt string) bool {
	req := confirmRequest{prompt: prompt, reply: make(chan bool, 1)}
	select {
	case c.asks <- req:
	case <-c.done:
		return false
	}
	select {
	case ok := <-req.reply:
		return ok
	case <-c.done:
		return false
	}
}

// Close declines pending and future questions.
func (c *Confirmer) Close() {
	c.once.Do(func() { close(c.done) })
}

// wait returns a command that delivers the next question.
func (c *Confirmer) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case req := <-c.asks:
			return confirmMsg(req)
		case <-c.done:
			return nil
		}
	}
}

// dialog is the confirmation currently on screen.
type dialog struct {
	req *confirmRequest
}

func (d *dialog) open(msg confirmMsg) {
	req := confirmRequest(msg)
	d.req = &req
}

func (d *dialog) active() bool {
	return d.req != nil
}

// answer replies to the open question. Keys other than y, n and esc leave
// it open and report false.
func (d *dialog) answer(key string) bool {
	if d.req == nil {
		return false
	}
	var ok bool
	switch key {
	case "y", "Y":
		ok = true
	case "n", "N", "esc":
	default:
		return false
	}
	d.req.reply <- ok
	d.req = nil
	return true
}

func (d *dialog) View() string {
	if d.req == nil {
		return ""
	}
	return dialogStyle.Render(d.req.prompt + "\n\n" + dimStyle.Render("[y] Yes  [n] No"))
}
