package lab

import (
	"context"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/progress"
)

// CompletionTitle is the title of the synthesized completion step.
const CompletionTitle = "Lab Complete!"

// Service is the slice of the API the controller calls.
type Service interface {
	GetLab(ctx context.Context, id string) (*api.Lab, error)
	CompleteSession(ctx context.Context, id string) error
	TerminateSession(ctx context.Context, id string) error
}

// Outcome describes how a lab ended.
type Outcome int

const (
	// Continuing means the lab has not ended.
	Continuing Outcome = iota
	// Completed means the lab was marked complete.
	Completed
	// Ended means the session was terminated without completion.
	Ended
)

// Controller is the step cursor for one lab in one session.
type Controller struct {
	svc           Service
	sessionID     string
	store         progress.Store
	audit         audit.Sink
	endOnComplete bool

	mu      sync.Mutex
	lab     *api.Lab
	index   int
	draft   string
	outcome Outcome
}

// Option configures a Controller.
type Option func(*Controller)

// WithProgress records finished labs in store.
func WithProgress(store progress.Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithAudit records session actions to sink.
func WithAudit(sink audit.Sink) Option {
	return func(c *Controller) {
		c.audit = sink
	}
}

// WithEndSessionOnComplete controls whether completing the lab from the
// last step also terminates the session. It defaults to true.
func WithEndSessionOnComplete(end bool) Option {
	return func(c *Controller) {
		c.endOnComplete = end
	}
}

// NewController creates a controller for sessionID. sessionID may be empty,
// in which case the lab can be read but not finished.
func NewController(svc Service, sessionID string, opts ...Option) *Controller {
	c := &Controller{
		svc:           svc,
		sessionID:     sessionID,
		audit:         audit.Discard,
		endOnComplete: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureCompletionStep appends a completion step to lab when it carries
// completion data and has none yet. It reports whether a step was added.
func EnsureCompletionStep(lab *api.Lab) bool {
	if lab == nil || lab.Completion == nil {
		return false
	}
	for i := range lab.Steps {
		if lab.Steps[i].IsCompletion() {
			return false
		}
	}
	lab.Steps = append(lab.Steps, api.Step{
		Number:  len(lab.Steps) + 1,
		Title:   CompletionTitle,
		Content: lab.Completion.Summary,
		Type:    api.StepTypeCompletion,
	})
	return true
}

// Load fetches the lab and moves to its first step. On failure the
// controller holds no lab.
func (c *Controller) Load(ctx context.Context, labID string) error {
	lab, err := c.svc.GetLab(ctx, labID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.lab = nil
		c.index = 0
		c.draft = ""
		return err
	}
	if len(lab.Steps) == 0 && lab.Completion == nil {
		c.lab = nil
		return errors.Validation("lab " + labID + " has no steps")
	}

	if EnsureCompletionStep(lab) {
		logging.Debug("added completion step", "lab", lab.ID)
	}
	c.lab = lab
	c.outcome = Continuing
	c.goTo(0)
	return nil
}

// Loaded reports whether a lab is loaded.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lab != nil
}

// GoTo moves to step i, clamped to the lab's steps, and resets the draft.
// It returns the resulting index.
func (c *Controller) GoTo(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goTo(i)
}

func (c *Controller) goTo(i int) int {
	if c.lab == nil {
		return 0
	}
	last := len(c.lab.Steps) - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	c.index = i
	c.draft = c.lab.Steps[i].Template
	return i
}

// Previous moves back one step.
func (c *Controller) Previous() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goTo(c.index - 1)
}

// Next advances one step. At the last step it completes the lab instead,
// ending the session too unless configured otherwise, and reports true.
func (c *Controller) Next(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.lab == nil {
		c.mu.Unlock()
		return false, errors.LabNotLoaded()
	}
	if c.index < len(c.lab.Steps)-1 {
		c.goTo(c.index + 1)
		c.mu.Unlock()
		return false, nil
	}
	c.mu.Unlock()

	return true, c.finish(ctx, true, c.endOnComplete)
}

// FinishAndExit marks the lab complete, then ends the session.
func (c *Controller) FinishAndExit(ctx context.Context) error {
	return c.finish(ctx, true, true)
}

// TerminateOnly ends the session without marking the lab complete.
func (c *Controller) TerminateOnly(ctx context.Context) error {
	return c.finish(ctx, false, true)
}

func (c *Controller) finish(ctx context.Context, complete, terminate bool) error {
	c.mu.Lock()
	lab := c.lab
	c.mu.Unlock()

	if lab == nil {
		return errors.LabNotLoaded()
	}
	if c.sessionID == "" {
		return errors.NoSession()
	}

	if complete {
		if err := c.svc.CompleteSession(ctx, c.sessionID); err != nil {
			c.record(audit.EventError, lab.ID, "complete: "+err.Error())
			return err
		}
		c.record(audit.EventComplete, lab.ID, "")
		if c.store != nil {
			if err := c.store.MarkCompleted(lab.ID); err != nil {
				logging.Warn("failed to record completed lab", "lab", lab.ID, "error", err)
			}
		}
		c.setOutcome(Completed)
	}

	if terminate {
		if err := c.svc.TerminateSession(ctx, c.sessionID); err != nil {
			c.record(audit.EventError, lab.ID, "terminate: "+err.Error())
			return err
		}
		c.record(audit.EventTerminate, lab.ID, "")
		if !complete {
			c.setOutcome(Ended)
		}
	}
	return nil
}

func (c *Controller) setOutcome(o Outcome) {
	c.mu.Lock()
	c.outcome = o
	c.mu.Unlock()
}

func (c *Controller) record(t audit.EventType, labID, details string) {
	audit.Record(c.audit, audit.Event{
		Type:    t,
		Session: c.sessionID,
		Lab:     labID,
		Details: details,
	})
}

// SessionID returns the session the controller acts on.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Lab returns the loaded lab, or nil.
func (c *Controller) Lab() *api.Lab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lab
}

// Steps returns the loaded lab's steps.
func (c *Controller) Steps() []api.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lab == nil {
		return nil
	}
	return c.lab.Steps
}

// Index returns the current step index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Step returns the current step, or nil when no lab is loaded.
func (c *Controller) Step() *api.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lab == nil {
		return nil
	}
	s := c.lab.Steps[c.index]
	return &s
}

// IsLast reports whether the current step is the last one.
func (c *Controller) IsLast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lab != nil && c.index == len(c.lab.Steps)-1
}

// Draft returns the manifest draft for the current step.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the manifest draft.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Hints returns the loaded lab's UI hints, or the defaults.
func (c *Controller) Hints() api.UIHints {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lab == nil {
		return api.DefaultUIHints
	}
	return c.lab.Hints()
}

// Outcome reports whether and how the lab ended.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}
