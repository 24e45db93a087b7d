package lab

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/audit"
	laberrors "github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/progress"
)

type fakeService struct {
	mu          sync.Mutex
	lab         *api.Lab
	getErr      error
	completeErr error
	termErr     error
	calls       []string
}

func (f *fakeService) GetLab(ctx context.Context, id string) (*api.Lab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "get "+id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.lab, nil
}

func (f *fakeService) CompleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "complete "+id)
	return f.completeErr
}

func (f *fakeService) TerminateSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "terminate "+id)
	return f.termErr
}

// actions returns the non-get calls.
func (f *fakeService) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if !strings.HasPrefix(c, "get ") {
			out = append(out, c)
		}
	}
	return out
}

type sinkRecorder struct {
	events []audit.Event
}

func (s *sinkRecorder) Log(e audit.Event) error {
	s.events = append(s.events, e)
	return nil
}

func (s *sinkRecorder) types() []string {
	var out []string
	for _, e := range s.events {
		out = append(out, string(e.Type))
	}
	return out
}

func threeStepLab() *api.Lab {
	return &api.Lab{
		ID:    "k8s-basics",
		Title: "Kubernetes Basics",
		Steps: []api.Step{
			{Number: 1, Title: "Pods", Template: "apiVersion: v1\nkind: Pod\n"},
			{Number: 2, Title: "Services"},
			{Number: 3, Title: "Cleanup", Template: "kind: Service\n"},
		},
	}
}

func loaded(t *testing.T, lab *api.Lab, opts ...Option) (*Controller, *fakeService) {
	t.Helper()
	svc := &fakeService{lab: lab}
	c := NewController(svc, "s1", opts...)
	if err := c.Load(context.Background(), lab.ID); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return c, svc
}

func TestController_GoToClamps(t *testing.T) {
	c, _ := loaded(t, threeStepLab())

	for i := -5; i <= 8; i++ {
		got := c.GoTo(i)
		if got < 0 || got > 2 {
			t.Errorf("GoTo(%d) = %d, outside [0, 2]", i, got)
		}
		if c.Index() != got {
			t.Errorf("Index() = %d after GoTo(%d) returned %d", c.Index(), i, got)
		}
	}
	if c.GoTo(-1) != 0 || c.GoTo(99) != 2 {
		t.Error("GoTo should clamp to the first and last step")
	}
}

func TestController_StepChangeResetsDraft(t *testing.T) {
	c, _ := loaded(t, threeStepLab())

	if c.Draft() != "apiVersion: v1\nkind: Pod\n" {
		t.Errorf("initial draft = %q, want first step's template", c.Draft())
	}

	tests := []struct {
		to   int
		want string
	}{
		{1, ""},
		{2, "kind: Service\n"},
		{2, "kind: Service\n"},
		{0, "apiVersion: v1\nkind: Pod\n"},
	}
	for _, tt := range tests {
		c.SetDraft("edited by the learner")
		c.GoTo(tt.to)
		if c.Draft() != tt.want {
			t.Errorf("draft after GoTo(%d) = %q, want %q", tt.to, c.Draft(), tt.want)
		}
	}

	c.SetDraft("edited")
	c.Previous()
	if c.Draft() != "apiVersion: v1\nkind: Pod\n" {
		t.Errorf("Previous() at step 0 kept draft %q", c.Draft())
	}
}

func TestController_CompletionStepAddedOnce(t *testing.T) {
	lab := threeStepLab()
	lab.Completion = &api.CompletionInfo{Summary: "You deployed a pod.", NextSteps: []string{"Try Helm"}}
	svc := &fakeService{lab: lab}
	c := NewController(svc, "s1")

	for i := 0; i < 3; i++ {
		if err := c.Load(context.Background(), lab.ID); err != nil {
			t.Fatal(err)
		}
	}

	steps := c.Steps()
	if len(steps) != 4 {
		t.Fatalf("got %d steps, want 3 plus one completion step", len(steps))
	}
	n := 0
	for _, s := range steps {
		if s.IsCompletion() {
			n++
		}
	}
	if n != 1 {
		t.Errorf("found %d completion steps, want 1", n)
	}
	last := steps[3]
	if last.Title != CompletionTitle || last.Content != "You deployed a pod." || last.Number != 4 {
		t.Errorf("completion step = %+v", last)
	}
}

func TestEnsureCompletionStep(t *testing.T) {
	if EnsureCompletionStep(nil) {
		t.Error("nil lab")
	}
	if EnsureCompletionStep(threeStepLab()) {
		t.Error("lab without completion data should not get a step")
	}

	lab := threeStepLab()
	lab.Completion = &api.CompletionInfo{}
	lab.Steps = append(lab.Steps, api.Step{Type: api.StepTypeCompletion})
	if EnsureCompletionStep(lab) {
		t.Error("lab that already has a completion step should not get another")
	}
}

func TestController_NextWalksThenCompletes(t *testing.T) {
	store := progress.NewMemoryStore()
	sink := &sinkRecorder{}
	c, svc := loaded(t, threeStepLab(), WithProgress(store), WithAudit(sink))
	ctx := context.Background()

	for i, wantIdx := range []int{1, 2} {
		done, err := c.Next(ctx)
		if err != nil || done {
			t.Fatalf("Next() #%d = %v, %v; want advance", i+1, done, err)
		}
		if c.Index() != wantIdx {
			t.Errorf("Index() = %d, want %d", c.Index(), wantIdx)
		}
	}
	if len(svc.actions()) != 0 {
		t.Errorf("actions before the last step = %v", svc.actions())
	}

	c.Next(ctx)
	if c.Index() != 2 {
		t.Errorf("after three Next() Index() = %d, want 2", c.Index())
	}

	done, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("Next() at last step error = %v", err)
	}
	if !done {
		t.Error("Next() at the last step should complete the lab")
	}
	if c.Index() != 2 {
		t.Errorf("Next() advanced past the last step to %d", c.Index())
	}

	actions := svc.actions()
	if len(actions) < 2 || actions[0] != "complete s1" || actions[1] != "terminate s1" {
		t.Errorf("actions = %v, want complete then terminate", actions)
	}
	if ids, _ := store.Completed(); len(ids) != 1 || ids[0] != "k8s-basics" {
		t.Errorf("progress = %v, want the lab recorded", ids)
	}
	if c.Outcome() != Completed {
		t.Errorf("Outcome() = %v, want Completed", c.Outcome())
	}
	if got := strings.Join(sink.types()[:2], ","); got != "complete,terminate" {
		t.Errorf("audit = %v", sink.types())
	}
}

func TestController_NextKeepsSessionWhenConfigured(t *testing.T) {
	c, svc := loaded(t, threeStepLab(), WithEndSessionOnComplete(false))
	c.GoTo(2)

	if done, err := c.Next(context.Background()); !done || err != nil {
		t.Fatalf("Next() = %v, %v", done, err)
	}
	if got := svc.actions(); len(got) != 1 || got[0] != "complete s1" {
		t.Errorf("actions = %v, want complete only", got)
	}
}

func TestController_FinishAndExit(t *testing.T) {
	store := progress.NewMemoryStore()
	c, svc := loaded(t, threeStepLab(), WithProgress(store))

	if err := c.FinishAndExit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := svc.actions(); strings.Join(got, ",") != "complete s1,terminate s1" {
		t.Errorf("actions = %v", got)
	}
	if ids, _ := store.Completed(); len(ids) != 1 {
		t.Errorf("progress = %v", ids)
	}
}

func TestController_TerminateOnly(t *testing.T) {
	store := progress.NewMemoryStore()
	c, svc := loaded(t, threeStepLab(), WithProgress(store))

	if err := c.TerminateOnly(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := svc.actions(); strings.Join(got, ",") != "terminate s1" {
		t.Errorf("actions = %v, want terminate only", got)
	}
	if ids, _ := store.Completed(); len(ids) != 0 {
		t.Errorf("TerminateOnly() recorded progress %v", ids)
	}
	if c.Outcome() != Ended {
		t.Errorf("Outcome() = %v, want Ended", c.Outcome())
	}
}

func TestController_CompleteFailureStops(t *testing.T) {
	store := progress.NewMemoryStore()
	sink := &sinkRecorder{}
	c, svc := loaded(t, threeStepLab(), WithProgress(store), WithAudit(sink))
	svc.completeErr = laberrors.Remote(500, "Internal Server Error")

	err := c.FinishAndExit(context.Background())
	if laberrors.GetExitCode(err) != laberrors.ExitRemote {
		t.Fatalf("FinishAndExit() error = %v, want the remote error", err)
	}
	if got := svc.actions(); strings.Join(got, ",") != "complete s1" {
		t.Errorf("actions = %v, want no terminate after a failed complete", got)
	}
	if ids, _ := store.Completed(); len(ids) != 0 {
		t.Error("failed completion recorded progress")
	}
	if len(sink.events) != 1 || sink.events[0].Type != audit.EventError {
		t.Errorf("audit = %v, want one error event", sink.types())
	}
}

func TestController_WithoutSession(t *testing.T) {
	lab := threeStepLab()
	c := NewController(&fakeService{lab: lab}, "")
	if err := c.Load(context.Background(), lab.ID); err != nil {
		t.Fatal(err)
	}
	c.GoTo(2)

	if _, err := c.Next(context.Background()); laberrors.GetExitCode(err) != laberrors.ExitNoSession {
		t.Errorf("Next() error = %v, want no-session", err)
	}
}

func TestController_LoadFailure(t *testing.T) {
	svc := &fakeService{lab: threeStepLab()}
	c := NewController(svc, "s1")
	if err := c.Load(context.Background(), "k8s-basics"); err != nil {
		t.Fatal(err)
	}
	c.GoTo(2)

	svc.getErr = laberrors.Remote(404, "Lab not found")
	err := c.Load(context.Background(), "missing")
	if err == nil || err.Error() != "Lab not found" {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Loaded() || c.Lab() != nil || c.Step() != nil || c.Steps() != nil {
		t.Error("failed load should leave no lab")
	}
	if c.Index() != 0 || c.Draft() != "" {
		t.Errorf("failed load left index %d draft %q", c.Index(), c.Draft())
	}
	if _, err := c.Next(context.Background()); err == nil {
		t.Error("Next() without a lab should fail")
	}
	if err := c.FinishAndExit(context.Background()); err == nil {
		t.Error("FinishAndExit() without a lab should fail")
	}
	if c.Hints() != api.DefaultUIHints {
		t.Errorf("Hints() = %+v, want defaults", c.Hints())
	}
}

func TestController_LoadEmptyLab(t *testing.T) {
	c := NewController(&fakeService{lab: &api.Lab{ID: "empty", Title: "Empty"}}, "s1")
	err := c.Load(context.Background(), "empty")
	if laberrors.GetExitCode(err) != laberrors.ExitValidation {
		t.Errorf("Load() error = %v, want validation", err)
	}
	if c.Loaded() {
		t.Error("lab without steps should not load")
	}
}

func TestController_StepIsACopy(t *testing.T) {
	c, _ := loaded(t, threeStepLab())
	s := c.Step()
	s.Title = "changed"
	if c.Step().Title != "Pods" {
		t.Error("Step() should not expose the lab's step for mutation")
	}
	if c.IsLast() {
		t.Error("IsLast() at step 0")
	}
	c.GoTo(2)
	if !c.IsLast() {
		t.Error("IsLast() at step 2")
	}
}

func TestController_SinkErrorsDoNotFail(t *testing.T) {
	c, _ := loaded(t, threeStepLab(), WithAudit(failingSink{}))
	if err := c.TerminateOnly(context.Background()); err != nil {
		t.Errorf("TerminateOnly() error = %v, audit failures must not surface", err)
	}
}

type failingSink struct{}

func (failingSink) Log(audit.Event) error { return errors.New("disk full") }
