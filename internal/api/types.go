package api

import (
	"fmt"
	"strings"
)

// StepTypeCompletion marks the step synthesized from a lab's completion data.
const StepTypeCompletion = "completion"

// UIHints tells the workspace which panes a lab needs.
type UIHints struct {
	ShowShell          bool `json:"showShell"`
	ShowEditor         bool `json:"showEditor"`
	RequiresExternalUI bool `json:"requiresPCAIUI"`
}

// DefaultUIHints applies when a lab carries no hints.
var DefaultUIHints = UIHints{ShowShell: true}

// CompletionResource is a follow-up link shown when a lab is finished.
type CompletionResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CompletionInfo is the wrap-up shown after the last step.
type CompletionInfo struct {
	Summary   string               `json:"summary"`
	NextSteps []string             `json:"next_steps"`
	Resources []CompletionResource `json:"resources"`
}

// Step is one unit of a lab.
type Step struct {
	Number       int      `json:"step"`
	Title        string   `json:"title,omitempty"`
	Instruction  string   `json:"instruction,omitempty"`
	Content      string   `json:"content,omitempty"`
	Command      string   `json:"command,omitempty"`
	Commands     []string `json:"commands,omitempty"`
	Template     string   `json:"template,omitempty"`
	Verification string   `json:"verification,omitempty"`
	Type         string   `json:"type,omitempty"`
}

// Text returns the step body, preferring content over instruction.
func (s *Step) Text() string {
	if s.Content != "" {
		return s.Content
	}
	return s.Instruction
}

// DisplayTitle returns the title, or "Step N" using the server's step
// number when it sent one and the 0-based index i otherwise.
func (s *Step) DisplayTitle(i int) string {
	if s.Title != "" {
		return s.Title
	}
	n := s.Number
	if n <= 0 {
		n = i + 1
	}
	return fmt.Sprintf("Step %d", n)
}

// IsCompletion reports whether this is the synthesized completion step.
func (s *Step) IsCompletion() bool {
	return s.Type == StepTypeCompletion
}

// CommandList returns the literal commands placeholders index into. The
// single legacy command field counts as index 0 when no list is given.
func (s *Step) CommandList() []string {
	if len(s.Commands) > 0 {
		return s.Commands
	}
	if s.Command != "" {
		return []string{s.Command}
	}
	return nil
}

// Lab is a lab definition.
type Lab struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Persona       []string        `json:"persona,omitempty"`
	Category      string          `json:"category,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	Difficulty    string          `json:"difficulty,omitempty"`
	Skills        []string        `json:"skills,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Prerequisites []string        `json:"prerequisites,omitempty"`
	Description   string          `json:"description,omitempty"`
	Steps         []Step          `json:"steps"`
	Completion    *CompletionInfo `json:"completion,omitempty"`
	UIHints       *UIHints        `json:"ui_hints,omitempty"`
}

// Hints returns the lab's UI hints or the defaults.
func (l *Lab) Hints() UIHints {
	if l.UIHints == nil {
		return DefaultUIHints
	}
	return *l.UIHints
}

// Validate implements the response check used by Client.Do.
func (l *Lab) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("lab: missing id")
	}
	if l.Title == "" {
		return fmt.Errorf("lab %s: missing title", l.ID)
	}
	return nil
}

// LabList is the catalog response.
type LabList []Lab

// Validate implements the response check used by Client.Do.
func (ls LabList) Validate() error {
	for i := range ls {
		if err := ls[i].Validate(); err != nil {
			return fmt.Errorf("labs[%d]: %w", i, err)
		}
	}
	return nil
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusActive     SessionStatus = "active"
	StatusCompleted  SessionStatus = "completed"
	StatusTerminated SessionStatus = "terminated"
	StatusExpired    SessionStatus = "expired"
	StatusError      SessionStatus = "error"
)

// IsActive reports whether the session still has a live sandbox.
func (s SessionStatus) IsActive() bool {
	return s == StatusActive
}

// Session is a binding between a user, a lab and a sandbox namespace.
type Session struct {
	ID               string        `json:"session_uuid"`
	UserID           string        `json:"user_id"`
	LabID            string        `json:"lab_id"`
	SandboxNamespace string        `json:"sandbox_namespace"`
	StartTime        Timestamp     `json:"start_time"`
	LastActivity     Timestamp     `json:"last_activity"`
	CreatedAt        Timestamp     `json:"created_at"`
	ExpiresAt        Timestamp     `json:"expires_at"`
	Status           SessionStatus `json:"status"`
}

// Validate implements the response check used by Client.Do.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session: missing session_uuid")
	}
	if s.Status == "" {
		return fmt.Errorf("session %s: missing status", s.ID)
	}
	return nil
}

// SessionList is a list of sessions.
type SessionList []Session

// Validate implements the response check used by Client.Do.
func (ss SessionList) Validate() error {
	for i := range ss {
		if err := ss[i].Validate(); err != nil {
			return fmt.Errorf("sessions[%d]: %w", i, err)
		}
	}
	return nil
}

// Stats is the admin aggregate snapshot.
type Stats struct {
	ActiveSessions        int     `json:"active_sessions"`
	TotalSessionsAllTime  int     `json:"total_sessions_all_time"`
	ClusterUtilizationPct float64 `json:"cluster_utilization_pct"`
}

// Kind is a resource kind the admin browser can list and delete.
type Kind string

const (
	KindPod        Kind = "pod"
	KindService    Kind = "service"
	KindDeployment Kind = "deployment"
	KindPVC        Kind = "pvc"
	KindSecret     Kind = "secret"
)

// Kinds lists resource kinds in display order.
var Kinds = []Kind{KindPod, KindService, KindDeployment, KindPVC, KindSecret}

// ParseKind accepts a kind name, its plural, or the long PVC spelling.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pod", "pods", "po":
		return KindPod, nil
	case "service", "services", "svc":
		return KindService, nil
	case "deployment", "deployments", "deploy":
		return KindDeployment, nil
	case "pvc", "pvcs", "persistent-volume-claim", "persistentvolumeclaim":
		return KindPVC, nil
	case "secret", "secrets":
		return KindSecret, nil
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// ResourceInventory is the live set of objects in one sandbox namespace.
type ResourceInventory struct {
	Namespace   string   `json:"namespace,omitempty"`
	Pods        []string `json:"pods"`
	Services    []string `json:"services"`
	Deployments []string `json:"deployments"`
	PVCs        []string `json:"pvcs"`
	Secrets     []string `json:"secrets"`
}

// Names returns the resources of one kind.
func (r *ResourceInventory) Names(kind Kind) []string {
	switch kind {
	case KindPod:
		return r.Pods
	case KindService:
		return r.Services
	case KindDeployment:
		return r.Deployments
	case KindPVC:
		return r.PVCs
	case KindSecret:
		return r.Secrets
	}
	return nil
}

// Len returns the total number of resources.
func (r *ResourceInventory) Len() int {
	n := 0
	for _, k := range Kinds {
		n += len(r.Names(k))
	}
	return n
}

// Identity is the caller as seen by the API.
type Identity struct {
	UserID  string   `json:"user_id"`
	Email   string   `json:"email,omitempty"`
	Name    string   `json:"name,omitempty"`
	Groups  []string `json:"groups"`
	IsAdmin bool     `json:"is_admin"`
}

// ActionResult is the acknowledgement returned by mutating endpoints.
type ActionResult struct {
	Message   string     `json:"message"`
	NewExpiry *Timestamp `json:"new_expiry,omitempty"`
}
