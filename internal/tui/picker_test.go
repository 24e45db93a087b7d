package tui

import (
	"strings"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a much longer string", 10, "a much ..."},
		{"abcdef", 3, "abc"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			if got := truncate(tt.s, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestLabItemMethods(t *testing.T) {
	l := &api.Lab{
		ID:         "k8s-basics",
		Title:      "Kubernetes Basics",
		Difficulty: "beginner",
		Duration:   "30 min",
		UIHints:    &api.UIHints{ShowShell: true, RequiresExternalUI: true},
	}
	item := labItem{lab: l}

	if got := item.Title(); got != "Kubernetes Basics" {
		t.Errorf("Title() = %q", got)
	}
	if got := item.FilterValue(); !strings.Contains(got, "k8s-basics") {
		t.Errorf("FilterValue() = %q, should include the id", got)
	}
	if got := item.Description(); got != "beginner | 30 min | k8s-basics | external UI" {
		t.Errorf("Description() = %q", got)
	}

	item.completed = true
	if got := item.Title(); got != "Kubernetes Basics ✓" {
		t.Errorf("completed Title() = %q", got)
	}
}

func TestPicker_Start(t *testing.T) {
	m := NewPicker(catalog(), nil)

	updated, cmd := m.Update(key("enter"))
	result := updated.(Model).Result()

	if result.Action != ActionStart {
		t.Fatalf("Action = %v, want ActionStart", result.Action)
	}
	if result.Lab == nil || result.Lab.ID != "foundations-net" {
		t.Errorf("Lab = %+v, want the first lab of the first group", result.Lab)
	}
	if !isQuit(cmd) {
		t.Error("selecting a lab should quit")
	}
	if updated.View() != "" {
		t.Error("View should be empty after quitting")
	}
}

func TestPicker_NavigationSkipsHeaders(t *testing.T) {
	m := NewPicker(catalog(), nil)

	updated, _ := m.Update(key("down"))
	updated, _ = updated.Update(key("enter"))

	result := updated.(Model).Result()
	if result.Lab == nil || result.Lab.ID != "k8s-basics" {
		t.Errorf("Lab = %+v, want k8s-basics after skipping the header", result.Lab)
	}
}

func TestPicker_Quit(t *testing.T) {
	m := NewPicker(catalog(), nil)

	for _, k := range []string{"q", "esc"} {
		updated, cmd := m.Update(key(k))
		if updated.(Model).Result().Action != ActionQuit {
			t.Errorf("%s: Action should be ActionQuit", k)
		}
		if !isQuit(cmd) {
			t.Errorf("%s: should quit", k)
		}
	}
}

func TestPicker_View(t *testing.T) {
	m := NewPicker(catalog(), []string{"k8s-basics"})
	view := m.View()

	if !strings.Contains(view, "[enter] Start") {
		t.Error("View should show help")
	}
}

func TestRunPicker_Empty(t *testing.T) {
	result, err := RunPicker(nil, nil)
	if err != nil {
		t.Fatalf("RunPicker() error: %v", err)
	}
	if result.Action != ActionQuit {
		t.Errorf("Action = %v, want ActionQuit for an empty catalog", result.Action)
	}
}

func TestSimplePicker(t *testing.T) {
	out := SimplePicker([]api.Lab{
		{ID: "k8s-basics", Title: "Kubernetes Basics", Difficulty: "beginner", Steps: make([]api.Step, 3)},
		{ID: "misc", Title: "Misc", Description: strings.Repeat("x", 100)},
	}, []string{"k8s-basics"})

	for _, want := range []string{
		"1. ✓ Kubernetes Basics (k8s-basics)",
		"beginner | - | 3 steps",
		"2. ○ Misc (misc)",
		"...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SimplePicker output missing %q:\n%s", want, out)
		}
	}

	if empty := SimplePicker(nil, nil); !strings.Contains(empty, "No labs found.") {
		t.Error("empty catalog should say so")
	}
}
