package prompt

import (
	"bytes"
	"strings"
	"testing"
)

func TestStdin_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"\n", false},
		{"yep\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		c := NewStdin(strings.NewReader(tt.input), &out)
		if got := c.Confirm("Delete pod worker-1?"); got != tt.want {
			t.Errorf("Confirm() with input %q = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.HasPrefix(out.String(), "Delete pod worker-1? [y/N]: ") {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestStdin_ReadsOneAnswerPerPrompt(t *testing.T) {
	c := NewStdin(strings.NewReader("y\nn\n"), &bytes.Buffer{})
	if !c.Confirm("first") {
		t.Error("first answer should be yes")
	}
	if c.Confirm("second") {
		t.Error("second answer should be no")
	}
}

func TestFixedConfirmers(t *testing.T) {
	if !AutoYes.Confirm("x") {
		t.Error("AutoYes declined")
	}
	if Never.Confirm("x") {
		t.Error("Never approved")
	}
}

func TestRecorder(t *testing.T) {
	r := Record(Never)
	r.Confirm("Terminate session s1?")
	r.Confirm("Delete pod p?")

	if r.Asked() != 2 {
		t.Errorf("Asked() = %d, want 2", r.Asked())
	}
	if r.Prompts[0] != "Terminate session s1?" {
		t.Errorf("Prompts[0] = %q", r.Prompts[0])
	}
}
