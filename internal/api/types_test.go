package api

import "testing"

func TestStep_Accessors(t *testing.T) {
	s := Step{Instruction: "old", Content: "new", Command: "kubectl get pods"}
	if s.Text() != "new" {
		t.Errorf("Text() = %q, want content preferred", s.Text())
	}
	if s.DisplayTitle(2) != "Step 3" {
		t.Errorf("DisplayTitle(2) = %q", s.DisplayTitle(2))
	}
	if got := s.CommandList(); len(got) != 1 || got[0] != "kubectl get pods" {
		t.Errorf("CommandList() = %v, want legacy command at index 0", got)
	}

	s.Commands = []string{"a", "b"}
	if got := s.CommandList(); len(got) != 2 {
		t.Errorf("CommandList() = %v, want the list", got)
	}
	if (&Step{}).CommandList() != nil {
		t.Error("empty step should have no commands")
	}
	if !(&Step{Type: StepTypeCompletion}).IsCompletion() {
		t.Error("IsCompletion() = false")
	}
}

func TestStep_DisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		step Step
		i    int
		want string
	}{
		{name: "title wins", step: Step{Number: 4, Title: "Deploy"}, i: 0, want: "Deploy"},
		{name: "server number", step: Step{Number: 7}, i: 1, want: "Step 7"},
		{name: "no number falls back to index", step: Step{}, i: 1, want: "Step 2"},
		{name: "negative number falls back to index", step: Step{Number: -1}, i: 0, want: "Step 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.step.DisplayTitle(tt.i); got != tt.want {
				t.Errorf("DisplayTitle(%d) = %q, want %q", tt.i, got, tt.want)
			}
		})
	}
}

func TestLab_Hints(t *testing.T) {
	l := Lab{ID: "a", Title: "A"}
	if l.Hints() != DefaultUIHints {
		t.Errorf("Hints() = %+v, want defaults", l.Hints())
	}
	l.UIHints = &UIHints{ShowEditor: true}
	if !l.Hints().ShowEditor || l.Hints().ShowShell {
		t.Errorf("Hints() = %+v, want the lab's own", l.Hints())
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"pod", KindPod, false},
		{"Pods", KindPod, false},
		{"svc", KindService, false},
		{"deploy", KindDeployment, false},
		{"persistentvolumeclaim", KindPVC, false},
		{"secrets", KindSecret, false},
		{"configmap", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestResourceInventory(t *testing.T) {
	inv := ResourceInventory{
		Pods:     []string{"worker-1", "worker-2"},
		Services: []string{"web"},
		PVCs:     []string{"data"},
	}
	if inv.Len() != 4 {
		t.Errorf("Len() = %d, want 4", inv.Len())
	}
	if got := inv.Names(KindPVC); len(got) != 1 || got[0] != "data" {
		t.Errorf("Names(pvc) = %v", got)
	}
	if inv.Names(Kind("node")) != nil {
		t.Error("unknown kind should have no names")
	}
}
