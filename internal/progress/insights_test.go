package progress

import (
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

func catalog() []api.Lab {
	return []api.Lab{
		{ID: "foundations-pods", Title: "Pods"},
		{ID: "foundations-services", Title: "Services", Prerequisites: []string{"foundations-pods"}},
		{ID: "helm-intro", Title: "Helm", Prerequisites: []string{"foundations-pods", "foundations-services"}},
		{ID: "gitops", Title: "GitOps", Prerequisites: []string{"helm-intro"}},
		{ID: "observability", Title: "Observability"},
	}
}

func ids(labs []api.Lab) []string {
	out := make([]string, len(labs))
	for i, l := range labs {
		out[i] = l.ID
	}
	return out
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name      string
		completed []string
		limit     int
		want      []string
	}{
		{"fresh learner", nil, 0, []string{"foundations-pods", "observability"}},
		{"prereq met", []string{"foundations-pods"}, 0, []string{"foundations-services", "observability"}},
		{"chain", []string{"foundations-pods", "foundations-services"}, 0, []string{"helm-intro", "observability"}},
		{"limit", []string{"foundations-pods", "foundations-services"}, 1, []string{"helm-intro"}},
		{"everything done", []string{"foundations-pods", "foundations-services", "helm-intro", "gitops", "observability"}, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Recommend(catalog(), tt.completed, tt.limit))
			if len(got) != len(tt.want) {
				t.Fatalf("Recommend() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Recommend()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEarned(t *testing.T) {
	tests := []struct {
		name      string
		completed []string
		want      []string
	}{
		{"none", nil, nil},
		{"first", []string{"a"}, []string{"first-lab"}},
		{"three without foundations", []string{"a", "b", "c"}, []string{"first-lab", "novice"}},
		{"three with foundations", []string{"a", "foundations-pods", "c"}, []string{"first-lab", "novice", "master"}},
		{"two foundations is not enough", []string{"foundations-pods", "foundations-services"}, []string{"first-lab"}},
		{"ten", []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, []string{"first-lab", "novice", "intermediate", "expert"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, a := range Earned(tt.completed) {
				got = append(got, a.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Earned() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Earned()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSkillLevel(t *testing.T) {
	tests := map[int]string{0: "Beginner", 4: "Beginner", 5: "Intermediate", 9: "Intermediate", 10: "Advanced"}
	for n, want := range tests {
		if got := SkillLevel(n); got != want {
			t.Errorf("SkillLevel(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestPercent(t *testing.T) {
	if Percent(1, 0) != 0 {
		t.Error("Percent with no labs should be 0")
	}
	if got := Percent(1, 4); got != 25 {
		t.Errorf("Percent(1, 4) = %v, want 25", got)
	}
}
