package progress

import (
	"slices"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

// DefaultRecommendations is how many labs the dashboard suggests.
const DefaultRecommendations = 3

// Recommend returns labs not yet completed whose prerequisites all are, in
// catalog order. limit <= 0 means no limit.
func Recommend(labs []api.Lab, completed []string, limit int) []api.Lab {
	var out []api.Lab
	for _, lab := range labs {
		if slices.Contains(completed, lab.ID) {
			continue
		}
		met := true
		for _, p := range lab.Prerequisites {
			if !slices.Contains(completed, p) {
				met = false
				break
			}
		}
		if !met {
			continue
		}
		out = append(out, lab)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Achievement is a badge earned by completing labs.
type Achievement struct {
	ID          string
	Title       string
	Description string
	Icon        string
	earned      func(completed []string) bool
}

// Earned reports whether completed unlocks the achievement.
func (a Achievement) Earned(completed []string) bool {
	return a.earned(completed)
}

func atLeast(n int) func([]string) bool {
	return func(completed []string) bool { return len(completed) >= n }
}

// Achievements lists every badge in display order.
var Achievements = []Achievement{
	{ID: "first-lab", Title: "Getting Started", Description: "Complete your first lab", Icon: "🎯", earned: atLeast(1)},
	{ID: "novice", Title: "Novice Engineer", Description: "Complete 3 labs", Icon: "🥉", earned: atLeast(3)},
	{ID: "intermediate", Title: "Intermediate Engineer", Description: "Complete 5 labs", Icon: "🥈", earned: atLeast(5)},
	{ID: "expert", Title: "Expert Engineer", Description: "Complete 10 labs", Icon: "🥇", earned: atLeast(10)},
	{ID: "master", Title: "K8s Master", Description: "Complete the Foundation labs", Icon: "👑", earned: func(completed []string) bool {
		if len(completed) < 3 {
			return false
		}
		return slices.ContainsFunc(completed, func(id string) bool {
			return strings.HasPrefix(id, "foundations-")
		})
	}},
}

// Earned returns the achievements completed unlocks.
func Earned(completed []string) []Achievement {
	var out []Achievement
	for _, a := range Achievements {
		if a.Earned(completed) {
			out = append(out, a)
		}
	}
	return out
}

// SkillLevel names the learner's level from the number of completed labs.
func SkillLevel(completed int) string {
	switch {
	case completed >= 10:
		return "Advanced"
	case completed >= 5:
		return "Intermediate"
	default:
		return "Beginner"
	}
}

// Percent returns completed as a share of total, 0 when total is 0.
func Percent(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
