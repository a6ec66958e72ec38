package admincards

import (
	"sort"

	"github.com/seregajade-png/analysis-beauty/internal/llm"
	"github.com/seregajade-png/analysis-beauty/internal/skilltests"
)

const (
	issueThreshold = 6
	maxMainIssues  = 3
)

// scored is the part of a completed analysis a summary needs.
type scored struct {
	Score       float64
	StageScores map[string]float64
}

// summarize averages overall scores and names the weakest stages, those
// averaging below issueThreshold. It returns nil for no analyses.
func summarize(items []scored) *ActivitySummary {
	if len(items) == 0 {
		return nil
	}
	scores := make([]float64, 0, len(items))
	stages := make(map[string][]float64)
	for _, it := range items {
		scores = append(scores, it.Score)
		for key, v := range it.StageScores {
			stages[key] = append(stages[key], v)
		}
	}

	type stageAvg struct {
		key string
		avg float64
	}
	weak := make([]stageAvg, 0)
	for key, values := range stages {
		if avg := llm.Average(values); avg < issueThreshold {
			weak = append(weak, stageAvg{key: key, avg: avg})
		}
	}
	sort.Slice(weak, func(i, j int) bool {
		if weak[i].avg != weak[j].avg {
			return weak[i].avg < weak[j].avg
		}
		return weak[i].key < weak[j].key
	})
	issues := make([]string, 0, maxMainIssues)
	for i := 0; i < len(weak) && i < maxMainIssues; i++ {
		issues = append(issues, weak[i].key)
	}
	return &ActivitySummary{Total: len(items), AvgScore: llm.Average(scores), MainIssues: issues}
}

func summarizeTests(latest map[skilltests.TestType]skilltests.Result) TestSummary {
	var s TestSummary
	if r, ok := latest[skilltests.TypePracticalCase]; ok {
		s.PracticalCase = &TestScore{Score: r.Score, Feedback: r.Feedback}
	}
	if r, ok := latest[skilltests.TypeRoleplay]; ok {
		fear := r.FearLevel
		if fear == "" {
			fear = "medium"
		}
		s.Roleplay = &TestScore{Score: r.Score, Feedback: r.Feedback, FearLevel: fear}
	}
	if r, ok := latest[skilltests.TypeProductKnowledge]; ok {
		s.ProductKnowledge = &TestScore{Score: r.Score, WeakAreas: r.WeakAreas}
	}
	if r, ok := latest[skilltests.TypeCRMKnowledge]; ok {
		s.CRMKnowledge = &TestScore{Score: r.Score, Feedback: r.Feedback}
	}
	return s
}

func overallScores(items []scored) []float64 {
	out := make([]float64, 0, len(items))
	for _, it := range items {
		out = append(out, it.Score)
	}
	return out
}
