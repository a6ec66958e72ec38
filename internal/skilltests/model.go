// Package skilltests grades administrator skill tests: practical cases,
// roleplay answers, product knowledge and CRM knowledge.
package skilltests

import (
	"errors"
	"fmt"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// TestType names the kind of skill test.
type TestType string

const (
	TypePracticalCase    TestType = "PRACTICAL_CASE"
	TypeRoleplay         TestType = "ROLEPLAY"
	TypeProductKnowledge TestType = "PRODUCT_KNOWLEDGE"
	TypeCRMKnowledge     TestType = "CRM_KNOWLEDGE"
)

// Types lists every test type.
var Types = []TestType{TypePracticalCase, TypeRoleplay, TypeProductKnowledge, TypeCRMKnowledge}

var (
	ErrResponseRequired = fmt.Errorf("%w: Ответ не предоставлен", analysis.ErrInvalidInput)
	ErrRoleplayInput    = fmt.Errorf("%w: Фраза клиента и ответ администратора обязательны", analysis.ErrInvalidInput)
	ErrProductInput     = fmt.Errorf("%w: productId и answers обязательны", analysis.ErrInvalidInput)
	ErrAnswersRequired  = fmt.Errorf("%w: Ответы обязательны", analysis.ErrInvalidInput)
	ErrProductNotFound  = errors.New("Продукт не найден")
)

// Analysis is the model's grading of one test. Fields beyond Score depend on
// the test type.
type Analysis struct {
	Score            analysis.Number  `json:"score"`
	StructureScore   *analysis.Number `json:"structureScore,omitempty"`
	ContentScore     *analysis.Number `json:"contentScore,omitempty"`
	ConfidenceScore  *analysis.Number `json:"confidenceScore,omitempty"`
	KnowledgeScore   *analysis.Number `json:"knowledgeScore,omitempty"`
	SalesScore       *analysis.Number `json:"salesScore,omitempty"`
	FearLevel        string           `json:"fearLevel,omitempty"`
	ParasiteWords    []string         `json:"parasiteWords,omitempty"`
	Strengths        []string         `json:"strengths,omitempty"`
	Weaknesses       []string         `json:"weaknesses,omitempty"`
	WeakAreas        []string         `json:"weakAreas,omitempty"`
	Mistakes         []string         `json:"mistakes,omitempty"`
	Feedback         string           `json:"feedback,omitempty"`
	DetailedAnalysis string           `json:"detailedAnalysis,omitempty"`
	Recommendations  []string         `json:"recommendations,omitempty"`
	IdealResponse    string           `json:"idealResponse,omitempty"`
	ProductID        string           `json:"productId,omitempty"`
	ProductName      string           `json:"productName,omitempty"`
}

// weakAreas prefers explicit weak areas and falls back to weaknesses.
func (a Analysis) weakAreas() []string {
	if len(a.WeakAreas) > 0 {
		return a.WeakAreas
	}
	if a.Weaknesses != nil {
		return a.Weaknesses
	}
	return []string{}
}

// Result is one stored test attempt.
type Result struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TestType  TestType  `json:"testType"`
	CaseID    string    `json:"caseId,omitempty"`
	InputText string    `json:"inputText"`
	AudioKey  string    `json:"audioUrl,omitempty"`
	Score     float64   `json:"score"`
	FearLevel string    `json:"fearLevel,omitempty"`
	Analysis  Analysis  `json:"analysisResult"`
	Feedback  string    `json:"feedback"`
	WeakAreas []string  `json:"weakAreas"`
	CreatedAt time.Time `json:"createdAt"`
}
