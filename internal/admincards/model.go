// Package admincards compiles administrator cards from completed call and
// chat analyses and skill test results.
package admincards

import (
	"errors"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

const (
	// recentLimit bounds the analyses a card is built from.
	recentLimit      = 10
	defaultAdminName = "Администратор"
	// shareTokenBytes yields a 32 character hex token.
	shareTokenBytes = 16
)

var (
	ErrNotFound  = errors.New("Карточка не найдена")
	ErrForbidden = errors.New("Нет доступа к данным пользователя")
)

// Skill is one scored competence on a card.
type Skill struct {
	Name            string          `json:"name"`
	Key             string          `json:"key"`
	Score           analysis.Number `json:"score"`
	Priority        string          `json:"priority,omitempty"`
	Details         string          `json:"details,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// PlanStep is one period of the development plan.
type PlanStep struct {
	Period  string   `json:"period"`
	Goal    string   `json:"goal"`
	Actions []string `json:"actions,omitempty"`
}

// Generated is the model's card content.
type Generated struct {
	OverallScore    analysis.Number `json:"overallScore"`
	Summary         string          `json:"summary,omitempty"`
	Skills          []Skill         `json:"skills"`
	DevelopmentPlan []PlanStep      `json:"developmentPlan"`
}

// ActivitySummary aggregates recent analyses of one kind.
type ActivitySummary struct {
	Total      int      `json:"total"`
	AvgScore   float64  `json:"avgScore"`
	MainIssues []string `json:"mainIssues"`
}

// TestScore is the latest result of one test type.
type TestScore struct {
	Score     float64  `json:"score"`
	Feedback  string   `json:"feedback,omitempty"`
	FearLevel string   `json:"fearLevel,omitempty"`
	WeakAreas []string `json:"weakAreas,omitempty"`
}

// TestSummary holds the latest result per test type; absent types are nil.
type TestSummary struct {
	PracticalCase    *TestScore `json:"practicalCase,omitempty"`
	Roleplay         *TestScore `json:"roleplay,omitempty"`
	ProductKnowledge *TestScore `json:"productKnowledge,omitempty"`
	CRMKnowledge     *TestScore `json:"crmKnowledge,omitempty"`
}

func (s TestSummary) empty() bool {
	return s.PracticalCase == nil && s.Roleplay == nil && s.ProductKnowledge == nil && s.CRMKnowledge == nil
}

// Card is a stored administrator card.
type Card struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	CreatedBy       string           `json:"createdBy"`
	AdminName       string           `json:"adminName"`
	SalonName       string           `json:"salonName,omitempty"`
	OverallScore    float64          `json:"overallScore"`
	Summary         string           `json:"summary,omitempty"`
	Skills          []Skill          `json:"skills"`
	DevelopmentPlan []PlanStep       `json:"developmentPlan"`
	CallSummary     *ActivitySummary `json:"callSummary,omitempty"`
	ChatSummary     *ActivitySummary `json:"chatSummary,omitempty"`
	TestSummary     TestSummary      `json:"testSummary"`
	IsShared        bool             `json:"isShared"`
	ShareToken      string           `json:"shareToken,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}
