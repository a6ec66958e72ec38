package chats

import (
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// DefaultTitle is used when a submission carries no title.
const DefaultTitle = "Переписка"

// Chat is one submitted conversation and its analysis.
type Chat struct {
	ID           string             `json:"id"`
	UserID       string             `json:"userId"`
	AdminName    string             `json:"adminName,omitempty"`
	Title        string             `json:"title"`
	Source       analysis.Source    `json:"source"`
	RawText      string             `json:"rawText,omitempty"`
	ImageURLs    []string           `json:"imageUrls"`
	Status       analysis.Status    `json:"status"`
	OverallScore *float64           `json:"overallScore"`
	Result       *analysis.Result   `json:"result,omitempty"`
	StageScores  map[string]float64 `json:"stageScores,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Input rebuilds the canonical analysis input from the stored record.
func (c Chat) Input() analysis.Input {
	return analysis.Input{
		Text:      c.RawText,
		Source:    c.Source,
		AdminName: c.AdminName,
		Title:     c.Title,
		ImageKeys: c.ImageURLs,
	}
}
