// Package catalog manages the salon product catalog used by product
// knowledge tests.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrNameRequired = fmt.Errorf("%w: Название продукта обязательно", analysis.ErrInvalidInput)
)

// Product is one catalog entry of a salon.
type Product struct {
	ID              string            `json:"id"`
	SalonID         string            `json:"salonId"`
	Name            string            `json:"name"`
	Category        string            `json:"category,omitempty"`
	Characteristics string            `json:"characteristics"`
	Advantages      string            `json:"advantages"`
	Benefits        string            `json:"benefits"`
	Price           *float64          `json:"price"`
	TargetAudience  string            `json:"targetAudience,omitempty"`
	Objections      map[string]string `json:"objections"`
	IsActive        bool              `json:"isActive"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Facts returns the data a product test is graded against.
func (p Product) Facts() llm.ProductFacts {
	facts := llm.ProductFacts{
		Name:            p.Name,
		Characteristics: p.Characteristics,
		Advantages:      p.Advantages,
		Benefits:        p.Benefits,
		TargetAudience:  p.TargetAudience,
		Objections:      p.Objections,
	}
	if p.Price != nil {
		facts.Price = *p.Price
	}
	return facts
}

// Input is the writable part of a product. Price accepts numbers and
// numeric strings; zero or absent clears it.
type Input struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	Characteristics string            `json:"characteristics"`
	Advantages      string            `json:"advantages"`
	Benefits        string            `json:"benefits"`
	Price           *analysis.Number  `json:"price"`
	TargetAudience  string            `json:"targetAudience"`
	Objections      map[string]string `json:"objections"`
	IsActive        *bool             `json:"isActive"`
}

func (in Input) apply(p *Product) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrNameRequired
	}
	p.Name = name
	p.Category = strings.TrimSpace(in.Category)
	p.Characteristics = in.Characteristics
	p.Advantages = in.Advantages
	p.Benefits = in.Benefits
	p.TargetAudience = strings.TrimSpace(in.TargetAudience)
	p.Price = nil
	if in.Price != nil && *in.Price != 0 {
		price := float64(*in.Price)
		p.Price = &price
	}
	if in.Objections != nil {
		p.Objections = in.Objections
	}
	if p.Objections == nil {
		p.Objections = map[string]string{}
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return nil
}
