package skilltests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/calls"
	"github.com/seregajade-png/analysis-beauty/internal/catalog"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/object"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

const roleplayFolder = "roleplay"

// Products looks up catalog entries a product test is graded against.
type Products interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	ListActive(ctx context.Context, userID string) ([]catalog.Product, error)
}

// Service grades skill tests and records the results.
type Service struct {
	Repo        Repo
	Completer   llm.Completer
	Transcriber llm.Transcriber
	Store       object.ObjectStore
	Products    Products
	Now         func() time.Time
}

// CaseInput is a practical case answer.
type CaseInput struct {
	CaseID    string `json:"caseId"`
	Scenario  string `json:"scenario"`
	Response  string `json:"response"`
	AdminName string `json:"adminName"`
}

// Audio is a recorded roleplay answer.
type Audio struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// RoleplayInput is a roleplay answer given as text or audio.
type RoleplayInput struct {
	ClientPhrase string
	Response     string
	Audio        *Audio
	AdminName    string
}

// ProductInput is a set of answers about one catalog product.
type ProductInput struct {
	ProductID string   `json:"productId"`
	Answers   []llm.QA `json:"answers"`
}

// PracticalCase grades a written answer to a case scenario.
func (s *Service) PracticalCase(ctx context.Context, userID string, in CaseInput) (Result, error) {
	response := strings.TrimSpace(in.Response)
	if response == "" {
		return Result{}, ErrResponseRequired
	}
	scenario := strings.TrimSpace(in.Scenario)
	if scenario == "" {
		scenario = llm.DefaultPracticalCase
	}
	a, err := s.grade(ctx, TypePracticalCase, llm.PracticalCaseSystemPrompt, llm.PracticalCaseMessage(scenario, response, in.AdminName))
	if err != nil {
		return Result{}, err
	}
	return s.record(ctx, Result{
		UserID:    userID,
		TestType:  TypePracticalCase,
		CaseID:    strings.TrimSpace(in.CaseID),
		InputText: response,
		Analysis:  a,
	})
}

// Roleplay grades the answer to a client phrase. An audio answer is stored
// and transcribed first.
func (s *Service) Roleplay(ctx context.Context, userID string, in RoleplayInput) (Result, error) {
	phrase := strings.TrimSpace(in.ClientPhrase)
	response := strings.TrimSpace(in.Response)
	var audioKey string
	if in.Audio != nil {
		text, key, err := s.transcribe(ctx, userID, *in.Audio)
		if err != nil {
			return Result{}, err
		}
		response, audioKey = text, key
	}
	if phrase == "" || response == "" {
		return Result{}, ErrRoleplayInput
	}
	a, err := s.grade(ctx, TypeRoleplay, llm.RoleplaySystemPrompt, llm.RoleplayMessage(phrase, response, in.AdminName))
	if err != nil {
		return Result{}, err
	}
	return s.record(ctx, Result{
		UserID:    userID,
		TestType:  TypeRoleplay,
		InputText: response,
		AudioKey:  audioKey,
		FearLevel: a.FearLevel,
		Analysis:  a,
	})
}

// ProductKnowledge grades answers about a catalog product.
func (s *Service) ProductKnowledge(ctx context.Context, userID string, in ProductInput) (Result, error) {
	if strings.TrimSpace(in.ProductID) == "" || len(in.Answers) == 0 {
		return Result{}, ErrProductInput
	}
	if s.Products == nil {
		return Result{}, ErrProductNotFound
	}
	product, err := s.Products.Get(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Result{}, ErrProductNotFound
		}
		return Result{}, err
	}
	a, err := s.grade(ctx, TypeProductKnowledge, llm.ProductKnowledgeSystemPrompt(product.Facts()), llm.ProductKnowledgeMessage(product.Name, in.Answers))
	if err != nil {
		return Result{}, err
	}
	a.ProductID = product.ID
	a.ProductName = product.Name
	answers, err := json.Marshal(in.Answers)
	if err != nil {
		return Result{}, err
	}
	return s.record(ctx, Result{
		UserID:    userID,
		TestType:  TypeProductKnowledge,
		InputText: string(answers),
		Analysis:  a,
	})
}

// CRMKnowledge grades answers about working with the client base.
func (s *Service) CRMKnowledge(ctx context.Context, userID, adminName string, answers []llm.QA) (Result, error) {
	if len(answers) == 0 {
		return Result{}, ErrAnswersRequired
	}
	a, err := s.grade(ctx, TypeCRMKnowledge, llm.CRMKnowledgeSystemPrompt, llm.CRMKnowledgeMessage(answers, adminName))
	if err != nil {
		return Result{}, err
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return Result{}, err
	}
	return s.record(ctx, Result{
		UserID:    userID,
		TestType:  TypeCRMKnowledge,
		InputText: string(raw),
		Analysis:  a,
	})
}

// Results returns the user's test history, newest first.
func (s *Service) Results(ctx context.Context, userID string, limit int) ([]Result, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// LatestByType returns the newest result of each test type.
func (s *Service) LatestByType(ctx context.Context, userID string) (map[TestType]Result, error) {
	return s.Repo.LatestByType(ctx, userID)
}

// ActiveProducts lists the products offered for product tests.
func (s *Service) ActiveProducts(ctx context.Context, userID string) ([]catalog.Product, error) {
	if s.Products == nil {
		return []catalog.Product{}, nil
	}
	return s.Products.ListActive(ctx, userID)
}

func (s *Service) grade(ctx context.Context, testType TestType, system, user string) (Analysis, error) {
	if s.Completer == nil {
		return Analysis{}, llm.ErrNotConfigured
	}
	text, err := s.Completer.Complete(ctx, system, user)
	if err != nil {
		return Analysis{}, fmt.Errorf("grade %s: %w", testType, err)
	}
	var a Analysis
	if err := analysis.ParseInto(text, &a); err != nil {
		return Analysis{}, fmt.Errorf("grade %s: %w", testType, err)
	}
	return a, nil
}

func (s *Service) transcribe(ctx context.Context, userID string, audio Audio) (text, key string, err error) {
	if audio.Body == nil {
		return "", "", ErrRoleplayInput
	}
	if !calls.AllowedAudioType(audio.ContentType) {
		return "", "", calls.ErrUnsupportedAudio
	}
	if s.Transcriber == nil {
		return "", "", llm.ErrNotConfigured
	}
	fileName := strings.TrimSpace(audio.FileName)
	if fileName == "" {
		fileName = "roleplay.webm"
	}
	body := io.LimitReader(audio.Body, calls.MaxAudioBytes)
	if s.Store != nil {
		stored, err := s.Store.Save(ctx, object.PutInput{
			Folder:      roleplayFolder,
			Namespace:   userID,
			FileName:    fileName,
			ContentType: audio.ContentType,
			Body:        body,
		})
		if err != nil {
			return "", "", fmt.Errorf("store audio: %w", err)
		}
		rc, err := s.Store.Open(ctx, stored.Key)
		if err != nil {
			return "", "", fmt.Errorf("open audio: %w", err)
		}
		defer rc.Close()
		body, key = rc, stored.Key
	}
	t, err := s.Transcriber.Transcribe(ctx, body, fileName, calls.TranscribeLanguage)
	if err != nil {
		return "", "", fmt.Errorf("transcribe roleplay: %w", err)
	}
	return strings.TrimSpace(t.Text), key, nil
}

func (s *Service) record(ctx context.Context, res Result) (Result, error) {
	res.ID = uuid.NewString()
	res.Score = float64(res.Analysis.Score)
	res.Feedback = res.Analysis.Feedback
	res.WeakAreas = res.Analysis.weakAreas()
	res.CreatedAt = s.now()
	if err := s.Repo.Create(ctx, res); err != nil {
		return Result{}, err
	}
	telemetry.Info("skilltest.graded", map[string]any{
		"request_id": analysis.RequestIDFromContext(ctx),
		"user_id":    res.UserID,
		"test_type":  string(res.TestType),
		"result_id":  res.ID,
		"score":      res.Score,
	})
	return res, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
