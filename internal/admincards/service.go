package admincards

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/calls"
	"github.com/seregajade-png/analysis-beauty/internal/chats"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
	"github.com/seregajade-png/analysis-beauty/internal/shared/util"
	"github.com/seregajade-png/analysis-beauty/internal/skilltests"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

type CallSource interface {
	RecentCompleted(ctx context.Context, userID string, limit int) ([]calls.Call, error)
}

type ChatSource interface {
	RecentCompleted(ctx context.Context, userID string, limit int) ([]chats.Chat, error)
}

type TestSource interface {
	LatestByType(ctx context.Context, userID string) (map[skilltests.TestType]skilltests.Result, error)
}

// Directory resolves users and the staff they manage.
type Directory interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
	ManagedIDs(ctx context.Context, managerID string) ([]string, error)
}

// Service generates and serves administrator cards.
type Service struct {
	Repo      Repo
	Calls     CallSource
	Chats     ChatSource
	Tests     TestSource
	Users     Directory
	Completer llm.Completer
	// PublicBaseURL prefixes share links.
	PublicBaseURL string
	Now           func() time.Time
}

// GenerateInput selects whose card to build. Empty UserID means the caller.
type GenerateInput struct {
	UserID    string `json:"userId"`
	AdminName string `json:"adminName"`
}

// Share is the result of toggling a card's public link.
type Share struct {
	ShareToken *string `json:"shareToken"`
	ShareURL   *string `json:"shareUrl"`
}

type material struct {
	calls []scored
	chats []scored
	tests TestSummary
}

// Generate aggregates the target user's recent activity, asks the model for
// a card and stores it.
func (s *Service) Generate(ctx context.Context, caller auth.Identity, in GenerateInput) (Card, Generated, error) {
	targetID := strings.TrimSpace(in.UserID)
	if targetID == "" {
		targetID = caller.UserID
	}
	if err := s.authorize(ctx, caller, targetID); err != nil {
		return Card{}, Generated{}, err
	}

	m, err := s.gather(ctx, targetID)
	if err != nil {
		return Card{}, Generated{}, err
	}
	adminName := s.adminName(ctx, caller, targetID, in.AdminName)

	if s.Completer == nil {
		return Card{}, Generated{}, llm.ErrNotConfigured
	}
	cardInput := llm.CardInput{
		AdminName:  adminName,
		CallScores: overallScores(m.calls),
		ChatScores: overallScores(m.chats),
	}
	if !m.tests.empty() {
		cardInput.TestSummary = m.tests
	}
	text, err := s.Completer.Complete(ctx, llm.AdminCardSystemPrompt, llm.AdminCardMessage(cardInput))
	if err != nil {
		return Card{}, Generated{}, fmt.Errorf("generate card: %w", err)
	}
	var gen Generated
	if err := analysis.ParseInto(text, &gen); err != nil {
		return Card{}, Generated{}, fmt.Errorf("generate card: %w", err)
	}

	now := s.now()
	card := Card{
		ID:              uuid.NewString(),
		UserID:          targetID,
		CreatedBy:       caller.UserID,
		AdminName:       adminName,
		SalonName:       caller.SalonName,
		OverallScore:    float64(gen.OverallScore),
		Summary:         gen.Summary,
		Skills:          nonNilSkills(gen.Skills),
		DevelopmentPlan: nonNilPlan(gen.DevelopmentPlan),
		CallSummary:     summarize(m.calls),
		ChatSummary:     summarize(m.chats),
		TestSummary:     m.tests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, card); err != nil {
		return Card{}, Generated{}, err
	}
	telemetry.Info("admin_card.generated", map[string]any{
		"request_id":    analysis.RequestIDFromContext(ctx),
		"card_id":       card.ID,
		"user_id":       targetID,
		"created_by":    caller.UserID,
		"calls":         len(m.calls),
		"chats":         len(m.chats),
		"overall_score": card.OverallScore,
	})
	return card, gen, nil
}

// gather loads recent calls, chats and tests of userID in parallel.
func (s *Service) gather(ctx context.Context, userID string) (material, error) {
	var m material
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.Calls == nil {
			return nil
		}
		list, err := s.Calls.RecentCompleted(gctx, userID, recentLimit)
		if err != nil {
			return fmt.Errorf("load calls: %w", err)
		}
		for _, c := range list {
			m.calls = append(m.calls, scored{Score: scoreOf(c.OverallScore), StageScores: c.StageScores})
		}
		return nil
	})
	g.Go(func() error {
		if s.Chats == nil {
			return nil
		}
		list, err := s.Chats.RecentCompleted(gctx, userID, recentLimit)
		if err != nil {
			return fmt.Errorf("load chats: %w", err)
		}
		for _, c := range list {
			m.chats = append(m.chats, scored{Score: scoreOf(c.OverallScore), StageScores: c.StageScores})
		}
		return nil
	})
	g.Go(func() error {
		if s.Tests == nil {
			return nil
		}
		latest, err := s.Tests.LatestByType(gctx, userID)
		if err != nil {
			return fmt.Errorf("load tests: %w", err)
		}
		m.tests = summarizeTests(latest)
		return nil
	})
	if err := g.Wait(); err != nil {
		return material{}, err
	}
	return m, nil
}

func (s *Service) adminName(ctx context.Context, caller auth.Identity, targetID, requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	if targetID == caller.UserID {
		if caller.Name != "" {
			return caller.Name
		}
		return defaultAdminName
	}
	if s.Users != nil {
		if u, err := s.Users.GetByID(ctx, targetID); err == nil && u.Name != "" {
			return u.Name
		}
	}
	return defaultAdminName
}

// authorize allows a caller to act on their own data, an owner on anyone's
// and a manager on the staff they manage.
func (s *Service) authorize(ctx context.Context, caller auth.Identity, userID string) error {
	if userID == caller.UserID || caller.Role == users.RoleOwner {
		return nil
	}
	if caller.Role != users.RoleManager || s.Users == nil {
		return ErrForbidden
	}
	managed, err := s.Users.ManagedIDs(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if !slices.Contains(managed, userID) {
		return ErrForbidden
	}
	return nil
}

// List returns the cards visible to caller: administrators see their own,
// managers those of their staff and owners every card.
func (s *Service) List(ctx context.Context, caller auth.Identity) ([]Card, error) {
	switch caller.Role {
	case users.RoleOwner:
		return s.Repo.ListByUsers(ctx, nil)
	case users.RoleManager:
		if s.Users == nil {
			return []Card{}, nil
		}
		managed, err := s.Users.ManagedIDs(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
		if len(managed) == 0 {
			return []Card{}, nil
		}
		return s.Repo.ListByUsers(ctx, managed)
	default:
		return s.Repo.ListByUsers(ctx, []string{caller.UserID})
	}
}

// Get returns a card the caller may see. Cards outside the caller's reach
// are reported as not found.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id string) (Card, error) {
	card, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Card{}, err
	}
	if err := s.authorize(ctx, caller, card.UserID); err != nil {
		if errors.Is(err, ErrForbidden) {
			return Card{}, ErrNotFound
		}
		return Card{}, err
	}
	return card, nil
}

// SetShare toggles the public link of a card belonging to the caller. An
// existing token is reused when sharing again.
func (s *Service) SetShare(ctx context.Context, caller auth.Identity, id string, share bool) (Share, error) {
	card, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Share{}, err
	}
	if card.UserID != caller.UserID {
		return Share{}, ErrNotFound
	}
	token := ""
	if share {
		token = card.ShareToken
		if token == "" {
			token = util.RandomHex(shareTokenBytes)
		}
	}
	if err := s.Repo.SetShare(ctx, id, share, token); err != nil {
		return Share{}, err
	}
	if token == "" {
		return Share{}, nil
	}
	link := strings.TrimRight(s.PublicBaseURL, "/") + "/admin-card?token=" + token
	return Share{ShareToken: &token, ShareURL: &link}, nil
}

// Shared returns a publicly shared card.
func (s *Service) Shared(ctx context.Context, token string) (Card, error) {
	if strings.TrimSpace(token) == "" {
		return Card{}, ErrNotFound
	}
	return s.Repo.GetShared(ctx, token)
}

func scoreOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
