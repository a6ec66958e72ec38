package admincards

import "context"

type Repo interface {
	Create(ctx context.Context, card Card) error
	Get(ctx context.Context, id string) (Card, error)
	// ListByUsers returns cards of userIDs, newest first. A nil slice lists all cards.
	ListByUsers(ctx context.Context, userIDs []string) ([]Card, error)
	SetShare(ctx context.Context, id string, shared bool, token string) error
	// GetShared returns a shared card by its token.
	GetShared(ctx context.Context, token string) (Card, error)
}
