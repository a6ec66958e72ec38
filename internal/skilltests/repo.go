package skilltests

import "context"

type Repo interface {
	Create(ctx context.Context, r Result) error
	// ListByUser returns the user's results, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Result, error)
	// LatestByType returns the newest result of each type the user has taken.
	LatestByType(ctx context.Context, userID string) (map[TestType]Result, error)
}
