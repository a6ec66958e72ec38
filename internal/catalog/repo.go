package catalog

import "context"

type Repo interface {
	Create(ctx context.Context, p Product) error
	Get(ctx context.Context, id string) (Product, error)
	// ListBySalon returns the salon's products ordered by name.
	ListBySalon(ctx context.Context, salonID string, activeOnly bool) ([]Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, salonID, id string) error
}
