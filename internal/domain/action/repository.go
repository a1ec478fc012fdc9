package action

import (
	"context"
	"time"
)

// Filter narrows repository listings. Zero values mean "no constraint".
type Filter struct {
	InvoiceID  string
	CustomerID string
	Status     string
	Type       string
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// Repository is the persistence port for collection actions. The postgres
// implementation lives in internal/infrastructure/database/postgres; tests
// use the in-memory implementation below.
type Repository interface {
	Save(ctx context.Context, a *Action) error
	SaveBatch(ctx context.Context, actions []*Action) error
	GetByID(ctx context.Context, id string) (*Action, error)
	List(ctx context.Context, f Filter) ([]*Action, error)
	Update(ctx context.Context, a *Action) error
	CountByInvoice(ctx context.Context, invoiceID string) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
