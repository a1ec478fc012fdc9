package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/action"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
	"github.com/turtacn/CashFlow-Sentinel/pkg/types/ar"
)

const uniqueViolation = "23505"

const actionColumns = `id, invoice_id, customer_id, attempt, action_type, status, outcome, scheduled_at, completed_at, notes, created_at`

// ActionRepository persists collection actions in the
// collection_actions audit table.
type ActionRepository struct {
	pool *Pool
	log  logging.Logger
}

// NewActionRepository returns a postgres-backed action.Repository.
func NewActionRepository(pool *Pool, log logging.Logger) *ActionRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ActionRepository{pool: pool, log: log.Named("action_repo")}
}

var _ action.Repository = (*ActionRepository)(nil)

func (r *ActionRepository) Save(ctx context.Context, a *action.Action) error {
	const q = `INSERT INTO collection_actions (` + actionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Pool().Exec(ctx, q,
		a.ID, a.InvoiceID, a.CustomerID, a.Attempt,
		string(a.Type), string(a.Status), string(a.Outcome),
		a.ScheduledAt, a.CompletedAt, a.Notes, a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.New(errors.ErrCodeConflict, "action already exists").
				WithDetail("action_id=" + a.ID)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting action")
	}
	return nil
}

func (r *ActionRepository) SaveBatch(ctx context.Context, actions []*action.Action) error {
	if len(actions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `INSERT INTO collection_actions (` + actionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, a := range actions {
		batch.Queue(q,
			a.ID, a.InvoiceID, a.CustomerID, a.Attempt,
			string(a.Type), string(a.Status), string(a.Outcome),
			a.ScheduledAt, a.CompletedAt, a.Notes, a.CreatedAt)
	}

	results := r.pool.Pool().SendBatch(ctx, batch)
	defer results.Close()
	for range actions {
		if _, err := results.Exec(); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting action batch")
		}
	}
	return nil
}

func (r *ActionRepository) GetByID(ctx context.Context, id string) (*action.Action, error) {
	const q = `SELECT ` + actionColumns + ` FROM collection_actions WHERE id = $1`
	a, err := scanAction(r.pool.Pool().QueryRow(ctx, q, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeAttemptNotFound, "action not found").
				WithDetail("action_id=" + id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading action")
	}
	return a, nil
}

func (r *ActionRepository) List(ctx context.Context, f action.Filter) ([]*action.Action, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.InvoiceID != "" {
		where = append(where, "invoice_id = "+arg(f.InvoiceID))
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = "+arg(f.CustomerID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.Type != "" {
		where = append(where, "action_type = "+arg(f.Type))
	}
	if !f.Since.IsZero() {
		where = append(where, "scheduled_at >= "+arg(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "scheduled_at <= "+arg(f.Until))
	}

	q := `SELECT ` + actionColumns + ` FROM collection_actions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY scheduled_at, id"
	if f.Limit > 0 {
		q += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		q += " OFFSET " + arg(f.Offset)
	}

	rows, err := r.pool.Pool().Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing actions")
	}
	defer rows.Close()

	var out []*action.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning action row")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating action rows")
	}
	return out, nil
}

func (r *ActionRepository) Update(ctx context.Context, a *action.Action) error {
	const q = `UPDATE collection_actions
		SET status = $2, outcome = $3, scheduled_at = $4, completed_at = $5, notes = $6
		WHERE id = $1`

	tag, err := r.pool.Pool().Exec(ctx, q,
		a.ID, string(a.Status), string(a.Outcome), a.ScheduledAt, a.CompletedAt, a.Notes)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "updating action")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeAttemptNotFound, "action not found").
			WithDetail("action_id=" + a.ID)
	}
	return nil
}

func (r *ActionRepository) CountByInvoice(ctx context.Context, invoiceID string) (int, error) {
	const q = `SELECT COUNT(*) FROM collection_actions WHERE invoice_id = $1`
	var n int
	if err := r.pool.Pool().QueryRow(ctx, q, invoiceID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting actions")
	}
	return n, nil
}

func (r *ActionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM collection_actions WHERE created_at < $1`
	tag, err := r.pool.Pool().Exec(ctx, q, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "deleting old actions")
	}
	return tag.RowsAffected(), nil
}

func scanAction(row pgx.Row) (*action.Action, error) {
	var (
		a                    action.Action
		typ, status, outcome string
	)
	if err := row.Scan(&a.ID, &a.InvoiceID, &a.CustomerID, &a.Attempt,
		&typ, &status, &outcome, &a.ScheduledAt, &a.CompletedAt, &a.Notes, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = ar.ActionType(typ)
	a.Status = ar.ActionStatus(status)
	a.Outcome = ar.ActionOutcome(outcome)
	return &a, nil
}
