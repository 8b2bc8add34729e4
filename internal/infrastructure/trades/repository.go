package trades

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "main/internal/domain/entity/trade"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStaleTransition is returned when a transition races another writer:
// the stored status no longer matches the expected one.
var ErrStaleTransition = errors.New("trade status changed concurrently")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func NewRepositoryWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const tradeColumns = `
	trade_id, decision_id, status, from_store_id, to_store_id, product_id, sku,
	quantity, estimated_profit, transport_cost, urgency_score,
	proposed_by, approved_by, rejected_by, rejection_reason, reasoning,
	constraints, execution,
	proposed_at, approved_at, rejected_at, executed_at, completed_at, failed_at,
	created_at, updated_at`

const insertTradeQuery = `
	INSERT INTO trades (` + tradeColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)`

func (r *Repository) Create(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	constraints, err := marshalJSON(t.Constraints)
	if err != nil {
		return err
	}
	execution, err := marshalExecution(t.Execution)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertTradeQuery,
		t.ID,
		t.DecisionID,
		t.Status,
		t.FromStoreID,
		t.ToStoreID,
		t.ProductID,
		t.SKU,
		t.Quantity,
		t.EstimatedProfit,
		t.TransportCost,
		t.UrgencyScore,
		t.ProposedBy,
		nullableString(t.ApprovedBy),
		nullableString(t.RejectedBy),
		nullableString(t.RejectionReason),
		nullableString(t.Reasoning),
		constraints,
		execution,
		t.ProposedAt,
		t.ApprovedAt,
		t.RejectedAt,
		t.ExecutedAt,
		t.CompletedAt,
		t.FailedAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*domain.Trade, error) {
	const query = `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id=$1`
	t, err := scanTrade(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

const updateTransitionQuery = `
	UPDATE trades SET
		status=$3, approved_by=$4, rejected_by=$5, rejection_reason=$6, execution=$7,
		approved_at=$8, rejected_at=$9, executed_at=$10, completed_at=$11, failed_at=$12,
		updated_at=$13
	WHERE trade_id=$1 AND status=$2`

// UpdateTransition applies the already-transitioned trade, guarded by the
// status it was read at. Zero rows affected means a concurrent transition.
func (r *Repository) UpdateTransition(ctx context.Context, t *domain.Trade, from domain.Status) error {
	if t == nil {
		return errors.New("nil trade")
	}
	execution, err := marshalExecution(t.Execution)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateTransitionQuery,
		t.ID,
		from,
		t.Status,
		nullableString(t.ApprovedBy),
		nullableString(t.RejectedBy),
		nullableString(t.RejectionReason),
		execution,
		t.ApprovedAt,
		t.RejectedAt,
		t.ExecutedAt,
		t.CompletedAt,
		t.FailedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transition trade %s from %s: %w", t.ID, from, ErrStaleTransition)
	}
	return nil
}

func (r *Repository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Trade, error) {
	const query = `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status=$1
		ORDER BY proposed_at DESC
		LIMIT $2`
	return r.list(ctx, query, status, limit)
}

func (r *Repository) ListByStore(ctx context.Context, storeID string, limit int) ([]domain.Trade, error) {
	const query = `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE from_store_id=$1 OR to_store_id=$1
		ORDER BY proposed_at DESC
		LIMIT $2`
	return r.list(ctx, query, storeID, limit)
}

// ListPending returns proposed trades whose delivery deadline has not
// passed, most urgent and oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]domain.Trade, error) {
	const query = `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status='proposed' AND (constraints->>'delivery_deadline')::timestamptz > now()
		ORDER BY urgency_score DESC, proposed_at ASC
		LIMIT $1`
	return r.list(ctx, query, limit)
}

const statsQuery = `
	SELECT status,
	       COUNT(*),
	       COALESCE(SUM(estimated_profit), 0),
	       COALESCE(AVG(estimated_profit), 0),
	       COALESCE(SUM(transport_cost), 0)
	FROM trades
	GROUP BY status`

func (r *Repository) Stats(ctx context.Context) ([]domain.StatusStats, error) {
	rows, err := r.pool.Query(ctx, statsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.StatusStats
	for rows.Next() {
		var s domain.StatusStats
		if err := rows.Scan(&s.Status, &s.Count, &s.TotalProfit, &s.AvgProfit, &s.TotalTransportCost); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Trade, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var (
		t               domain.Trade
		approvedBy      *string
		rejectedBy      *string
		rejectionReason *string
		reasoning       *string
		constraints     []byte
		execution       []byte
	)
	err := row.Scan(
		&t.ID,
		&t.DecisionID,
		&t.Status,
		&t.FromStoreID,
		&t.ToStoreID,
		&t.ProductID,
		&t.SKU,
		&t.Quantity,
		&t.EstimatedProfit,
		&t.TransportCost,
		&t.UrgencyScore,
		&t.ProposedBy,
		&approvedBy,
		&rejectedBy,
		&rejectionReason,
		&reasoning,
		&constraints,
		&execution,
		&t.ProposedAt,
		&t.ApprovedAt,
		&t.RejectedAt,
		&t.ExecutedAt,
		&t.CompletedAt,
		&t.FailedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	t.ApprovedBy = deref(approvedBy)
	t.RejectedBy = deref(rejectedBy)
	t.RejectionReason = deref(rejectionReason)
	t.Reasoning = deref(reasoning)
	if len(constraints) > 0 {
		if err := json.Unmarshal(constraints, &t.Constraints); err != nil {
			return domain.Trade{}, fmt.Errorf("decode constraints: %w", err)
		}
	}
	if len(execution) > 0 {
		var exec domain.Execution
		if err := json.Unmarshal(execution, &exec); err != nil {
			return domain.Trade{}, fmt.Errorf("decode execution: %w", err)
		}
		t.Execution = &exec
	}
	return t, nil
}

func marshalJSON(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal json payload: %w", err)
	}
	return data, nil
}

func marshalExecution(exec *domain.Execution) ([]byte, error) {
	if exec == nil {
		return nil, nil
	}
	return marshalJSON(*exec)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
