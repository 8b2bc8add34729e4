package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "main/internal/domain/entity/agent"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

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

const agentColumns = `
	product_id, name, category, brand, pricing, seasonality,
	status, is_active, current_strategy, last_decision_at,
	config, metrics, current_decision, active_actions, recent_decisions, learning_notes,
	created_at, updated_at`

const upsertAgentQuery = `
	INSERT INTO agents (` + agentColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	ON CONFLICT (product_id) DO UPDATE SET
		name=EXCLUDED.name,
		category=EXCLUDED.category,
		brand=EXCLUDED.brand,
		pricing=EXCLUDED.pricing,
		seasonality=EXCLUDED.seasonality,
		status=EXCLUDED.status,
		is_active=EXCLUDED.is_active,
		current_strategy=EXCLUDED.current_strategy,
		last_decision_at=EXCLUDED.last_decision_at,
		config=EXCLUDED.config,
		metrics=EXCLUDED.metrics,
		current_decision=EXCLUDED.current_decision,
		active_actions=EXCLUDED.active_actions,
		recent_decisions=EXCLUDED.recent_decisions,
		learning_notes=EXCLUDED.learning_notes,
		updated_at=EXCLUDED.updated_at`

// Save upserts the full agent record; nested state lives in JSONB columns.
func (r *Repository) Save(ctx context.Context, a *domain.Agent) error {
	if a == nil {
		return errors.New("nil agent")
	}
	pricing, err := marshalJSON(a.Pricing)
	if err != nil {
		return err
	}
	seasonality, err := marshalJSON(a.Seasonality)
	if err != nil {
		return err
	}
	config, err := marshalJSON(a.Config)
	if err != nil {
		return err
	}
	metrics, err := marshalJSON(a.Metrics)
	if err != nil {
		return err
	}
	var currentDecision []byte
	if a.CurrentDecision != nil {
		currentDecision, err = marshalJSON(a.CurrentDecision)
		if err != nil {
			return err
		}
	}
	activeActions, err := marshalJSON(a.ActiveActions)
	if err != nil {
		return err
	}
	recentDecisions, err := marshalJSON(a.RecentDecisions)
	if err != nil {
		return err
	}
	learningNotes, err := marshalJSON(a.LearningNotes)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, upsertAgentQuery,
		a.ProductID,
		a.Name,
		a.Category,
		a.Brand,
		pricing,
		seasonality,
		a.Status,
		a.IsActive,
		a.CurrentStrategy,
		a.LastDecisionAt,
		config,
		metrics,
		currentDecision,
		activeActions,
		recentDecisions,
		learningNotes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *Repository) Get(ctx context.Context, productID string) (*domain.Agent, error) {
	const query = `SELECT ` + agentColumns + ` FROM agents WHERE product_id=$1`
	a, err := scanAgent(r.pool.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Agent, error) {
	const query = `SELECT ` + agentColumns + ` FROM agents ORDER BY product_id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func scanAgent(row pgx.Row) (domain.Agent, error) {
	var (
		a               domain.Agent
		pricing         []byte
		seasonality     []byte
		config          []byte
		metrics         []byte
		currentDecision []byte
		activeActions   []byte
		recentDecisions []byte
		learningNotes   []byte
	)
	err := row.Scan(
		&a.ProductID,
		&a.Name,
		&a.Category,
		&a.Brand,
		&pricing,
		&seasonality,
		&a.Status,
		&a.IsActive,
		&a.CurrentStrategy,
		&a.LastDecisionAt,
		&config,
		&metrics,
		&currentDecision,
		&activeActions,
		&recentDecisions,
		&learningNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Agent{}, err
	}
	if err := unmarshalJSON(pricing, &a.Pricing); err != nil {
		return domain.Agent{}, fmt.Errorf("decode pricing: %w", err)
	}
	if err := unmarshalJSON(seasonality, &a.Seasonality); err != nil {
		return domain.Agent{}, fmt.Errorf("decode seasonality: %w", err)
	}
	if err := unmarshalJSON(config, &a.Config); err != nil {
		return domain.Agent{}, fmt.Errorf("decode config: %w", err)
	}
	if err := unmarshalJSON(metrics, &a.Metrics); err != nil {
		return domain.Agent{}, fmt.Errorf("decode metrics: %w", err)
	}
	if len(currentDecision) > 0 {
		var decision domain.Decision
		if err := json.Unmarshal(currentDecision, &decision); err != nil {
			return domain.Agent{}, fmt.Errorf("decode current decision: %w", err)
		}
		a.CurrentDecision = &decision
	}
	if err := unmarshalJSON(activeActions, &a.ActiveActions); err != nil {
		return domain.Agent{}, fmt.Errorf("decode active actions: %w", err)
	}
	if err := unmarshalJSON(recentDecisions, &a.RecentDecisions); err != nil {
		return domain.Agent{}, fmt.Errorf("decode recent decisions: %w", err)
	}
	if err := unmarshalJSON(learningNotes, &a.LearningNotes); err != nil {
		return domain.Agent{}, fmt.Errorf("decode learning notes: %w", err)
	}
	return a, nil
}

func marshalJSON(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal json payload: %w", err)
	}
	return data, nil
}

func unmarshalJSON(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
