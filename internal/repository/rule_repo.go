package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"replyflow/internal/model"
)

type RuleRepository struct {
	db *pgxpool.Pool
}

func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

// Conditions and the action are stored as JSONB; the action uses the same
// tagged encoding the API serves, so the persisted representation mirrors
// the wire representation exactly.

func scanRule(row pgx.Row) (*model.Rule, error) {
	var r model.Rule
	var conditions, action []byte

	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Name,
		&r.Active,
		&conditions,
		&action,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
		return nil, fmt.Errorf("failed to decode rule conditions: %w", err)
	}
	r.Action, err = model.UnmarshalAction(action)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule action: %w", err)
	}

	// precompile matches patterns so evaluation never compiles
	for i := range r.Conditions {
		if err := r.Conditions[i].Validate(); err != nil {
			return nil, fmt.Errorf("stored rule %s is invalid: %w", r.ID, err)
		}
	}

	return &r, nil
}

// Create inserts the rule. ID and timestamps are assigned by the service.
func (r *RuleRepository) Create(ctx context.Context, rule *model.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	action, err := model.MarshalAction(rule.Action)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO rules (id, user_id, name, active, conditions, action, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err = r.db.Exec(ctx, query,
		rule.ID,
		rule.UserID,
		rule.Name,
		rule.Active,
		conditions,
		action,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	return err
}

// FindByID returns a single rule owned by the user.
func (r *RuleRepository) FindByID(ctx context.Context, userID, id string) (*model.Rule, error) {
	query := `
        SELECT id, user_id, name, active, conditions, action, created_at, updated_at
        FROM rules
        WHERE id = $1 AND user_id = $2
    `
	return scanRule(r.db.QueryRow(ctx, query, id, userID))
}

// ListByUser returns all rules for a user in stored order. The engine
// relies on this order for first-match selection.
func (r *RuleRepository) ListByUser(ctx context.Context, userID string) ([]model.Rule, error) {
	query := `
        SELECT id, user_id, name, active, conditions, action, created_at, updated_at
        FROM rules
        WHERE user_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []model.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

// ListActiveByUser returns only active rules, in stored order.
func (r *RuleRepository) ListActiveByUser(ctx context.Context, userID string) ([]model.Rule, error) {
	query := `
        SELECT id, user_id, name, active, conditions, action, created_at, updated_at
        FROM rules
        WHERE user_id = $1 AND active = TRUE
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []model.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

// Update rewrites the mutable fields in a single statement and bumps
// updated_at. Returns ErrNotFound when the rule is absent.
func (r *RuleRepository) Update(ctx context.Context, rule *model.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	action, err := model.MarshalAction(rule.Action)
	if err != nil {
		return err
	}

	query := `
        UPDATE rules
        SET name = $1, active = $2, conditions = $3, action = $4, updated_at = $5
        WHERE id = $6 AND user_id = $7
    `
	tag, err := r.db.Exec(ctx, query,
		rule.Name,
		rule.Active,
		conditions,
		action,
		rule.UpdatedAt,
		rule.ID,
		rule.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes the rule. Returns ErrNotFound when the id is absent.
func (r *RuleRepository) Delete(ctx context.Context, userID, id string) error {
	query := `
        DELETE FROM rules
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
