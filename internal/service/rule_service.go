package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"replyflow/internal/model"
)

// RuleStore is the persistence surface the rule service needs.
type RuleStore interface {
	Create(ctx context.Context, rule *model.Rule) error
	FindByID(ctx context.Context, userID, id string) (*model.Rule, error)
	ListByUser(ctx context.Context, userID string) ([]model.Rule, error)
	Update(ctx context.Context, rule *model.Rule) error
	Delete(ctx context.Context, userID, id string) error
}

// RuleUpdate is a partial update: nil fields keep their current value.
type RuleUpdate struct {
	Name       *string
	Active     *bool
	Conditions []model.RuleCondition
	Action     model.RuleAction
}

// RuleService owns rule mutations. Validation happens before any store
// call so invalid rules are never partially applied, and mutations for the
// same rule id are serialized through a keyed mutex.
type RuleService struct {
	store RuleStore
	locks *keyedMutex
}

func NewRuleService(store RuleStore) *RuleService {
	return &RuleService{
		store: store,
		locks: newKeyedMutex(),
	}
}

func (s *RuleService) List(ctx context.Context, userID string) ([]model.Rule, error) {
	return s.store.ListByUser(ctx, userID)
}

// Create validates the rule, assigns an identifier and timestamps, and
// stores it.
func (s *RuleService) Create(ctx context.Context, userID string, rule model.Rule) (*model.Rule, error) {
	rule.ID = uuid.NewString()
	rule.UserID = userID
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Update merges the partial update into the stored rule, validates the
// result and writes it back with a bumped updated_at. Returns ErrNotFound
// when the id is absent.
func (s *RuleService) Update(ctx context.Context, userID, id string, upd RuleUpdate) (*model.Rule, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	rule, err := s.store.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		rule.Name = *upd.Name
	}
	if upd.Active != nil {
		rule.Active = *upd.Active
	}
	if upd.Conditions != nil {
		rule.Conditions = upd.Conditions
	}
	if upd.Action != nil {
		rule.Action = upd.Action
	}
	rule.UpdatedAt = time.Now().UTC()
	if rule.UpdatedAt.Before(rule.CreatedAt) {
		rule.UpdatedAt = rule.CreatedAt
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Delete removes the rule. A missing identifier is reported as
// ErrNotFound rather than silently ignored, so a stale dashboard learns
// its view is out of date.
func (s *RuleService) Delete(ctx context.Context, userID, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.store.Delete(ctx, userID, id)
}

// Toggle flips only the active flag.
func (s *RuleService) Toggle(ctx context.Context, userID, id string) (*model.Rule, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	rule, err := s.store.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rule.Active = !rule.Active
	rule.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}
