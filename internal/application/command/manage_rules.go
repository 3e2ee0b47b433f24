package command

import (
	"context"
	"strings"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// RuleHandler manages the reward and punishment catalogue.
type RuleHandler struct {
	uow    store.UnitOfWork
	logger *logger.Logger
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(uow store.UnitOfWork, log *logger.Logger) *RuleHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RuleHandler{uow: uow, logger: log.With(logger.Component("rules"))}
}

// Create adds a rule. Names are unique.
func (h *RuleHandler) Create(ctx context.Context, r rule.Rule) (*rule.Rule, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, found, err := repos.Rules.FindByName(ctx, r.Name); err != nil {
			return err
		} else if found {
			return shared.ErrRuleAlreadyExists
		}
		return repos.Rules.Create(ctx, &r)
	})
	if err != nil {
		return nil, failure(h.logger, "rule", "Create", err)
	}
	return &r, nil
}

// Update replaces a rule. Changing points does not touch existing ledgers.
func (h *RuleHandler) Update(ctx context.Context, r rule.Rule) (*rule.Rule, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		cur, err := repos.Rules.GetByID(ctx, r.ID)
		if err != nil {
			return err
		}
		if other, found, err := repos.Rules.FindByName(ctx, r.Name); err != nil {
			return err
		} else if found && other.ID != r.ID {
			return shared.ErrRuleAlreadyExists
		}
		r.UUID = cur.UUID
		return repos.Rules.Update(ctx, &r)
	})
	if err != nil {
		return nil, failure(h.logger, "rule", "Update", err)
	}
	return &r, nil
}

// Delete removes a rule. Logs and records that used it stay; records lose
// the reference.
func (h *RuleHandler) Delete(ctx context.Context, id int64) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.Rules.Delete(ctx, id)
	})
	if err != nil {
		return failure(h.logger, "rule", "Delete", err)
	}
	return nil
}

// Seed creates the default rules that are missing and returns how many were
// created.
func (h *RuleHandler) Seed(ctx context.Context) (int, error) {
	var created int
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		n, err := rule.Seed(ctx, repos.Rules)
		created = n
		return err
	})
	if err != nil {
		return 0, failure(h.logger, "rule", "Seed", err)
	}
	h.logger.Info("rules seeded", logger.Int("created", created))
	return created, nil
}
