package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

// Service exposes pricing rule management and price computation.
type Service interface {
	CreateRule(ctx context.Context, scope tenantctx.Scope, input RuleInput) (*RuleDTO, error)
	GetRule(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*RuleDTO, error)
	ListRules(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]RuleDTO, error)
	UpdateRule(ctx context.Context, scope tenantctx.Scope, id uuid.UUID, input RuleUpdateInput) (*RuleDTO, error)
	DeleteRule(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) error
	ComputePrice(ctx context.Context, tenantID, pairID uuid.UUID, base decimal.Decimal, currency enums.Currency) (decimal.Decimal, error)
}

// RuleInput holds the validated payload to create a rule.
type RuleInput struct {
	TenantID         *uuid.UUID
	ConnectionPairID *uuid.UUID
	RuleType         string
	Priority         int
	Amount           decimal.Decimal
	RoundPlaces      *int32
	Active           bool
}

// RuleUpdateInput holds optional mutation values for a rule.
type RuleUpdateInput struct {
	Priority    *int
	Amount      *decimal.Decimal
	RoundPlaces *int32
	Active      *bool
}

// RuleDTO is the external representation of a pricing rule.
type RuleDTO struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	ConnectionPairID *uuid.UUID      `json:"connection_pair_id,omitempty"`
	RuleType         enums.RuleType  `json:"rule_type"`
	Priority         int             `json:"priority"`
	Amount           decimal.Decimal `json:"amount"`
	RoundPlaces      *int32          `json:"round_places,omitempty"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type service struct {
	repo *Repository
}

// NewService constructs a pricing service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateRule(ctx context.Context, scope tenantctx.Scope, input RuleInput) (*RuleDTO, error) {
	tenantID, err := scope.ResolveTenant(input.TenantID)
	if err != nil {
		return nil, err
	}

	ruleType, err := enums.ParseRuleType(input.RuleType)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	rule := models.PricingRule{
		TenantID:         tenantID,
		ConnectionPairID: input.ConnectionPairID,
		RuleType:         ruleType,
		Priority:         input.Priority,
		Amount:           input.Amount,
		RoundPlaces:      input.RoundPlaces,
		Active:           input.Active,
	}

	// The rule must validate against its scope siblings before it lands.
	if rule.Active {
		existing, err := s.repo.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading existing rules")
		}
		if err := validate(append(activeInScope(existing, input.ConnectionPairID), rule)); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, &rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating rule")
	}
	dto := toRuleDTO(rule)
	return &dto, nil
}

func (s *service) GetRule(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*RuleDTO, error) {
	rule, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	dto := toRuleDTO(*rule)
	return &dto, nil
}

func (s *service) ListRules(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]RuleDTO, error) {
	resolved, err := scope.ResolveTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByTenant(ctx, resolved)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing rules")
	}
	dtos := make([]RuleDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toRuleDTO(row))
	}
	return dtos, nil
}

func (s *service) UpdateRule(ctx context.Context, scope tenantctx.Scope, id uuid.UUID, input RuleUpdateInput) (*RuleDTO, error) {
	rule, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.Amount != nil {
		rule.Amount = *input.Amount
	}
	if input.RoundPlaces != nil {
		rule.RoundPlaces = input.RoundPlaces
	}
	if input.Active != nil {
		rule.Active = *input.Active
	}

	if rule.Active {
		existing, err := s.repo.ListByTenant(ctx, rule.TenantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading existing rules")
		}
		siblings := make([]models.PricingRule, 0, len(existing))
		for _, sibling := range activeInScope(existing, rule.ConnectionPairID) {
			if sibling.ID != rule.ID {
				siblings = append(siblings, sibling)
			}
		}
		if err := validate(append(siblings, *rule)); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating rule")
	}
	dto := toRuleDTO(*rule)
	return &dto, nil
}

func (s *service) DeleteRule(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) error {
	rule, err := s.load(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rule.TenantID, rule.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting rule")
	}
	return nil
}

// ComputePrice loads the applicable rules for the pair and runs the engine.
func (s *service) ComputePrice(ctx context.Context, tenantID, pairID uuid.UUID, base decimal.Decimal, currency enums.Currency) (decimal.Decimal, error) {
	rules, err := s.repo.ListForScope(ctx, tenantID, pairID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pricing rules")
	}
	return Compute(base, currency, rules)
}

func (s *service) load(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*models.PricingRule, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule id is required")
	}
	if scope.IsSuperAdmin() {
		var rule models.PricingRule
		if err := s.repo.DB(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing rule not found")
		}
		return &rule, nil
	}
	tenantID, err := scope.ResolveTenant(nil)
	if err != nil {
		return nil, err
	}
	rule, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading rule")
	}
	if rule == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing rule not found")
	}
	return rule, nil
}

func activeInScope(rules []models.PricingRule, pairID *uuid.UUID) []models.PricingRule {
	out := make([]models.PricingRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		sameScope := (rule.ConnectionPairID == nil && pairID == nil) ||
			(rule.ConnectionPairID != nil && pairID != nil && *rule.ConnectionPairID == *pairID)
		if sameScope {
			out = append(out, rule)
		}
	}
	return out
}

func toRuleDTO(rule models.PricingRule) RuleDTO {
	return RuleDTO{
		ID:               rule.ID,
		TenantID:         rule.TenantID,
		ConnectionPairID: rule.ConnectionPairID,
		RuleType:         rule.RuleType,
		Priority:         rule.Priority,
		Amount:           rule.Amount,
		RoundPlaces:      rule.RoundPlaces,
		Active:           rule.Active,
		CreatedAt:        rule.CreatedAt,
		UpdatedAt:        rule.UpdatedAt,
	}
}
