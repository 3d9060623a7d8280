package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

var (
	oneHundred = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
)

// Compute applies the active rules to the supplier price and returns the
// final selling price. Rules run in ascending priority order; rounding
// rules always run last no matter their priority. Equal priorities are only
// rejected within one scope: a tenant-wide and a pair-scoped rule may tie,
// and between them the caller's slice order decides (the repository loads
// rules oldest first, so the earlier-created rule applies first). With no
// applicable rules the supplier price passes through untouched. Any
// malformed rule aborts the whole computation with VALIDATION_ERROR.
func Compute(base decimal.Decimal, currency enums.Currency, rules []models.PricingRule) (decimal.Decimal, error) {
	active := make([]models.PricingRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Active {
			active = append(active, rule)
		}
	}
	if len(active) == 0 {
		return base, nil
	}

	if err := validate(active); err != nil {
		return decimal.Zero, err
	}

	transforms, rounders := split(active)
	sortByPriority(transforms)
	sortByPriority(rounders)

	price := base
	for _, rule := range transforms {
		price = applyTransform(price, rule)
	}
	for _, rule := range rounders {
		price = applyRound(price, rule, currency)
	}

	return price.Round(currency.Exponent()), nil
}

func validate(rules []models.PricingRule) error {
	type scopeKey struct {
		pairScoped bool
		priority   int
	}
	seen := make(map[scopeKey]struct{}, len(rules))
	for _, rule := range rules {
		if !rule.RuleType.IsValid() {
			return invalidRule(rule, fmt.Sprintf("unknown rule type %q", rule.RuleType))
		}
		switch rule.RuleType {
		case enums.RuleTypeMinClamp, enums.RuleTypeMaxClamp:
			if rule.Amount.IsZero() {
				return invalidRule(rule, "clamp rules require a non-zero amount")
			}
		case enums.RuleTypeRound:
			if rule.RoundPlaces != nil && (*rule.RoundPlaces < 0 || *rule.RoundPlaces > 6) {
				return invalidRule(rule, "round places must be between 0 and 6")
			}
		}

		key := scopeKey{pairScoped: rule.ConnectionPairID != nil, priority: rule.Priority}
		if _, dup := seen[key]; dup {
			return invalidRule(rule, fmt.Sprintf("duplicate priority %d within the same scope", rule.Priority))
		}
		seen[key] = struct{}{}
	}
	return nil
}

func split(rules []models.PricingRule) (transforms, rounders []models.PricingRule) {
	for _, rule := range rules {
		if rule.RuleType == enums.RuleTypeRound {
			rounders = append(rounders, rule)
		} else {
			transforms = append(transforms, rule)
		}
	}
	return transforms, rounders
}

func sortByPriority(rules []models.PricingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}

func applyTransform(price decimal.Decimal, rule models.PricingRule) decimal.Decimal {
	switch rule.RuleType {
	case enums.RuleTypePercentMarkup:
		return price.Mul(one.Add(rule.Amount.Div(oneHundred)))
	case enums.RuleTypeFixedAdjustment:
		return price.Add(rule.Amount)
	case enums.RuleTypeMinClamp:
		if price.LessThan(rule.Amount) {
			return rule.Amount
		}
		return price
	case enums.RuleTypeMaxClamp:
		if price.GreaterThan(rule.Amount) {
			return rule.Amount
		}
		return price
	}
	return price
}

func applyRound(price decimal.Decimal, rule models.PricingRule, currency enums.Currency) decimal.Decimal {
	places := currency.Exponent()
	if rule.RoundPlaces != nil {
		places = *rule.RoundPlaces
	}
	return price.Round(places)
}

func invalidRule(rule models.PricingRule, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing rule: "+reason).
		WithDetails(map[string]any{
			"rule_id":   rule.ID.String(),
			"rule_type": rule.RuleType.String(),
			"priority":  rule.Priority,
		})
}
