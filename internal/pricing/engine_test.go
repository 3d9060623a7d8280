package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func rule(ruleType enums.RuleType, priority int, amount string) models.PricingRule {
	return models.PricingRule{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		RuleType: ruleType,
		Priority: priority,
		Amount:   dec(amount),
		Active:   true,
	}
}

func TestComputeIdentityWithoutRules(t *testing.T) {
	price, err := Compute(dec("9.995"), enums.CurrencyUSD, nil)
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("9.995")), "got %s", price)
}

func TestComputeIgnoresInactiveRules(t *testing.T) {
	inactive := rule(enums.RuleTypePercentMarkup, 1, "10")
	inactive.Active = false

	price, err := Compute(dec("9.995"), enums.CurrencyUSD, []models.PricingRule{inactive})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("9.995")), "got %s", price)
}

func TestComputeMarkupThenRound(t *testing.T) {
	places := int32(2)
	roundRule := rule(enums.RuleTypeRound, 0, "0")
	roundRule.RoundPlaces = &places

	price, err := Compute(dec("9.995"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypePercentMarkup, 1, "10"),
		roundRule,
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("10.99")), "got %s", price)
}

func TestComputeTwentyPercentMarkup(t *testing.T) {
	price, err := Compute(dec("50.00"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypePercentMarkup, 1, "20"),
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("60.00")), "got %s", price)
}

func TestComputeRoundingAlwaysLast(t *testing.T) {
	places := int32(0)
	roundRule := rule(enums.RuleTypeRound, 1, "0")
	roundRule.RoundPlaces = &places

	// Despite priority 1, the round rule runs after the markup at priority 5.
	price, err := Compute(dec("10.40"), enums.CurrencyUSD, []models.PricingRule{
		roundRule,
		rule(enums.RuleTypePercentMarkup, 5, "10"),
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("11")), "got %s", price)
}

func TestComputePriorityOrderMatters(t *testing.T) {
	// markup first then fixed: 100 * 1.10 + 5 = 115
	price, err := Compute(dec("100"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypeFixedAdjustment, 2, "5"),
		rule(enums.RuleTypePercentMarkup, 1, "10"),
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("115.00")), "got %s", price)

	// fixed first then markup: (100 + 5) * 1.10 = 115.50
	price, err = Compute(dec("100"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypeFixedAdjustment, 1, "5"),
		rule(enums.RuleTypePercentMarkup, 2, "10"),
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("115.50")), "got %s", price)
}

func TestComputeClamps(t *testing.T) {
	price, err := Compute(dec("3.00"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypeMinClamp, 1, "5.00"),
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("5.00")), "got %s", price)

	price, err = Compute(dec("99.00"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypeMaxClamp, 1, "50.00"),
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("50.00")), "got %s", price)
}

func TestComputeCurrencyExponent(t *testing.T) {
	// JPY carries no decimal places.
	price, err := Compute(dec("1000"), enums.CurrencyJPY, []models.PricingRule{
		rule(enums.RuleTypePercentMarkup, 1, "7.5"),
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("1075")), "got %s", price)
}

func TestComputeRejectsUnknownRuleType(t *testing.T) {
	bad := rule(enums.RuleTypePercentMarkup, 1, "10")
	bad.RuleType = enums.RuleType("lunar_markup")

	_, err := Compute(dec("10"), enums.CurrencyUSD, []models.PricingRule{bad})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestComputeRejectsTiedPrioritiesInSameScope(t *testing.T) {
	_, err := Compute(dec("10"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypePercentMarkup, 1, "10"),
		rule(enums.RuleTypeFixedAdjustment, 1, "2"),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestComputeAllowsTiedPrioritiesAcrossScopes(t *testing.T) {
	pairID := uuid.New()
	pairRule := rule(enums.RuleTypeFixedAdjustment, 1, "2")
	pairRule.ConnectionPairID = &pairID

	price, err := Compute(dec("10"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypePercentMarkup, 1, "10"),
		pairRule,
	})
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("13.00")), "got %s", price)
}

func TestComputeRejectsZeroClampAmount(t *testing.T) {
	_, err := Compute(dec("10"), enums.CurrencyUSD, []models.PricingRule{
		rule(enums.RuleTypeMinClamp, 1, "0"),
	})
	require.Error(t, err)
}

func TestComputeRejectsOutOfRangeRoundPlaces(t *testing.T) {
	places := int32(9)
	bad := rule(enums.RuleTypeRound, 1, "0")
	bad.RoundPlaces = &places

	_, err := Compute(dec("10"), enums.CurrencyUSD, []models.PricingRule{bad})
	require.Error(t, err)
}
