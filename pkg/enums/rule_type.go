package enums

import "fmt"

// RuleType identifies the transformation a pricing rule applies.
type RuleType string

const (
	RuleTypePercentMarkup   RuleType = "percent_markup"
	RuleTypeFixedAdjustment RuleType = "fixed_adjustment"
	RuleTypeMinClamp        RuleType = "min_clamp"
	RuleTypeMaxClamp        RuleType = "max_clamp"
	RuleTypeRound           RuleType = "round"
)

var validRuleTypes = []RuleType{
	RuleTypePercentMarkup,
	RuleTypeFixedAdjustment,
	RuleTypeMinClamp,
	RuleTypeMaxClamp,
	RuleTypeRound,
}

// String implements fmt.Stringer.
func (r RuleType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RuleType.
func (r RuleType) IsValid() bool {
	for _, candidate := range validRuleTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRuleType converts raw input into a RuleType.
func ParseRuleType(value string) (RuleType, error) {
	for _, candidate := range validRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule type %q", value)
}
