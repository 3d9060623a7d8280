package enums

import "fmt"

// SupplierClientType selects which gateway implementation talks to a supplier.
type SupplierClientType string

const (
	SupplierClientREST SupplierClientType = "rest"
	SupplierClientMock SupplierClientType = "mock"
)

var validSupplierClientTypes = []SupplierClientType{
	SupplierClientREST,
	SupplierClientMock,
}

// String implements fmt.Stringer.
func (s SupplierClientType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SupplierClientType.
func (s SupplierClientType) IsValid() bool {
	for _, candidate := range validSupplierClientTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSupplierClientType converts raw input into a SupplierClientType.
func ParseSupplierClientType(value string) (SupplierClientType, error) {
	for _, candidate := range validSupplierClientTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supplier client type %q", value)
}

// SupplierStatus captures the supplier activation workflow.
type SupplierStatus string

const (
	SupplierStatusPendingValidation SupplierStatus = "pending_validation"
	SupplierStatusActive            SupplierStatus = "active"
	SupplierStatusDisabled          SupplierStatus = "disabled"
)

var validSupplierStatuses = []SupplierStatus{
	SupplierStatusPendingValidation,
	SupplierStatusActive,
	SupplierStatusDisabled,
}

// String implements fmt.Stringer.
func (s SupplierStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the stored enum.
func (s SupplierStatus) IsValid() bool {
	for _, candidate := range validSupplierStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSupplierStatus converts raw input into a SupplierStatus.
func ParseSupplierStatus(value string) (SupplierStatus, error) {
	for _, candidate := range validSupplierStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supplier status %q", value)
}
