package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod labels how a payment was collected.
type PaymentMethod string

const (
	PaymentMethodMock         PaymentMethod = "mock"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodECPay        PaymentMethod = "ecpay"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodMock,
	PaymentMethodCash,
	PaymentMethodCreditCard,
	PaymentMethodBankTransfer,
	PaymentMethodECPay,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
