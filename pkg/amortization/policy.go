package amortization

import (
	"fmt"
	"strings"
)

// RepaymentPolicy selects how principal is repaid over the term.
type RepaymentPolicy int

const (
	// EqualPayment keeps the total payment constant (원리금균등상환).
	EqualPayment RepaymentPolicy = iota
	// EqualPrincipal keeps the principal portion constant (원금균등상환).
	EqualPrincipal
	// InterestOnly pays interest each period and the whole principal at maturity (만기일시상환).
	InterestOnly
)

// Policies lists every supported policy in display order.
var Policies = []RepaymentPolicy{EqualPayment, EqualPrincipal, InterestOnly}

func (p RepaymentPolicy) String() string {
	switch p {
	case EqualPayment:
		return "equal-payment"
	case EqualPrincipal:
		return "equal-principal"
	case InterestOnly:
		return "interest-only"
	}
	return fmt.Sprintf("RepaymentPolicy(%d)", int(p))
}

// Label returns the Korean name used on the calculator pages.
func (p RepaymentPolicy) Label() string {
	switch p {
	case EqualPayment:
		return "원리금균등"
	case EqualPrincipal:
		return "원금균등"
	case InterestOnly:
		return "만기일시"
	}
	return p.String()
}

// Valid reports whether p is a known policy.
func (p RepaymentPolicy) Valid() bool {
	return p >= EqualPayment && p <= InterestOnly
}

// ParsePolicy accepts the canonical names, a few short aliases and the Korean labels.
func ParsePolicy(s string) (RepaymentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal-payment", "equal_payment", "equalpayment", "annuity", "원리금균등", "원리금균등상환":
		return EqualPayment, nil
	case "equal-principal", "equal_principal", "equalprincipal", "원금균등", "원금균등상환":
		return EqualPrincipal, nil
	case "interest-only", "interest_only", "interestonly", "bullet", "만기일시", "만기일시상환":
		return InterestOnly, nil
	}
	return 0, fmt.Errorf("%w: unknown repayment policy %q", ErrInvalidTerms, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p RepaymentPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown repayment policy %d", ErrInvalidTerms, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value selects EqualPayment.
func (p *RepaymentPolicy) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*p = EqualPayment
		return nil
	}
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
