package voucher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront-checkout/internal/pkg/errs"
)

var (
	ErrInvalidVoucherCode   = errors.New("invalid voucher code format")
	ErrInvalidDiscountType  = errors.New("invalid discount type")
	ErrInvalidDiscountValue = errors.New("invalid discount value")
)

var voucherCodeRegex = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

type Code string

func NewCode(code string) (Code, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if !voucherCodeRegex.MatchString(code) {
		return Code(""), ErrInvalidVoucherCode
	}
	return Code(code), nil
}

func (c Code) String() string {
	return string(c)
}

type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixedAmount  DiscountType = "fixed_amount"
	DiscountFreeShipping DiscountType = "free_shipping"
)

func ParseDiscountType(s string) (DiscountType, error) {
	switch t := DiscountType(s); t {
	case DiscountPercentage, DiscountFixedAmount, DiscountFreeShipping:
		return t, nil
	default:
		return "", ErrInvalidDiscountType
	}
}

// ErrorKind tells the customer what to change to make the voucher apply.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindInactive            ErrorKind = "inactive"
	KindNotStarted          ErrorKind = "not_started"
	KindExpired             ErrorKind = "expired"
	KindMinPurchaseNotMet   ErrorKind = "min_purchase_not_met"
	KindNotEligible         ErrorKind = "not_eligible"
	KindUsageLimitReached   ErrorKind = "usage_limit_reached"
	KindPerUserLimitReached ErrorKind = "per_user_limit_reached"
)

type Error struct {
	Kind ErrorKind
	Code string
	// MinPurchase is set for KindMinPurchaseNotMet.
	MinPurchase int64
}

func NewError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string {
	return fmt.Sprintf("voucher %s rejected: %s", e.Code, e.Kind)
}

func (e *Error) Unwrap() error {
	return errs.ErrVoucherRejected
}

// IsKind reports whether err carries a voucher rejection of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}
