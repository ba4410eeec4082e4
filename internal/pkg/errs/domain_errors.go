package errs

// Sentinels shared across the usecase and handler layers. Callers attach them
// with Mark so errors.Is works after wrapping.
var (
	// Catalog errors
	ErrItemUnavailable = New("item unavailable")

	// Inventory errors
	ErrInsufficientStock  = New("insufficient stock")
	ErrFlashSaleSoldOut   = New("flash sale sold out")
	ErrReservationExpired = New("reservation expired")

	// Voucher errors
	ErrVoucherRejected = New("voucher rejected")

	// Order errors
	ErrOrderNotFound          = New("order not found")
	ErrAddressNotFound        = New("address not found")
	ErrIllegalStateTransition = New("illegal state transition")

	// Payment errors
	ErrPaymentProviderUnavailable = New("payment provider unavailable")

	// Cart errors
	ErrCartNotFound = New("cart not found")
	ErrCartEmpty    = New("cart is empty")
	ErrCartChanged  = New("cart changed during checkout")

	// Idempotency errors
	ErrDuplicateRequest       = New("duplicate request")
	ErrIdempotencyInProgress  = New("idempotency in progress")
	ErrIdempotencyCheckFailed = New("idempotency check failed")

	// Validation errors
	ErrDomainValidation = New("domain validation error")

	// Operation errors
	ErrDatabaseOperationFailed = New("database operation failed")
)
