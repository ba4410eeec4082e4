package request

import (
	"strings"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/usecase/commands"

	"github.com/google/uuid"
)

type CheckoutRequest struct {
	AddressID     uuid.UUID `json:"address_id" binding:"required"`
	VoucherCode   *string   `json:"voucher_code,omitempty"`
	PaymentMethod string    `json:"payment_method" binding:"required,oneof=bank_transfer virtual_account credit_card e_wallet"`
}

func (r CheckoutRequest) GetVoucherCode() *string {
	if r.VoucherCode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.VoucherCode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (r CheckoutRequest) ToCommand(userID uuid.UUID, idempotencyKey *uuid.UUID) commands.CheckoutRequest {
	return commands.CheckoutRequest{
		UserID:         userID,
		AddressID:      r.AddressID,
		VoucherCode:    r.GetVoucherCode(),
		PaymentMethod:  order.PaymentMethod(r.PaymentMethod),
		IdempotencyKey: idempotencyKey,
	}
}

type PreviewVoucherRequest struct {
	Code string `json:"code" binding:"required,max=32"`
}
