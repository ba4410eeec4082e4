package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"

	"github.com/google/uuid"
)

type initiateRequest struct {
	OrderID uuid.UUID `json:"order_id"`
	Amount  int64     `json:"amount"`
	Method  string    `json:"method"`
}

type initiateResponse struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// HTTPProvider talks to the payment gateway's REST API. The order id doubles
// as the gateway idempotency key, so a retry never opens a second session.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(cfg config.PaymentConfig) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.ProviderURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *HTTPProvider) InitiatePayment(ctx context.Context, orderID uuid.UUID, amount int64, method order.PaymentMethod) (*commands.PaymentSession, error) {
	body, err := json.Marshal(initiateRequest{OrderID: orderID, Amount: amount, Method: string(method)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Idempotency-Key", orderID.String())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrPaymentProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errs.Mark(fmt.Errorf("payment gateway responded %d", resp.StatusCode), errs.ErrPaymentProviderUnavailable)
	}

	var out initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.Mark(err, errs.ErrPaymentProviderUnavailable)
	}
	if out.TransactionID == "" {
		return nil, errs.Mark(errs.New("payment gateway returned no transaction id"), errs.ErrPaymentProviderUnavailable)
	}
	return &commands.PaymentSession{TransactionID: out.TransactionID, RedirectURL: out.RedirectURL}, nil
}
