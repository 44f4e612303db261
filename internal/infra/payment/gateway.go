package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*CheckoutGateway)(nil)

// CheckoutGateway talks to the payment processor's checkout API over HTTP:
// create a customer once per user, create hosted checkout sessions, and let
// settlement arrive through the webhook.
type CheckoutGateway struct {
	apiKey     string
	baseURL    string
	successURL string
	cancelURL  string
	client     *http.Client
}

func NewCheckoutGateway(cfg *config.PaymentConfig) (*CheckoutGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("payment api key empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.stripe.com/v1"
	}
	return &CheckoutGateway{
		apiKey:     cfg.APIKey,
		baseURL:    base,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *CheckoutGateway) Name() string { return "checkout" }

// EnsureCustomer returns the existing provider customer id or creates one.
func (g *CheckoutGateway) EnsureCustomer(ctx context.Context, tgID int64, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}
	form := url.Values{}
	form.Set("metadata[telegram_id]", strconv.FormatInt(tgID, 10))

	var resp struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/customers", form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("provider returned empty customer id")
	}
	return resp.ID, nil
}

func (g *CheckoutGateway) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", req.CustomerID)
	form.Set("mode", "payment")
	form.Set("success_url", g.successURL)
	form.Set("cancel_url", g.cancelURL)
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	form.Set("line_items[0][quantity]", "1")
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := g.post(ctx, "/checkout/sessions", form, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.URL == "" {
		return nil, errors.New("provider returned incomplete checkout session")
	}
	return &adapter.CheckoutSession{ID: resp.ID, URL: resp.URL}, nil
}

func (g *CheckoutGateway) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("payment provider http %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
