// Package gateway wraps the external payment processor: payment intents for
// deposits, payouts for withdrawals, refunds against prior payments. Every
// call carries a deterministic idempotency key so a client retry after a
// timeout cannot double-charge or double-pay.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/shopspring/decimal"
)

// Error codes attached to apperr.KindGateway failures. A rejection means the
// processor received the request and refused it; anything else leaves the
// outcome unknown.
const (
	CodeRejected    = "gateway_rejected"
	CodeUnavailable = "gateway_unavailable"
)

// Rejected reports whether the processor definitively refused the request.
// Transport failures and 5xx responses are not rejections: the operation may
// still have executed.
func Rejected(err error) bool {
	return apperr.CodeOf(err) == CodeRejected
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// MinorUnits converts a decimal major-unit amount into integer cents, the
// unit the processor expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// IdempotencyKey derives the key for one logical operation; the same inputs
// always map to the same key.
func IdempotencyKey(op, userID, ref string) string {
	return op + ":" + userID + ":" + ref
}

func (c *Client) CreatePaymentIntent(ctx context.Context, userID string, amount decimal.Decimal, currency models.Currency, idemKey string) (*PaymentIntent, error) {
	req := paymentIntentRequest{
		Amount:   MinorUnits(amount),
		Currency: strings.ToLower(string(currency)),
		Metadata: map[string]string{"user_id": userID},
	}
	var out PaymentIntent
	if err := c.post(ctx, "payment_intents", idemKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePayout(ctx context.Context, payeeAccount string, amount decimal.Decimal, currency models.Currency, idemKey string) (*Payout, error) {
	req := payoutRequest{
		Amount:      MinorUnits(amount),
		Currency:    strings.ToLower(string(currency)),
		Destination: payeeAccount,
	}
	var out Payout
	if err := c.post(ctx, "payouts", idemKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRefund(ctx context.Context, paymentRef string, amount decimal.Decimal, idemKey string) (*Refund, error) {
	req := refundRequest{
		PaymentIntent: paymentRef,
		Amount:        MinorUnits(amount),
	}
	var out Refund
	if err := c.post(ctx, "refunds", idemKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path, idemKey string, body, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return apperr.Wrap(apperr.KindGateway, CodeUnavailable, "bad gateway url", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindGateway, CodeUnavailable, "gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ge gatewayError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		code := CodeRejected
		if resp.StatusCode >= 500 {
			// a 5xx may have executed server-side before failing
			code = CodeUnavailable
		}
		return apperr.Wrap(apperr.KindGateway, code,
			fmt.Sprintf("gateway returned %d", resp.StatusCode), fmt.Errorf("%s", ge.Message))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
