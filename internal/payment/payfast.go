// Package payment holds the PayFast checkout client used for booking and
// subscription settlement.
package payment

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"bookline/internal/domain"
	"bookline/internal/models"
)

const (
	liveProcessURL    = "https://www.payfast.co.za/eng/process"
	sandboxProcessURL = "https://sandbox.payfast.co.za/eng/process"
)

// Config carries the merchant credentials.
type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool

	// Redirect and notification endpoints embedded in every request.
	ReturnURL string
	CancelURL string
	NotifyURL string
}

// Client builds signed PayFast requests and validates incoming callbacks.
type Client struct {
	config  Config
	baseURL string
}

func NewClient(config Config) *Client {
	baseURL := liveProcessURL
	if config.Sandbox {
		baseURL = sandboxProcessURL
	}
	return &Client{config: config, baseURL: baseURL}
}

// GenerateSignature computes the MD5 signature over the alphabetically
// sorted, URL-encoded fields with the passphrase appended.
func (c *Client) GenerateSignature(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+encodeValue(fields[k]))
	}

	sum := md5.Sum([]byte(strings.Join(pairs, "&") + c.config.Passphrase))
	return hex.EncodeToString(sum[:])
}

// encodeValue matches PayFast's expected encoding: percent-encoding with
// spaces as %20, not +.
func encodeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(strings.TrimSpace(v)), "+", "%20")
}

// CreatePaymentRequest builds the redirectable checkout form for a payment.
// The payment ID travels as m_payment_id and comes back in the callback.
func (c *Client) CreatePaymentRequest(payment *models.Payment, itemName, email string) *domain.PaymentRequest {
	fields := map[string]string{
		"merchant_id":   c.config.MerchantID,
		"merchant_key":  c.config.MerchantKey,
		"return_url":    c.config.ReturnURL,
		"cancel_url":    c.config.CancelURL,
		"notify_url":    c.config.NotifyURL,
		"email_address": email,
		"m_payment_id":  payment.ID,
		"amount":        fmt.Sprintf("%.2f", payment.Amount),
		"item_name":     itemName,
	}
	fields["signature"] = c.GenerateSignature(fields)

	return &domain.PaymentRequest{URL: c.baseURL, Fields: fields}
}

// ValidateCallback recomputes the signature over the callback fields
// (excluding the signature itself) and compares.
func (c *Client) ValidateCallback(fields map[string]string) bool {
	received, ok := fields["signature"]
	if !ok || received == "" {
		return false
	}

	unsigned := make(map[string]string, len(fields)-1)
	for k, v := range fields {
		if k == "signature" {
			continue
		}
		unsigned[k] = v
	}
	return received == c.GenerateSignature(unsigned)
}

// ParseNotification decodes the form-encoded ITN body into a field map.
func ParseNotification(body string) (map[string]string, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification body: %w", err)
	}

	fields := make(map[string]string, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	return fields, nil
}
