package payment

import (
	"testing"

	"bookline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient(Config{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		Sandbox:     true,
		ReturnURL:   "https://example.com/payment/return",
		CancelURL:   "https://example.com/payment/cancel",
		NotifyURL:   "https://example.com/api/v1/webhooks/payfast",
	})
}

func TestGenerateSignature_Deterministic(t *testing.T) {
	c := testClient()
	fields := map[string]string{
		"merchant_id":  "10000100",
		"amount":       "150.00",
		"item_name":    "Yoga Class",
		"m_payment_id": "abc-123",
	}

	sig1 := c.GenerateSignature(fields)
	sig2 := c.GenerateSignature(fields)
	assert.Equal(t, sig1, sig2)
	assert.Len(t, sig1, 32, "md5 hex digest")
}

func TestGenerateSignature_PassphraseMatters(t *testing.T) {
	fields := map[string]string{"merchant_id": "10000100", "amount": "10.00"}

	withPass := testClient().GenerateSignature(fields)
	cfg := testClient().config
	cfg.Passphrase = ""
	withoutPass := NewClient(cfg).GenerateSignature(fields)

	assert.NotEqual(t, withPass, withoutPass)
}

func TestGenerateSignature_SpacesEncodedAsPercent20(t *testing.T) {
	c := testClient()

	// QueryEscape would give "+" for spaces; the processor expects %20, so
	// values differing only in space handling must not collide.
	sig := c.GenerateSignature(map[string]string{"item_name": "Yoga Class"})
	plusSig := c.GenerateSignature(map[string]string{"item_name": "Yoga+Class"})
	assert.NotEqual(t, sig, plusSig)
}

func TestCreatePaymentRequest(t *testing.T) {
	c := testClient()
	payment := &models.Payment{
		ID:     "pay-uuid-1",
		Amount: 149.5,
	}

	req := c.CreatePaymentRequest(payment, "Sunset Kayak Tour", "customer@example.com")
	require.NotNil(t, req)

	assert.Equal(t, "https://sandbox.payfast.co.za/eng/process", req.URL)
	assert.Equal(t, "pay-uuid-1", req.Fields["m_payment_id"])
	assert.Equal(t, "149.50", req.Fields["amount"])
	assert.Equal(t, "Sunset Kayak Tour", req.Fields["item_name"])
	assert.Equal(t, "customer@example.com", req.Fields["email_address"])
	assert.Equal(t, "10000100", req.Fields["merchant_id"])
	assert.NotEmpty(t, req.Fields["signature"])
}

func TestCreatePaymentRequest_LiveURL(t *testing.T) {
	cfg := testClient().config
	cfg.Sandbox = false
	c := NewClient(cfg)

	req := c.CreatePaymentRequest(&models.Payment{ID: "p", Amount: 1}, "Item", "a@b.c")
	assert.Equal(t, "https://www.payfast.co.za/eng/process", req.URL)
}

func TestValidateCallback(t *testing.T) {
	c := testClient()

	fields := map[string]string{
		"m_payment_id":   "pay-uuid-1",
		"payment_status": "COMPLETE",
		"amount_gross":   "149.50",
	}
	fields["signature"] = c.GenerateSignature(fields)

	assert.True(t, c.ValidateCallback(fields))

	fields["amount_gross"] = "0.01"
	assert.False(t, c.ValidateCallback(fields), "tampered field invalidates the signature")

	delete(fields, "signature")
	assert.False(t, c.ValidateCallback(fields), "missing signature is invalid")
}

func TestParseNotification(t *testing.T) {
	fields, err := ParseNotification("m_payment_id=abc-123&payment_status=COMPLETE&item_name=Yoga%20Class")
	require.NoError(t, err)

	assert.Equal(t, "abc-123", fields["m_payment_id"])
	assert.Equal(t, "COMPLETE", fields["payment_status"])
	assert.Equal(t, "Yoga Class", fields["item_name"])

	_, err = ParseNotification("%zz")
	assert.Error(t, err)
}
