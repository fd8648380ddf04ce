package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "whsec_test"

func sign(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func event(eventType string) []byte {
	return []byte(`{"id":"evt_1","object":"event","api_version":"2023-10-16","type":"` + eventType + `",` +
		`"data":{"object":{"id":"cs_test_1","object":"checkout.session","client_reference_id":"5c88fa8cf4afda39709c2955",` +
		`"customer_email":"jonas@example.com","amount_total":49700}}}`)
}

func TestParseCheckoutCompleted(t *testing.T) {
	s := NewStripe("", secret)
	payload := event("checkout.session.completed")

	done, err := s.ParseCheckoutCompleted(payload, sign(payload, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, "cs_test_1", done.SessionID)
	assert.Equal(t, "5c88fa8cf4afda39709c2955", done.TourID)
	assert.Equal(t, "jonas@example.com", done.CustomerEmail)
	assert.Equal(t, 497.0, done.Amount)
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	s := NewStripe("", secret)
	payload := event("payment_intent.created")

	done, err := s.ParseCheckoutCompleted(payload, sign(payload, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestParseRejectsBadSignature(t *testing.T) {
	s := NewStripe("", secret)
	payload := event("checkout.session.completed")

	_, err := s.ParseCheckoutCompleted(payload, "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestCheckoutRequiresKey(t *testing.T) {
	_, err := NewStripe("", secret).CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
