package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signPayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)

	header := signPayload(payload, secret, now.Unix())
	if !verifyStripeWebhookSignatureAt(payload, header, secret, now) {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifyStripeWebhookSignatureRejects(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	header := signPayload(payload, secret, now.Unix())

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		now     time.Time
	}{
		{name: "wrong secret", payload: payload, header: header, secret: "whsec_other", now: now},
		{name: "tampered payload", payload: []byte(`{"id":"evt_2"}`), header: header, secret: secret, now: now},
		{name: "missing header", payload: payload, header: "", secret: secret, now: now},
		{name: "missing secret", payload: payload, header: header, secret: "", now: now},
		{name: "stale timestamp", payload: payload, header: header, secret: secret, now: now.Add(10 * time.Minute)},
		{name: "future timestamp", payload: payload, header: header, secret: secret, now: now.Add(-10 * time.Minute)},
		{name: "malformed header", payload: payload, header: "v1=zz", secret: secret, now: now},
	}

	for _, tt := range tests {
		if verifyStripeWebhookSignatureAt(tt.payload, tt.header, tt.secret, tt.now) {
			t.Fatalf("%s: expected verification to fail", tt.name)
		}
	}
}

func TestVerifyStripeWebhookSignatureMultipleV1(t *testing.T) {
	payload := []byte(`{"id":"evt_3"}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)

	// Key rotation sends multiple v1 entries; any valid one must pass.
	valid := signPayload(payload, secret, now.Unix())
	header := fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), hex.EncodeToString(make([]byte, 32)), valid[len(fmt.Sprintf("t=%d,", now.Unix())):])
	if !verifyStripeWebhookSignatureAt(payload, header, secret, now) {
		t.Fatalf("expected one valid v1 entry to verify")
	}
}
