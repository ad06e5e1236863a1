package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

func TestIssue(t *testing.T) {
	v, err := NewVendor("s3cret", time.Hour, "signal")
	if err != nil {
		t.Fatalf("NewVendor: %v", err)
	}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v.now = func() time.Time { return fixed }

	creds, err := v.Issue("conn-1234")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	wantExpiry := fixed.Add(time.Hour).Unix()
	if creds.ExpiresAt != wantExpiry {
		t.Fatalf("expiresAt=%d, want %d", creds.ExpiresAt, wantExpiry)
	}
	wantUsername := fmt.Sprintf("%d:signal:conn-1234", wantExpiry)
	if creds.Username != wantUsername {
		t.Fatalf("username=%q, want %q", creds.Username, wantUsername)
	}

	// The credential must verify against the shared secret, coturn-style.
	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write([]byte(creds.Username))
	if want := base64.StdEncoding.EncodeToString(mac.Sum(nil)); creds.Credential != want {
		t.Fatalf("credential=%q, want %q", creds.Credential, want)
	}
}

func TestIssueRejectsColonInConnID(t *testing.T) {
	v, err := NewVendor("s3cret", time.Hour, "signal")
	if err != nil {
		t.Fatalf("NewVendor: %v", err)
	}
	if _, err := v.Issue("a:b"); err == nil {
		t.Fatalf("expected error for connection id with colon")
	}
	if _, err := v.Issue(""); err == nil {
		t.Fatalf("expected error for empty connection id")
	}
}

func TestNewVendorValidation(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		ttl    time.Duration
		prefix string
	}{
		{"empty secret", "", time.Hour, "signal"},
		{"zero ttl", "s", 0, "signal"},
		{"empty prefix", "s", time.Hour, ""},
		{"colon in prefix", "s", time.Hour, "a:b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewVendor(tc.secret, tc.ttl, tc.prefix); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
