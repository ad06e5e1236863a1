// Package turnrest issues time-limited TURN credentials in the coturn REST
// API form, so peers that cannot reach each other directly can still complete
// ICE through a relay:
//
//	username   = <unix expiry>:<prefix>:<connection id>
//	credential = base64(hmac_sha1(shared secret, username))
package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Credentials struct {
	Username   string
	Credential string
	ExpiresAt  int64
}

// Vendor signs credentials against the shared secret the TURN server was
// configured with.
type Vendor struct {
	secret []byte
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func NewVendor(secret string, ttl time.Duration, prefix string) (*Vendor, error) {
	if secret == "" {
		return nil, errors.New("turn shared secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("credential ttl must be positive")
	}
	if prefix == "" || strings.Contains(prefix, ":") {
		return nil, fmt.Errorf("invalid username prefix %q", prefix)
	}
	return &Vendor{
		secret: []byte(secret),
		ttl:    ttl,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Issue mints credentials tied to one signaling connection.
func (v *Vendor) Issue(connID string) (Credentials, error) {
	if connID == "" || strings.Contains(connID, ":") {
		return Credentials{}, fmt.Errorf("invalid connection id %q", connID)
	}

	expiresAt := v.now().UTC().Add(v.ttl).Unix()
	username := fmt.Sprintf("%d:%s:%s", expiresAt, v.prefix, connID)

	mac := hmac.New(sha1.New, v.secret)
	_, _ = mac.Write([]byte(username))

	return Credentials{
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		ExpiresAt:  expiresAt,
	}, nil
}
