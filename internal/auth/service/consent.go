package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/makerden/memberauth/pkg/jwtx"
)

var (
	ErrConsentInvalid = errors.New("consent token invalid")
	ErrConsentExpired = errors.New("consent token expired")
)

// ConsentTTL is how long a rendered consent page stays submittable.
const ConsentTTL = 5 * time.Minute

// ConsentCodec binds the two legs of the authorization handshake without any
// server-side pending-request state. The validated parameters plus a
// timestamp are canonicalized into a deterministic byte string and signed;
// the signature travels through the consent form as a hidden field and is
// re-verified against the re-canonicalized submission. Tampering with any
// field, or replaying after the freshness window, invalidates it.
type ConsentCodec struct {
	KeyManager *jwtx.KeyManager
}

// ConsentParams are the fields bound by the consent token. Scopes is the
// effective granted set, already intersected with the client registration.
type ConsentParams struct {
	ClientID     string
	RedirectURI  string
	ResponseType string // canonical form, e.g. "code" or "id_token token"
	Scopes       []string
	State        string
	Nonce        string
	IssuedAt     time.Time // unix-second precision on the wire
}

// Issue signs the canonical form of p and returns the base64url token for
// embedding as the hidden auth_token form field.
func (c *ConsentCodec) Issue(p ConsentParams) (string, error) {
	sig, err := c.KeyManager.SignBytes(canonicalConsentBytes(p))
	if err != nil {
		return "", fmt.Errorf("consent: sign: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify re-canonicalizes the posted fields and checks the signature and
// freshness. The error never distinguishes a forged signature from a
// tampered field.
func (c *ConsentCodec) Verify(p ConsentParams, token string, now time.Time) error {
	if p.IssuedAt.Add(ConsentTTL).Before(now) {
		return ErrConsentExpired
	}

	sig, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrConsentInvalid
	}
	if !c.KeyManager.VerifyBytes(canonicalConsentBytes(p), sig) {
		return ErrConsentInvalid
	}
	return nil
}

// canonicalConsentBytes serializes params in a fixed field order as
// newline-separated key=value lines. Values are percent-escaped so the
// encoding is injective: a value cannot smuggle a separator and shift
// bytes into a neighboring field. Scope sorting makes the encoding
// independent of request parameter order.
func canonicalConsentBytes(p ConsentParams) []byte {
	scopes := append([]string(nil), p.Scopes...)
	sort.Strings(scopes)

	var b strings.Builder
	b.WriteString("client_id=" + url.QueryEscape(p.ClientID) + "\n")
	b.WriteString("redirect_uri=" + url.QueryEscape(p.RedirectURI) + "\n")
	b.WriteString("response_type=" + url.QueryEscape(p.ResponseType) + "\n")
	b.WriteString("scope=" + url.QueryEscape(strings.Join(scopes, " ")) + "\n")
	b.WriteString("state=" + url.QueryEscape(p.State) + "\n")
	b.WriteString("nonce=" + url.QueryEscape(p.Nonce) + "\n")
	b.WriteString(fmt.Sprintf("time=%d", p.IssuedAt.Unix()))
	return []byte(b.String())
}
