// Package apns implements the provider side of the Apple push gateway:
// ES256 provider tokens and single-device HTTP dispatch.
package apns

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/types"
	"github.com/golang-jwt/jwt/v5"
)

var pemMarker = regexp.MustCompile(`-----(BEGIN|END)[A-Z0-9 ]*-----`)

// ProviderToken is a signed ES256 token proving the sender's identity to the gateway.
type ProviderToken struct {
	Value string
	KeyID string
}

// TokenSource mints provider tokens.
type TokenSource interface {
	Token(ctx context.Context) (ProviderToken, error)
}

// SigningKey is an imported P-256 private key. It can only be used to sign.
type SigningKey struct {
	key *ecdsa.PrivateKey
}

// ParseSigningKey imports PKCS#8 key material given as PEM text. Envelope
// markers, whitespace and literal "\n" escapes are stripped before decoding.
func ParseSigningKey(material string) (*SigningKey, error) {
	s := strings.ReplaceAll(material, `\n`, "")
	s = pemMarker.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, fmt.Errorf("signing key material is empty")
	}

	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signing key: %w", err)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to import PKCS#8 signing key: %w", err)
	}

	ecKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is %T, want an ECDSA key", parsed)
	}
	if ecKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing key curve is %s, want P-256", ecKey.Curve.Params().Name)
	}

	return &SigningKey{key: ecKey}, nil
}

// Sign produces a compact ES256 JWT over the given claims and header extras.
func (k *SigningKey) Sign(claims jwt.Claims, header map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	for name, value := range header {
		token.Header[name] = value
	}
	return token.SignedString(k.key)
}

// Signer mints a fresh provider token on every call.
type Signer struct {
	key    *SigningKey
	keyID  string
	teamID string
	now    func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithClock overrides the issued-at clock.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner imports the credential's signing key. An incomplete credential
// yields a CONFIGURATION_MISSING error, malformed key material a
// TOKEN_GENERATION_ERROR.
func NewSigner(cred types.PushCredential, opts ...SignerOption) (*Signer, error) {
	if missing := cred.MissingFields(); len(missing) > 0 {
		return nil, apperrors.MissingConfiguration(missing...)
	}

	key, err := ParseSigningKey(cred.SigningKey)
	if err != nil {
		return nil, apperrors.TokenGeneration(err)
	}

	s := &Signer{
		key:    key,
		keyID:  cred.KeyID,
		teamID: cred.TeamID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// KeyID returns the key identifier placed in the token header.
func (s *Signer) KeyID() string {
	return s.keyID
}

// Token signs {iss: teamID, iat: now} with header {alg: ES256, kid, typ: JWT}.
func (s *Signer) Token(ctx context.Context) (ProviderToken, error) {
	if err := ctx.Err(); err != nil {
		return ProviderToken{}, apperrors.TokenGeneration(err)
	}

	claims := jwt.MapClaims{
		"iss": s.teamID,
		"iat": s.now().Unix(),
	}
	signed, err := s.key.Sign(claims, map[string]interface{}{"kid": s.keyID})
	if err != nil {
		return ProviderToken{}, apperrors.TokenGeneration(err)
	}

	return ProviderToken{Value: signed, KeyID: s.keyID}, nil
}
