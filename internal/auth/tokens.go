package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/jpcc/flock/internal/models"
)

// Token types carried in the "typ" claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const (
	issuer = "flock"
	leeway = time.Minute
)

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and wrong token types.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the verified contents of a token.
type Claims struct {
	UserID    string
	Email     string
	Role      models.Role
	Type      string
	ID        string
	ExpiresAt time.Time
}

type privateClaims struct {
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role,omitempty"`
	Type  string      `json:"typ"`
}

// Issuer signs and verifies access and refresh tokens with separate HS256 secrets.
type Issuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer builds an Issuer. Secrets must be at least 32 bytes.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(accessSecret) < 32 || len(refreshSecret) < 32 {
		return nil, fmt.Errorf("token secrets must be at least 32 bytes")
	}
	return &Issuer{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// RefreshTTL is the lifetime of refresh tokens (used for cookie Max-Age).
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess returns a signed access token for u.
func (i *Issuer) IssueAccess(u *models.User) (string, time.Time, error) {
	return i.sign(i.accessKey, i.accessTTL, u.ID, privateClaims{Email: u.Email, Role: u.Role, Type: TypeAccess})
}

// IssueRefresh returns a signed refresh token for u.
func (i *Issuer) IssueRefresh(u *models.User) (string, time.Time, error) {
	return i.sign(i.refreshKey, i.refreshTTL, u.ID, privateClaims{Type: TypeRefresh})
}

func (i *Issuer) sign(key []byte, ttl time.Duration, subject string, pc privateClaims) (string, time.Time, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create signer: %w", err)
	}

	now := i.now()
	exp := now.Add(ttl)
	std := jwt.Claims{
		Issuer:    issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(exp),
	}

	raw, err := jwt.Signed(sig).Claims(std).Claims(pc).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return raw, exp, nil
}

// ParseAccess verifies an access token.
func (i *Issuer) ParseAccess(raw string) (*Claims, error) {
	return i.parse(raw, i.accessKey, TypeAccess)
}

// ParseRefresh verifies a refresh token.
func (i *Issuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, i.refreshKey, TypeRefresh)
}

func (i *Issuer) parse(raw string, key []byte, typ string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, ErrInvalidToken
	}

	var std jwt.Claims
	var pc privateClaims
	if err := tok.Claims(key, &std, &pc); err != nil {
		return nil, ErrInvalidToken
	}

	err = std.ValidateWithLeeway(jwt.Expected{Issuer: issuer, Time: i.now()}, leeway)
	if errors.Is(err, jwt.ErrExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil || pc.Type != typ || std.Subject == "" {
		return nil, ErrInvalidToken
	}

	c := &Claims{
		UserID: std.Subject,
		Email:  pc.Email,
		Role:   pc.Role,
		Type:   pc.Type,
		ID:     std.ID,
	}
	if std.Expiry != nil {
		c.ExpiresAt = std.Expiry.Time()
	}
	return c, nil
}
