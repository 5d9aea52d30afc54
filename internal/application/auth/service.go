// Package auth resolves request credentials to an Identity and issues/revokes access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockfolio-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultIssuer   = "stockfolio"
	DefaultTokenTTL = 24 * time.Hour
	revokedPrefix   = "auth:revoked:"
)

// UserStore is the account lookup auth needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// Service issues HS256 tokens and resolves credentials. Rdb may be nil, which
// disables revocation (Logout fails, tokens stay valid until expiry).
type Service struct {
	Users  UserStore
	Rdb    *redis.Client
	Secret []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

// Token is the login/register response payload.
type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTokenTTL
}

func (s *Service) issuer() string {
	if s.Issuer != "" {
		return s.Issuer
	}
	return DefaultIssuer
}

// Issue signs a token for u.
func (s *Service) Issue(u *domain.User) (*Token, error) {
	if len(s.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	now := s.now()
	exp := now.Add(s.ttl())
	c := claims{
		Roles: u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			Issuer:    s.issuer(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Login checks a username/password pair and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, *domain.User, error) {
	if username == "" || password == "" {
		return nil, nil, ErrCredentialsRequired
	}
	u, err := s.Users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, err
	}
	tok, err := s.Issue(u)
	if err != nil {
		return nil, nil, err
	}
	return tok, u, nil
}

// Resolve turns a credential into an Identity. Roles always come from the account
// record, so role changes and deletions apply to outstanding tokens immediately.
func (s *Service) Resolve(ctx context.Context, cred Credential) (*Identity, error) {
	switch c := cred.(type) {
	case BearerToken:
		return s.resolveBearer(ctx, string(c))
	case BasicCredentials:
		u, err := s.Users.Authenticate(ctx, c.Username, c.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
		return identityFor(u), nil
	}
	return nil, ErrNotAuthenticated
}

func (s *Service) resolveBearer(ctx context.Context, raw string) (*Identity, error) {
	if len(s.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.issuer()), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || c.Subject == "" || c.ID == "" {
		return nil, ErrInvalidToken
	}

	if s.Rdb != nil {
		n, err := s.Rdb.Exists(ctx, revokedPrefix+c.ID).Result()
		if err != nil {
			return nil, fmt.Errorf("revocation lookup: %w", err)
		}
		if n > 0 {
			return nil, ErrTokenRevoked
		}
	}

	u, err := s.Users.FindByUsername(ctx, c.Subject)
	if err != nil {
		log.Debug().Err(err).Str("sub", c.Subject).Msg("token subject no longer resolvable")
		return nil, ErrInvalidToken
	}
	id := identityFor(u)
	id.TokenID = c.ID
	exp := c.ExpiresAt.Time
	id.ExpiresAt = &exp
	return id, nil
}

// Logout revokes the bearer token behind id until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, id *Identity) error {
	if id == nil || id.TokenID == "" || id.ExpiresAt == nil {
		return ErrLogoutRequiresBearer
	}
	if s.Rdb == nil {
		return ErrRevocationUnavailable
	}
	ttl := id.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.Rdb.Set(ctx, revokedPrefix+id.TokenID, id.Username, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsAuthError reports whether err means the caller is not authenticated (401).
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenRevoked) || errors.Is(err, ErrCredentialsRequired)
}

func identityFor(u *domain.User) *Identity {
	return &Identity{
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Roles:    append([]string(nil), u.Roles...),
		User:     u,
	}
}
