package auth

import (
	"encoding/base64"
	"strings"
	"time"

	"stockfolio-backend/internal/domain"
)

// Credential is what a request presents: a bearer token or a legacy username/password pair.
type Credential interface {
	isCredential()
}

// BearerToken is a signed access token issued by Login.
type BearerToken string

// BasicCredentials is a username/password pair sent with HTTP Basic auth.
type BasicCredentials struct {
	Username string
	Password string
}

func (BearerToken) isCredential()      {}
func (BasicCredentials) isCredential() {}

// Identity is a resolved caller. Downstream code only ever sees this, never the credential.
type Identity struct {
	Username  string       `json:"username"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Roles     []string     `json:"roles"`
	TokenID   string       `json:"-"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	User      *domain.User `json:"-"`
}

func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseAuthorization reads an Authorization header value.
func ParseAuthorization(header string) (Credential, error) {
	header = strings.TrimSpace(header)
	scheme, value, ok := strings.Cut(header, " ")
	if !ok {
		return nil, ErrNotAuthenticated
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrNotAuthenticated
	}
	switch strings.ToLower(scheme) {
	case "bearer":
		return BearerToken(value), nil
	case "basic":
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, ErrNotAuthenticated
		}
		user, pass, ok := strings.Cut(string(raw), ":")
		if !ok || user == "" {
			return nil, ErrNotAuthenticated
		}
		return BasicCredentials{Username: user, Password: pass}, nil
	}
	return nil, ErrNotAuthenticated
}
