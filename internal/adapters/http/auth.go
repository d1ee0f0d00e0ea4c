package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

var (
	errNoCredentials = errors.New("authentication credentials were not provided")
	errInvalidToken  = errors.New("invalid session token")
)

// sessionClaims is the payload of a platform session token. The subject
// carries the user id.
type sessionClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 session tokens issued by the platform, read
// from an "Authorization: Bearer" header or the session cookie.
type Authenticator struct {
	secret     []byte
	cookieName string
}

// NewAuthenticator creates an Authenticator for the shared secret.
func NewAuthenticator(secret, cookieName string) *Authenticator {
	return &Authenticator{secret: []byte(secret), cookieName: cookieName}
}

// Sign issues a token for user valid for ttl.
func (a *Authenticator) Sign(user domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses and validates a raw token.
func (a *Authenticator) Verify(raw string) (domain.User, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return domain.User{}, errInvalidToken
	}
	if claims.Subject == "" {
		return domain.User{}, errInvalidToken
	}
	return domain.User{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// Authenticate resolves the caller of a request.
func (a *Authenticator) Authenticate(c *fiber.Ctx) (domain.User, error) {
	raw := bearerToken(c.Get(fiber.HeaderAuthorization))
	if raw == "" && a.cookieName != "" {
		raw = c.Cookies(a.cookieName)
	}
	if raw == "" {
		return domain.User{}, errNoCredentials
	}
	return a.Verify(raw)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

const userKey = "user"

// CurrentUser returns the user stored by SignInRequired.
func CurrentUser(c *fiber.Ctx) (domain.User, bool) {
	u, ok := c.Locals(userKey).(domain.User)
	return u, ok
}
