package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Roles carried in the identity token. The engine itself never inspects
// roles; handlers use them to gate admin routes.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified caller supplied to handlers by the auth
// middleware.
type Identity struct {
	ClientID string
	Role     string
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and validates the JWT identity tokens that realize
// the "verified client identity and role" collaborator.
type AuthService struct {
	secret []byte
	expiry time.Duration
}

func NewAuthService(secret string, expiry time.Duration) *AuthService {
	return &AuthService{secret: []byte(secret), expiry: expiry}
}

// IssueToken creates a signed token for the given client and role.
func (s *AuthService) IssueToken(clientID, role string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	})
	return token.SignedString(s.secret)
}

// ValidateToken verifies a token and returns the identity it carries.
func (s *AuthService) ValidateToken(tokenString string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	role := c.Role
	if role == "" {
		role = RoleClient
	}
	return &Identity{ClientID: c.Subject, Role: role}, nil
}

// HashPassword produces a bcrypt hash for storage on the client row.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a stored bcrypt hash against a candidate password.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
