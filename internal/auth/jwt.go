// Package auth issues and validates the bearer tokens that identify an
// employee or an HR staff member.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the token.
const (
	RoleEmployee = "employee"
	RoleHR       = "hr"
)

const issuer = "hrdesk"

// Claims holds the JWT token payload.
type Claims struct {
	jwt.RegisteredClaims
	EmployeeID string `json:"eid"`
	Role       string `json:"role"`
}

var (
	// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
	ErrInvalidToken = errors.New("auth: invalid or expired token") //nolint:gochecknoglobals // sentinel error
	// ErrInvalidRole is returned when issuing a token for an unknown role.
	ErrInvalidRole = errors.New("auth: invalid role") //nolint:gochecknoglobals // sentinel error
)

// IssueToken creates a signed HS256 token for employeeID acting as role.
func IssueToken(secret, employeeID, role string, ttl time.Duration) (string, error) {
	if role != RoleEmployee && role != RoleHR {
		return "", fmt.Errorf("auth.IssueToken: %q: %w", role, ErrInvalidRole)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		EmployeeID: employeeID,
		Role:       role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid || (claims.Role != RoleEmployee && claims.Role != RoleHR) {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}
	if claims.Role == RoleEmployee && claims.EmployeeID == "" {
		return nil, fmt.Errorf("auth.ValidateToken: missing employee: %w", ErrInvalidToken)
	}

	return claims, nil
}
