package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the bearer token claims: the subject, the branch the staff
// member works at and their role.
type Claims struct {
	BranchID string `json:"branch_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity validates the branch and role claims.
func (c *Claims) Identity() (Identity, error) {
	branchID := NormalizeBranchID(c.BranchID)
	if branchID == "" {
		return Identity{}, ErrMissingBranch
	}
	role, ok := ParseRole(c.Role)
	if !ok {
		return Identity{}, fmt.Errorf("%w %q", ErrInvalidRole, c.Role)
	}
	return Identity{Subject: c.Subject, BranchID: branchID, Role: role}, nil
}

// ParseJWT verifies an HS256 token and returns the identity it carries.
// Expiry is enforced by the parser when the token sets exp.
func ParseJWT(tokenString string, secret []byte) (Identity, error) {
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	if len(secret) == 0 {
		return Identity{}, errors.New("auth: empty secret")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return claims.Identity()
}
