package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the access-token shape the hosted identity provider signs.
// Subject carries the user id. TenantID scopes every read the bearer makes.
type Claims struct {
	jwt.RegisteredClaims

	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

func (c Claims) UserID() string { return c.Subject }
