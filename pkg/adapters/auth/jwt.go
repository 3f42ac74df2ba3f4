package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

// Claims carries the user in the subject and an optional tenant.
type Claims struct {
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 tokens locally.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// Resolve returns nil, nil for tokens that fail validation, so callers treat
// them as anonymous.
func (r *JWTResolver) Resolve(_ context.Context, tokenString string) (*domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, nil
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil
	}
	identity := &domain.Identity{UserID: userID}
	if claims.TenantID != "" {
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return nil, errors.New("invalid tenant_id claim")
		}
		identity.TenantID = &tenantID
	}
	return identity, nil
}

// Sign issues a token for identity. Used by tooling and tests.
func (r *JWTResolver) Sign(identity domain.Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = identity.UserID.String()
	c := Claims{RegisteredClaims: claims}
	if identity.TenantID != nil {
		c.TenantID = identity.TenantID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(r.secret)
}

var _ ports.IdentityResolver = (*JWTResolver)(nil)
