package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type CreateApiKeyRequest struct {
	Label string `json:"label" validate:"max=100"`
}
