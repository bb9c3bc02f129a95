package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken issues an HS256 bearer token for a tenant. Account
// creation itself happens at the integration platform's OAuth flow; this
// only binds an already-known entity id to a session token.
func GenerateToken(secret []byte, entityID string) (string, error) {
	claims := jwt.MapClaims{
		"entity_id": entityID,
		"exp":       time.Now().Add(30 * 24 * time.Hour).Unix(),
		"iat":       time.Now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseToken validates the token and returns the entity id it carries.
func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	entityID, ok := claims["entity_id"].(string)
	if !ok || entityID == "" {
		return "", fmt.Errorf("token missing entity_id")
	}
	return entityID, nil
}
