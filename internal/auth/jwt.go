package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gwi.com/photo-search-assistant/internal/config"
)

const sessionTokenType = "session"

// GenerateJWT issues a token whose subject is the session id.
func GenerateJWT(sessionID string) (string, error) {
	ttl := time.Duration(config.AppConfig.SessionTTL) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	claims := jwt.MapClaims{
		"sub": sessionID,
		"typ": sessionTokenType,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ValidateJWT returns the session id carried by a valid session token.
func ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if typ, _ := claims["typ"].(string); typ != sessionTokenType {
		return "", fmt.Errorf("not a session token")
	}
	sessionID, _ := claims["sub"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sessionID, nil
}
