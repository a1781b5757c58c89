package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and decodes HS256 bearer tokens. Decoded claims are
// forwarded to backends as-is; authorization decisions are theirs.
type TokenService struct {
	secretKey string
	issuer    string
}

// NewTokenService creates a TokenService. A non-empty issuer is enforced on
// decode and stamped on issue.
func NewTokenService(secretKey, issuer string) *TokenService {
	return &TokenService{
		secretKey: secretKey,
		issuer:    issuer,
	}
}

// GenerateToken signs claims with an expiry of ttl from now
func (s *TokenService) GenerateToken(claims map[string]interface{}, ttl time.Duration) (string, error) {
	now := time.Now()
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = now.Unix()
	mc["exp"] = now.Add(ttl).Unix()
	if s.issuer != "" {
		mc["iss"] = s.issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return token.SignedString([]byte(s.secretKey))
}

// Decode validates a token and returns its claims
func (s *TokenService) Decode(tokenString string) (map[string]interface{}, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return map[string]interface{}(claims), nil
}
