package services

import (
	"errors"
	"time"

	"junctionflow/config"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService validates the bearer tokens that guard the bulk export. Tokens
// are minted out of band with the shared JWT_SECRET; there is no user store.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{jwtSecret: []byte(cfg.Secret)}
}

// Enabled reports whether a secret is configured.
func (s *AuthService) Enabled() bool {
	return s != nil && len(s.jwtSecret) > 0
}

type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateToken(subject, scope string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", errors.New("no JWT secret configured")
	}
	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.jwtSecret, nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
