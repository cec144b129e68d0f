package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims API access token claims
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"` // "access"
	jwtv5.RegisteredClaims
}

// Manager signs and verifies API tokens
type Manager struct {
	secret         []byte
	issuer         string
	accessTokenTTL time.Duration
}

// NewManager creates a JWT manager
func NewManager(cfg *config.AuthConfig) *Manager {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "mobilic"
	}
	return &Manager{
		secret:         []byte(cfg.JWTSecret),
		issuer:         issuer,
		accessTokenTTL: cfg.AccessTokenTTL,
	}
}

// GenerateAccessToken signs an access token for the given user and role
func (m *Manager) GenerateAccessToken(userID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Role:      role,
		TokenType: "access",
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.accessTokenTTL)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken verifies a token and returns its claims
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
