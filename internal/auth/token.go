package auth

import (
	"fmt"
	"time"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 8 * time.Hour

// CustomClaims is the identity carried inside a token.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// JWTAuthority issues and checks HS256 tokens.
type JWTAuthority struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewJWTAuthority(secret string, ttl time.Duration, issuer string) *JWTAuthority {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTAuthority{key: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

func (a *JWTAuthority) Sign(user domain.User) (string, error) {
	now := a.now()
	claims := &CustomClaims{
		UserID:   string(user.ID),
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    a.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *JWTAuthority) Verify(tokenString string) (domain.User, error) {
	if tokenString == "" {
		return domain.User{}, ErrMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.key, nil
	}, opts...)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.User{}, ErrInvalidToken
	}
	return domain.User{
		ID:       domain.UserID(claims.UserID),
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}, nil
}
