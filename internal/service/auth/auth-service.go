package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clinichat/entity"
	"clinichat/internal/lib/sl"
)

// ErrInvalidToken covers malformed, expired and badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by a clinichat bearer token.
type Claims struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service verifies and issues bearer tokens. Verification is the single
// point where unauthenticated traffic is filtered; everything downstream
// trusts the returned identity.
type Service struct {
	secret []byte
	ttl    time.Duration
	log    *slog.Logger
}

func NewService(secret string, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		log:    logger.With(sl.Module("auth-service")),
	}
}

// IssueToken signs a token for the given identity. Used by the REST layer's
// login flow; the messaging core only verifies.
func (s *Service) IssueToken(user entity.UserAuth) (string, error) {
	claims := &Claims{
		UserID:   user.UserID,
		TenantID: user.TenantID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// AuthenticateByToken parses and verifies a bearer token and returns the
// identity it carries.
func (s *Service) AuthenticateByToken(tokenString string) (*entity.UserAuth, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.TenantID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}

	return &entity.UserAuth{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}, nil
}
