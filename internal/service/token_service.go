package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-content-dashboard/internal/model"
)

// Denylist is the optional server-side revocation store keyed by token id.
type Denylist interface {
	Deny(ctx context.Context, tokenID string, ttl time.Duration) error
	IsDenied(ctx context.Context, tokenID string) (bool, error)
}

// TokenService issues and verifies stateless HS256 bearer tokens. Without a
// denylist the only way a token stops working is its expiry.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	denylist Denylist
	now      func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, denylist Denylist) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &TokenService{
		secret:   []byte(secret),
		ttl:      ttl,
		denylist: denylist,
		now:      time.Now,
	}, nil
}

// SetClock replaces the time source for issuing and verifying.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify resolves a token to the identity it was issued for. Signature and
// format problems yield model.ErrInvalidToken, an elapsed expiry
// model.ErrTokenExpired, a denied token id model.ErrTokenRevoked.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (model.Identity, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, fmt.Errorf("%w: %v", model.ErrTokenExpired, err)
		}
		return model.Identity{}, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return model.Identity{}, fmt.Errorf("%w: missing subject or token id", model.ErrInvalidToken)
	}

	if s.denylist != nil {
		denied, err := s.denylist.IsDenied(ctx, claims.ID)
		if err != nil {
			return model.Identity{}, err
		}
		if denied {
			return model.Identity{}, model.ErrTokenRevoked
		}
	}

	return model.Identity{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke denies the identity's token until it expires. It reports false when
// no denylist is configured, in which case the token stays valid.
func (s *TokenService) Revoke(ctx context.Context, identity model.Identity) (bool, error) {
	if s.denylist == nil || identity.TokenID == "" {
		return false, nil
	}

	ttl := identity.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return true, nil
	}

	if err := s.denylist.Deny(ctx, identity.TokenID, ttl); err != nil {
		return false, err
	}
	return true, nil
}
