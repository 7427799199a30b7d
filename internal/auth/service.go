package auth

import (
	"context"
	"time"

	"github.com/abhiramsakaray/twinpay-backend/internal/config"
	"github.com/abhiramsakaray/twinpay-backend/internal/identity"
)

// Service issues access tokens for authenticated accounts.
type Service struct {
	cfg config.Config
	ids *identity.Service
}

// NewService builds the auth service.
func NewService(cfg config.Config, ids *identity.Service) *Service {
	return &Service{cfg: cfg, ids: ids}
}

// Token is the issued credential returned to clients.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login validates credentials through the identity service and signs an
// access token with the account's mobile number as subject.
func (s *Service) Login(ctx context.Context, mobile, password string) (Token, error) {
	acct, err := s.ids.Authenticate(ctx, mobile, password)
	if err != nil {
		return Token{}, err
	}

	now := time.Now()
	claims := map[string]any{
		"sub": acct.MobileNumber,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.AccessTokenTTL).Unix(),
	}
	signed, err := SignHS256(claims, []byte(s.cfg.JWTSecret))
	if err != nil {
		return Token{}, err
	}
	return Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}
