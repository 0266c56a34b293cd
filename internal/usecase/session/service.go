package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUnauthorized = errors.New("unauthorized")

type Claims struct {
	SessionID string
}

type TokenService interface {
	GenerateToken(sessionID string) (string, error)
	ParseToken(token string) (*Claims, error)
}

type Result struct {
	Token     string
	SessionID string
}

type Service struct {
	tokens TokenService
	newID  func() string
}

func NewService(tokens TokenService) *Service {
	return &Service{
		tokens: tokens,
		newID:  func() string { return uuid.NewString() },
	}
}

// Start opens an anonymous shopper session.
func (s *Service) Start(ctx context.Context) (*Result, error) {
	id := s.newID()
	token, err := s.tokens.GenerateToken(id)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, SessionID: id}, nil
}

// Resolve maps a bearer token back to its session.
func (s *Service) Resolve(token string) (string, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil || claims == nil || claims.SessionID == "" {
		return "", ErrUnauthorized
	}
	return claims.SessionID, nil
}
