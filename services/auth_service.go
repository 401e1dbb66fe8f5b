//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Register(username, password string) (Token, error)
	Login(username, password string) (Token, error)
}

type Token string

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         auth.TokenIssuer
}

func NewAuthService(repo repositories.IUserRepository, tokens auth.TokenIssuer) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

// Register validates the payload, hashes the password and persists the
// account. Validation runs before any expensive cryptographic work.
func (s *AuthService) Register(username, password string) (Token, error) {
	if err := auth.ValidateRegister(auth.RegisterRequest{
		Username: username,
		Password: password,
	}); err != nil {
		return "", err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(username, hashedPassword)
	if err != nil {
		return "", err // propagates ErrUserAlreadyExists when the name is taken
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

// Login verifies credentials and issues a session token. Failures stay
// generic to prevent user enumeration.
func (s *AuthService) Login(username, password string) (Token, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
