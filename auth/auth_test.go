package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "aVeryLongPassphrase42"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrongPassword", hash)
	req.NoError(err)
	req.False(match)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate("user-123", "alice")
	req.NoError(err)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("user-123", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal("chat-relay", claims.Issuer)
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	req := require.New(t)

	token, err := NewTokenIssuer("secret-a", time.Hour).Generate("user-123", "alice")
	req.NoError(err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Generate("user-123", "alice")
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "longEnough1"}, false},
		{"Username too short", RegisterRequest{"al", "longEnough1"}, true},
		{"Username not alphanumeric", RegisterRequest{"al ice", "longEnough1"}, true},
		{"Password too short", RegisterRequest{"alice", "short"}, true},
		{"Password too long", RegisterRequest{"alice", strings.Repeat("a", 73)}, true},
		{"Missing password", RegisterRequest{"alice", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidPayload)
			} else {
				req.NoError(err)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("a-long-benchmark-password-42")
	}
}
