package service

import (
	"context"
	"testing"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSender records dispatched codes instead of sending mail.
type captureSender struct {
	lastEmail string
	lastCode  string
}

func (c *captureSender) SendLoginCode(_ context.Context, email, code string) error {
	c.lastEmail = email
	c.lastCode = code
	return nil
}

func setupAuth(t *testing.T) (AuthService, *captureSender) {
	t.Helper()
	db := setupDB(t)
	sender := &captureSender{}
	svc := NewAuthService(
		repository.NewGormUserRepository(db),
		repository.NewGormLoginCodeRepository(db),
		sender,
		"test-app",
		"test-secret-at-least-32-bytes-long!",
	)
	return svc, sender
}

func TestSendCode(t *testing.T) {
	svc, sender := setupAuth(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SendCode(ctx, ""), ErrEmailRequired)

	require.NoError(t, svc.SendCode(ctx, "ada@example.com"))
	assert.Equal(t, "ada@example.com", sender.lastEmail)
	assert.Len(t, sender.lastCode, 6)
}

func TestVerifyCode_HappyPath(t *testing.T) {
	svc, sender := setupAuth(t)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "ada@example.com"))

	result, err := svc.VerifyCode(ctx, "ada@example.com", sender.lastCode)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.NotZero(t, result.SessionStartedAt)

	// The token parses back to the same user.
	userID, email, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID)
	assert.Equal(t, "ada@example.com", email)
}

func TestVerifyCode_InvalidCodeKeepsStatePut(t *testing.T) {
	svc, sender := setupAuth(t)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "ada@example.com"))

	// A wrong guess fails but does not consume the dispatched code.
	wrong := "000000"
	if wrong == sender.lastCode {
		wrong = "000001"
	}
	_, err := svc.VerifyCode(ctx, "ada@example.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidCode)

	result, err := svc.VerifyCode(ctx, "ada@example.com", sender.lastCode)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestVerifyCode_CodeIsSingleUse(t *testing.T) {
	svc, sender := setupAuth(t)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "ada@example.com"))
	code := sender.lastCode

	_, err := svc.VerifyCode(ctx, "ada@example.com", code)
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, "ada@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCode_NoCodeDispatched(t *testing.T) {
	svc, _ := setupAuth(t)
	_, err := svc.VerifyCode(context.Background(), "nobody@example.com", "123456")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCode_SameUserAcrossSessions(t *testing.T) {
	svc, sender := setupAuth(t)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "ada@example.com"))
	first, err := svc.VerifyCode(ctx, "ada@example.com", sender.lastCode)
	require.NoError(t, err)

	require.NoError(t, svc.SendCode(ctx, "ada@example.com"))
	second, err := svc.VerifyCode(ctx, "ada@example.com", sender.lastCode)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestParseToken_RejectsGarbage(t *testing.T) {
	svc, _ := setupAuth(t)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, _, err := svc.ParseToken(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestSessionFresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		startedAt int64
		want      bool
	}{
		{name: "signed in yesterday", startedAt: now.Add(-24 * time.Hour).UnixMilli(), want: true},
		{name: "29 days ago", startedAt: now.Add(-29 * 24 * time.Hour).UnixMilli(), want: true},
		{name: "31 days ago", startedAt: now.Add(-31 * 24 * time.Hour).UnixMilli(), want: false},
		{name: "marker cleared by sign-out", startedAt: 0, want: false},
		{name: "negative marker", startedAt: -1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionFresh(tt.startedAt, now))
		})
	}
}
