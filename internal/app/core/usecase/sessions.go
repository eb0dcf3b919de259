package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// Sessions 登入: 驗證帳密後簽發 token
type Sessions struct {
	users    IdentityStore
	verifier PasswordVerifier
	tokens   TokenIssuer
	log      logrus.FieldLogger
}

func NewSessions(users IdentityStore, verifier PasswordVerifier, tokens TokenIssuer, log logrus.FieldLogger) *Sessions {
	return &Sessions{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		log:      log.WithField("component", "sessions"),
	}
}

// Login 回傳 bearer token
// 使用者不存在與密碼錯誤都回傳 ErrInvalidCredentials
func (s *Sessions) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", storeError(err)
	}
	if err := s.verifier.Compare(user.PasswordHash, password); err != nil {
		s.log.WithField("user_id", user.ID).Info("login rejected")
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
