package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
)

type userGateway interface {
	ListUsers(ctx context.Context) ([]models.UserAccount, error)
	DeleteUser(ctx context.Context, id int64) error
}

// UserDirectoryService is the read/delete mirror of the student directory for
// account administration: wholesale-replace loads, confirmed deletes, no
// selection concept.
type UserDirectoryService struct {
	mu      sync.Mutex
	gw      userGateway
	roles   RoleProvider
	confirm Confirmer
	logger  *zap.Logger

	accounts []models.UserAccount
}

// NewUserDirectoryService constructs the user directory.
func NewUserDirectoryService(gw userGateway, roles RoleProvider, confirm Confirmer, logger *zap.Logger) *UserDirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserDirectoryService{gw: gw, roles: roles, confirm: confirm, logger: logger}
}

// Load replaces the local account list wholesale.
func (s *UserDirectoryService) Load(ctx context.Context) error {
	accounts, err := s.gw.ListUsers(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	return nil
}

// Reset wipes the local mirror without a server round-trip.
func (s *UserDirectoryService) Reset() {
	s.mu.Lock()
	s.accounts = nil
	s.mu.Unlock()
}

// Accounts returns a copy of the current account list.
func (s *UserDirectoryService) Accounts() []models.UserAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts == nil {
		return nil
	}
	out := make([]models.UserAccount, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Delete removes the account after explicit confirmation, reloading on
// success. A declined confirmation is not an error; a failed delete leaves
// the list untouched and surfaces the server's message.
func (s *UserDirectoryService) Delete(ctx context.Context, account models.UserAccount) error {
	if s.roles == nil || !s.roles.Session().CanMutate() {
		return appErrors.Clone(appErrors.ErrForbidden, "teacher role required")
	}
	if s.confirm != nil && !s.confirm(fmt.Sprintf("delete user %q?", account.Username)) {
		return nil
	}
	if err := s.gw.DeleteUser(ctx, account.ID); err != nil {
		return err
	}
	return s.Load(ctx)
}
