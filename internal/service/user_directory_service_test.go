package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
)

type mockUserGateway struct {
	users     []models.UserAccount
	listErr   error
	deleteErr error

	listCalls   int
	deleteCalls int
	lastDeleted int64
}

func (m *mockUserGateway) ListUsers(ctx context.Context) ([]models.UserAccount, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.UserAccount, len(m.users))
	copy(out, m.users)
	return out, nil
}

func (m *mockUserGateway) DeleteUser(ctx context.Context, id int64) error {
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.lastDeleted = id
	kept := m.users[:0]
	for _, account := range m.users {
		if account.ID != id {
			kept = append(kept, account)
		}
	}
	m.users = kept
	return nil
}

func seedUsers() []models.UserAccount {
	return []models.UserAccount{
		{ID: 1, Username: "teacher1", Role: models.RoleTeacher},
		{ID: 2, Username: "student1", Role: models.RoleStudent},
	}
}

func TestUserDirectoryLoadReplacesWholesale(t *testing.T) {
	gw := &mockUserGateway{users: seedUsers()}
	svc := NewUserDirectoryService(gw, teacherRoles, nil, zap.NewNop())

	require.NoError(t, svc.Load(context.Background()))
	assert.Len(t, svc.Accounts(), 2)

	gw.users = gw.users[:1]
	require.NoError(t, svc.Load(context.Background()))
	assert.Len(t, svc.Accounts(), 1)
}

func TestUserDeleteReloadsOnSuccess(t *testing.T) {
	gw := &mockUserGateway{users: seedUsers()}
	svc := NewUserDirectoryService(gw, teacherRoles, nil, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))

	require.NoError(t, svc.Delete(context.Background(), models.UserAccount{ID: 2, Username: "student1"}))
	assert.Equal(t, int64(2), gw.lastDeleted)
	assert.Len(t, svc.Accounts(), 1)
}

func TestUserDeleteDeclinedSendsNoRequest(t *testing.T) {
	gw := &mockUserGateway{users: seedUsers()}
	decline := Confirmer(func(string) bool { return false })
	svc := NewUserDirectoryService(gw, teacherRoles, decline, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))

	require.NoError(t, svc.Delete(context.Background(), models.UserAccount{ID: 2}))
	assert.Equal(t, 0, gw.deleteCalls)
	assert.Len(t, svc.Accounts(), 2)
}

func TestUserDeleteFailureSurfacesServerText(t *testing.T) {
	gw := &mockUserGateway{users: seedUsers(), deleteErr: appErrors.Clone(appErrors.ErrServer, "cannot delete yourself")}
	svc := NewUserDirectoryService(gw, teacherRoles, nil, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))

	err := svc.Delete(context.Background(), models.UserAccount{ID: 1})
	require.Error(t, err)
	assert.Equal(t, "cannot delete yourself", appErrors.FromError(err).Message)
	assert.Len(t, svc.Accounts(), 2, "list untouched on failure")
}

func TestUserDeleteRequiresTeacherRole(t *testing.T) {
	gw := &mockUserGateway{users: seedUsers()}
	svc := NewUserDirectoryService(gw, studentRoles, nil, zap.NewNop())

	err := svc.Delete(context.Background(), models.UserAccount{ID: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, gw.deleteCalls)
}

func TestUserDirectoryReset(t *testing.T) {
	gw := &mockUserGateway{users: seedUsers()}
	svc := NewUserDirectoryService(gw, teacherRoles, nil, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))

	svc.Reset()
	assert.Empty(t, svc.Accounts())
}
