package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divecrm/divecrm/internal/auth"
	"github.com/divecrm/divecrm/internal/config"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/repository"
)

type fakeStaff struct {
	users map[string]*model.StaffUser
}

func newFakeStaff() *fakeStaff {
	return &fakeStaff{users: make(map[string]*model.StaffUser)}
}

func (f *fakeStaff) Create(ctx context.Context, u *model.StaffUser) error {
	if _, ok := f.users[u.Username]; ok {
		return repository.ErrDuplicate
	}
	f.users[u.Username] = u
	return nil
}

func (f *fakeStaff) GetByUsername(ctx context.Context, username string) (*model.StaffUser, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStaff) GetByID(ctx context.Context, id string) (*model.StaffUser, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStaff) List(ctx context.Context) ([]*model.StaffUser, error) {
	var all []*model.StaffUser
	for _, u := range f.users {
		all = append(all, u)
	}
	return all, nil
}

func (f *fakeStaff) Delete(ctx context.Context, id string) error {
	for name, u := range f.users {
		if u.ID == id {
			delete(f.users, name)
			return nil
		}
	}
	return repository.ErrNotFound
}

func newAuthService(t *testing.T) (*AuthService, *fakeStaff) {
	t.Helper()
	tokens, err := auth.NewTokenService(config.TokenConfig{
		Secret: "test-secret", Issuer: "divecrm", AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	staff := newFakeStaff()
	// low-cost hashing parameters for tests
	svc := NewAuthService(staff, tokens, config.PasswordConfig{
		MinLength: 10, Argon2Memory: 8 * 1024, Argon2Iterations: 1, Argon2Parallelism: 1,
	})
	return svc, staff
}

func TestCreateStaffAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	u, err := svc.CreateStaff(ctx, "ana", "a-long-password", true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	assert.NotEqual(t, "a-long-password", u.PasswordHash)

	sess, err := svc.Login(ctx, "ana", "a-long-password")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ana", sess.User.Username)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, "ana", "a-long-password", false)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana", "not-the-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUserSameError(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "nobody", "whatever-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateStaffShortPassword(t *testing.T) {
	svc, staff := newAuthService(t)

	_, err := svc.CreateStaff(context.Background(), "ana", "short", false)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.Empty(t, staff.users)
}

func TestCreateStaffDuplicateUsername(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, "ana", "a-long-password", false)
	require.NoError(t, err)

	_, err = svc.CreateStaff(ctx, "ana", "another-password", false)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
