package service

import (
	"context"
	"testing"

	"shopbill/internal/database"
	"shopbill/internal/model"
	"shopbill/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T) UserService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return NewUserService(repository.NewUserRepository(db))
}

func TestCreateUserAndLogin(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "asha",
		Email:    "asha@example.com",
		Password: "secret123",
		Role:     model.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, created.Role)

	token, err := svc.Login(ctx, LoginUserRequest{Username: "asha", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.Equal(t, "asha", token.User.Username)

	_, err = svc.Login(ctx, LoginUserRequest{Username: "asha", Password: "wrong"})
	require.Error(t, err)

	_, err = svc.Login(ctx, LoginUserRequest{Username: "nobody", Password: "secret123"})
	require.Error(t, err)
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "asha", Email: "asha@example.com", Password: "secret123", Role: model.RoleStaff,
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username: "asha", Email: "other@example.com", Password: "secret123", Role: model.RoleStaff,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already exists")

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username: "other", Email: "asha@example.com", Password: "secret123", Role: model.RoleStaff,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email already exists")
}

func TestSeedDefaultAdminOnlyOnEmptyTable(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaultAdmin(ctx))

	users, total, err := svc.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.RoleAdmin, users[0].Role)

	// Second call is a no-op
	require.NoError(t, svc.SeedDefaultAdmin(ctx))
	_, total, err = svc.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
