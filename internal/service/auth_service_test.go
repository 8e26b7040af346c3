package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (
	*AuthServiceImpl,
	*mocks.MockUserRepository,
	*mocks.MockHashService,
	*mocks.MockTokenService,
) {
	ctrl := gomock.NewController(t)
	userRepo := mocks.NewMockUserRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	svc := NewAuthService(userRepo, hashSvc, tokenSvc, newTestLogger())
	return svc, userRepo, hashSvc, tokenSvc
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, userRepo, hashSvc, _ := setupAuthService(t)
	ctx := context.Background()
	req := ports.RegisterRequest{Username: "alice", Password: "StrongP@ss123"}

	userRepo.EXPECT().GetByUsername(ctx, req.Username).Return(nil, nil)
	hashSvc.EXPECT().Hash(req.Password).Return("$argon2id$hashed", nil)
	userRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	user, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role, "self registration never grants admin")
	assert.Equal(t, "$argon2id$hashed", user.PasswordHash)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc, userRepo, _, _ := setupAuthService(t)
	ctx := context.Background()

	userRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: uuid.New(), Username: "alice"}, nil)

	_, err := svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "x"})
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Register_LostRace(t *testing.T) {
	svc, userRepo, hashSvc, _ := setupAuthService(t)
	ctx := context.Background()

	userRepo.EXPECT().GetByUsername(ctx, "bob").Return(nil, nil)
	hashSvc.EXPECT().Hash("pw").Return("hash", nil)
	userRepo.EXPECT().Create(ctx, gomock.Any()).Return(domain.ErrDuplicate)

	_, err := svc.Register(ctx, ports.RegisterRequest{Username: "bob", Password: "pw"})
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Register_HashFailure(t *testing.T) {
	svc, userRepo, hashSvc, _ := setupAuthService(t)
	ctx := context.Background()

	userRepo.EXPECT().GetByUsername(ctx, "bob").Return(nil, nil)
	hashSvc.EXPECT().Hash("pw").Return("", errors.New("out of memory"))

	_, err := svc.Register(ctx, ports.RegisterRequest{Username: "bob", Password: "pw"})
	assertAppError(t, err, "SYS_001")
}

func TestAuthService_Login(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Username: "alice", PasswordHash: "hash", Role: domain.RoleAdmin}
	expiry := time.Now().Add(time.Hour)

	t.Run("success", func(t *testing.T) {
		svc, userRepo, hashSvc, tokenSvc := setupAuthService(t)
		userRepo.EXPECT().GetByUsername(gomock.Any(), "alice").Return(user, nil)
		hashSvc.EXPECT().Verify("secret", "hash").Return(true, nil)
		tokenSvc.EXPECT().Generate(user.ID, domain.RoleAdmin).Return("jwt-token", expiry, nil)

		token, exp, err := svc.Login(context.Background(), "alice", "secret")
		require.NoError(t, err)
		assert.Equal(t, "jwt-token", token)
		assert.Equal(t, expiry, exp)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, userRepo, _, _ := setupAuthService(t)
		userRepo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(nil, nil)

		_, _, err := svc.Login(context.Background(), "ghost", "secret")
		assertAppError(t, err, "AUTH_001")
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, userRepo, hashSvc, _ := setupAuthService(t)
		userRepo.EXPECT().GetByUsername(gomock.Any(), "alice").Return(user, nil)
		hashSvc.EXPECT().Verify("nope", "hash").Return(false, nil)

		_, _, err := svc.Login(context.Background(), "alice", "nope")
		assertAppError(t, err, "AUTH_001")
	})

	t.Run("repository error", func(t *testing.T) {
		svc, userRepo, _, _ := setupAuthService(t)
		userRepo.EXPECT().GetByUsername(gomock.Any(), "alice").Return(nil, errors.New("db down"))

		_, _, err := svc.Login(context.Background(), "alice", "secret")
		assertAppError(t, err, "SYS_001")
	})
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Run("creates admin", func(t *testing.T) {
		svc, userRepo, hashSvc, _ := setupAuthService(t)
		userRepo.EXPECT().GetByUsername(gomock.Any(), "root").Return(nil, nil).Times(2)
		hashSvc.EXPECT().Hash("pw").Return("hash", nil)
		userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, u *domain.User) error {
				assert.Equal(t, domain.RoleAdmin, u.Role)
				return nil
			})

		user, err := svc.EnsureAdmin(context.Background(), "root", "pw")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, user.Role)
	})

	t.Run("existing admin is kept", func(t *testing.T) {
		svc, userRepo, _, _ := setupAuthService(t)
		existing := &domain.User{ID: uuid.New(), Username: "root", Role: domain.RoleAdmin}
		userRepo.EXPECT().GetByUsername(gomock.Any(), "root").Return(existing, nil)

		user, err := svc.EnsureAdmin(context.Background(), "root", "pw")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
	})

	t.Run("name taken by user", func(t *testing.T) {
		svc, userRepo, _, _ := setupAuthService(t)
		userRepo.EXPECT().GetByUsername(gomock.Any(), "root").Return(&domain.User{Role: domain.RoleUser}, nil)

		_, err := svc.EnsureAdmin(context.Background(), "root", "pw")
		assertAppError(t, err, "AUTH_002")
	})
}
