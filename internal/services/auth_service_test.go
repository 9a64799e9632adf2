package services_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/farrukhll0/pigeon-management-system/internal/models"
	"github.com/farrukhll0/pigeon-management-system/internal/repositories"
	"github.com/farrukhll0/pigeon-management-system/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T, repo *MockUserRepository) *services.AuthService {
	t.Helper()
	return services.NewAuthService(repo, newTokenService(t), nil, 0)
}

func existingUser(t *testing.T, password string) *models.User {
	t.Helper()
	hashed, err := services.HashPassword(password)
	require.NoError(t, err)
	return &models.User{ID: "user-123", Name: "A", Email: "a@x.com", PasswordHash: hashed}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)

	var stored *models.User
	mockRepo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*models.User)
		stored.ID = "user-123"
	}).Return(nil).Once()

	result, err := authService.Register(ctx, " A ", " A@X.com ", "secret1")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)

	assert.Equal(t, "A", result.User.Name)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	tokens := newTokenService(t)
	userID, err := tokens.Verify(result.Token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)

	mockRepo.On("GetByEmail", mock.Anything, "a@x.com").Return(&models.User{ID: "1"}, nil).Once()
	_, err := authService.Register(ctx, "A", "a@x.com", "secret1")
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)

	// A unique violation that slips past the lookup maps to the same error.
	mockRepo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("insert: %w", repositories.ErrDuplicateKey)).Once()
	_, err = authService.Register(ctx, "A", "a@x.com", "secret1")
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)

	_, err := authService.Register(ctx, "", "", "123")
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")

	_, err = authService.Register(ctx, strings.Repeat("n", 51), "a@x.com", "secret1")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_RegisterStoreUnavailable(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)

	mockRepo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, fmt.Errorf("dial: %w", repositories.ErrUnavailable)).Once()
	_, err := authService.Register(context.Background(), "A", "a@x.com", "secret1")
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)
	user := existingUser(t, "secret1")

	// Test successful login
	mockRepo.On("GetByEmail", mock.Anything, "a@x.com").Return(user, nil).Once()
	result, err := authService.Login(ctx, "A@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", mock.Anything, "a@x.com").Return(user, nil).Once()
	_, wrongPassword := authService.Login(ctx, "a@x.com", "wrongpassword")
	assert.ErrorIs(t, wrongPassword, services.ErrInvalidCredentials)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByEmail", mock.Anything, "nobody@x.com").Return(nil, repositories.ErrNotFound).Once()
	_, unknownEmail := authService.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, unknownEmail, services.ErrInvalidCredentials)

	// Both failures must be indistinguishable.
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	mockRepo.AssertExpectations(t)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)

	mockRepo.On("GetByID", mock.Anything, "user-123").Return(existingUser(t, "secret1"), nil).Once()
	mockRepo.On("GetByEmail", mock.Anything, "b@x.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := authService.UpdateProfile(ctx, "user-123", services.ProfileUpdate{Email: strPtr("B@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", user.Email)
	assert.Equal(t, "A", user.Name, "name is untouched by an email-only update")

	// Email owned by someone else
	mockRepo.On("GetByID", mock.Anything, "user-123").Return(existingUser(t, "secret1"), nil).Once()
	mockRepo.On("GetByEmail", mock.Anything, "taken@x.com").Return(&models.User{ID: "other"}, nil).Once()
	_, err = authService.UpdateProfile(ctx, "user-123", services.ProfileUpdate{Email: strPtr("taken@x.com")})
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)

	// Keeping one's own email is not a collision
	mockRepo.On("GetByID", mock.Anything, "user-123").Return(existingUser(t, "secret1"), nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()
	user, err = authService.UpdateProfile(ctx, "user-123", services.ProfileUpdate{Name: strPtr("New"), Email: strPtr("a@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "New", user.Name)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_UpdateProfileImage(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	mockRepo.On("GetByID", mock.Anything, "user-123").Return(existingUser(t, "secret1"), nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := authService.UpdateProfileImage(ctx, "user-123", base64.StdEncoding.EncodeToString(png))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.ProfileImage, "data:image/png;base64,"))

	mockRepo.On("GetByID", mock.Anything, "user-123").Return(existingUser(t, "secret1"), nil).Once()
	_, err = authService.UpdateProfileImage(ctx, "user-123", base64.StdEncoding.EncodeToString([]byte("just some text")))
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "profileImage")

	_, err = authService.UpdateProfileImage(ctx, "user-123", "")
	require.ErrorAs(t, err, &verr)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(t, mockRepo)

	mockRepo.On("GetByID", mock.Anything, "user-123").Return(existingUser(t, "secret1"), nil).Once()
	err := authService.ChangePassword(ctx, "user-123", "wrong", "newsecret")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	var saved *models.User
	mockRepo.On("GetByID", mock.Anything, "user-123").Return(existingUser(t, "secret1"), nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.User)
	}).Return(nil).Once()
	err = authService.ChangePassword(ctx, "user-123", "secret1", "newsecret")
	require.NoError(t, err)
	assert.True(t, services.VerifyPassword(saved, "newsecret"))
	assert.False(t, services.VerifyPassword(saved, "secret1"))
	mockRepo.AssertExpectations(t)
}

func TestVerifyPassword(t *testing.T) {
	user := existingUser(t, "secret1")
	assert.True(t, services.VerifyPassword(user, "secret1"))
	assert.False(t, services.VerifyPassword(user, "secret2"))
	assert.False(t, services.VerifyPassword(&models.User{}, "secret1"))
	assert.False(t, services.VerifyPassword(nil, "secret1"))
}
