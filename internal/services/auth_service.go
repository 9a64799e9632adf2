package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/farrukhll0/pigeon-management-system/internal/models"
	"github.com/farrukhll0/pigeon-management-system/internal/repositories"
	"github.com/farrukhll0/pigeon-management-system/pkg/inlineimage"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxUserNameLen    = 50
	minPasswordLen    = 6
	maxBcryptPassword = 72
)

// AuthService handles business logic for authentication and user profiles.
type AuthService struct {
	userRepo      repositories.UserRepository
	tokens        *TokenService
	events        EventPublisher
	maxImageBytes int
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(userRepo repositories.UserRepository, tokens *TokenService, events EventPublisher, maxImageBytes int) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		tokens:        tokens,
		events:        events,
		maxImageBytes: maxImageBytes,
	}
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string
	User  *models.User
}

// ProfileUpdate lists the profile fields to change; nil fields are left alone.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	ProfileImage *string
}

// HashPassword returns a salted bcrypt hash of raw.
func HashPassword(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether raw matches the user's stored hash.
func VerifyPassword(user *models.User, raw string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(raw)) == nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user with a hashed password.
func (s *AuthService) CreateUser(ctx context.Context, name, email, rawPassword string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	verr := &ValidationError{}
	checkUserName(verr, name)
	if email == "" {
		verr.add("email", "Email is required")
	}
	checkPassword(verr, "password", rawPassword)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email '%s': %w", email, ErrDuplicateEmail)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, storeError("failed to check existing email", err)
	}

	hashed, err := HashPassword(rawPassword)
	if err != nil {
		return nil, err
	}
	user := &models.User{Name: name, Email: email, PasswordHash: hashed}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("email '%s': %w", email, ErrDuplicateEmail)
		}
		return nil, storeError("failed to register user", err)
	}
	return user, nil
}

// Register creates a user and issues a token for it.
func (s *AuthService) Register(ctx context.Context, name, email, rawPassword string) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, name, email, rawPassword)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("Registered user %s", user.ID)
	publishEvent(s.events, ActivityEvent{Event: EventUserRegistered, UserID: user.ID})
	return &AuthResult{Token: token, User: user}, nil
}

// Login authenticates a user and returns a token. Unknown emails and wrong
// passwords produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*AuthResult, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user, rawPassword) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// FindByEmail returns the user registered under email.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("failed to load user", err)
	}
	return user, nil
}

// FindByID returns the user with the given ID.
func (s *AuthService) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("failed to load user", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update to the user's name, email and image.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
		checkUserName(verr, user.Name)
	}
	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if email == "" {
			verr.add("email", "Email is required")
		} else if email != user.Email {
			other, err := s.userRepo.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != user.ID:
				return nil, fmt.Errorf("email '%s': %w", email, ErrDuplicateEmail)
			case err != nil && !errors.Is(err, repositories.ErrNotFound):
				return nil, storeError("failed to check existing email", err)
			}
		}
		user.Email = email
	}
	if upd.ProfileImage != nil {
		image, err := inlineimage.Normalize(*upd.ProfileImage, s.maxImageBytes)
		if err != nil {
			verr.add("profileImage", imageMessage(err))
		}
		user.ProfileImage = image
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("email '%s': %w", user.Email, ErrDuplicateEmail)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("failed to update user", err)
	}
	publishEvent(s.events, ActivityEvent{Event: EventUserUpdated, UserID: user.ID})
	return user, nil
}

// UpdateProfileImage replaces the user's profile image.
func (s *AuthService) UpdateProfileImage(ctx context.Context, id, image string) (*models.User, error) {
	if strings.TrimSpace(image) == "" {
		return nil, (&ValidationError{}).add("profileImage", "No image provided")
	}
	return s.UpdateProfile(ctx, id, ProfileUpdate{ProfileImage: &image})
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !VerifyPassword(user, current) {
		return ErrInvalidCredentials
	}
	verr := &ValidationError{}
	checkPassword(verr, "newPassword", next)
	if err := verr.orNil(); err != nil {
		return err
	}

	hashed, err := HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return storeError("failed to update password", err)
	}
	log.Printf("Password changed for user %s", user.ID)
	return nil
}

func checkUserName(verr *ValidationError, name string) {
	switch {
	case name == "":
		verr.add("name", "Name is required")
	case utf8.RuneCountInString(name) > maxUserNameLen:
		verr.add("name", fmt.Sprintf("Name cannot be more than %d characters", maxUserNameLen))
	}
}

func checkPassword(verr *ValidationError, field, raw string) {
	switch {
	case len(raw) < minPasswordLen:
		verr.add(field, fmt.Sprintf("Password must be at least %d characters long", minPasswordLen))
	case len(raw) > maxBcryptPassword:
		verr.add(field, fmt.Sprintf("Password cannot be more than %d bytes", maxBcryptPassword))
	}
}

// storeError marks repository outages as ErrStoreUnavailable and wraps the rest.
func storeError(op string, err error) error {
	if errors.Is(err, repositories.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func imageMessage(err error) string {
	switch {
	case errors.Is(err, inlineimage.ErrTooLarge):
		return "Image is too large"
	case errors.Is(err, inlineimage.ErrNotImage):
		return "Only image files are allowed"
	default:
		return "Image must be base64 encoded"
	}
}
