package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/farrukhll0/pigeon-management-system/internal/middleware"
	"github.com/farrukhll0/pigeon-management-system/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication and profiles.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the authentication routes. protect guards the
// routes that need a logged-in user.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignup)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", protect, h.HandleMe)
	authRoutes.Put("/profile", protect, h.HandleUpdateProfile)
	authRoutes.Post("/profile-image", protect, h.HandleProfileImage)
	authRoutes.Put("/password", protect, h.HandleChangePassword)
}

// SignupRequest represents the request body for signup.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileRequest represents a partial profile update.
type ProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// ProfileImageRequest carries an inline base64 image.
type ProfileImageRequest struct {
	ProfileImage string `json:"profileImage"`
}

// PasswordRequest represents a password change.
type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// HandleSignup registers a user and returns a token for it.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing signup request body: %v", err)
		return badRequest(c, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = services.NormalizeEmail(req.Email)

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, validationErrors(err))
	}

	result, err := h.authService.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return respondError(c, "registering user", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"token":   result.Token,
		"user":    result.User.Summary(),
	})
}

// HandleLogin checks credentials and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return badRequest(c, "Invalid request body")
	}
	req.Email = services.NormalizeEmail(req.Email)

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, validationErrors(err))
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Printf("Failed login for %s", req.Email)
		}
		return respondError(c, "logging in", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.User.Summary(),
	})
}

// HandleMe returns the authenticated user's profile.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.FindByID(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, "loading current user", err)
	}
	return c.JSON(user)
}

// HandleUpdateProfile changes the user's name and/or email.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing profile request body: %v", err)
		return badRequest(c, "Invalid request body")
	}
	if req.Email != nil {
		email := services.NormalizeEmail(*req.Email)
		req.Email = &email
	}

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, validationErrors(err))
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), middleware.UserID(c), services.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEmail) {
			return badRequest(c, "Email already exists")
		}
		return respondError(c, "updating profile", err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// HandleProfileImage replaces the profile image. It accepts either a JSON
// body with a base64 profileImage or a multipart upload in the same field.
func (h *AuthHandler) HandleProfileImage(c *fiber.Ctx) error {
	var image string
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		data, err := readUpload(c, "profileImage")
		if err != nil {
			log.Printf("Error reading profile image upload: %v", err)
			return validationFailed(c, map[string]string{"profileImage": "No image provided"})
		}
		image = base64.StdEncoding.EncodeToString(data)
	} else {
		var req ProfileImageRequest
		if err := c.BodyParser(&req); err != nil {
			log.Printf("Error parsing profile image request body: %v", err)
			return badRequest(c, "Invalid request body")
		}
		image = req.ProfileImage
	}

	user, err := h.authService.UpdateProfileImage(c.UserContext(), middleware.UserID(c), image)
	if err != nil {
		return respondError(c, "updating profile image", err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile image updated successfully",
		"user":    user,
	})
}

// HandleChangePassword replaces the password after checking the current one.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req PasswordRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing password request body: %v", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, validationErrors(err))
	}

	if err := h.authService.ChangePassword(c.UserContext(), middleware.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return badRequest(c, "Current password is incorrect")
		}
		return respondError(c, "changing password", err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// readUpload returns the bytes of the multipart file in field.
func readUpload(c *fiber.Ctx, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
