package handlers

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"

	"github.com/farrukhll0/pigeon-management-system/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationErrors turns validator output into a field -> message map.
func validationErrors(err error) map[string]string {
	messages := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		messages["body"] = "Invalid request body"
		return messages
	}
	for _, e := range verrs {
		// Drop the root struct name so nested fields read "raceResults[0].location".
		field := e.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		messages[field] = fieldMessage(e)
	}
	return messages
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "email":
		return "Please enter a valid email"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", e.Field(), e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		switch e.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s cannot be more than %s characters", e.Field(), e.Param())
		case reflect.Slice:
			return fmt.Sprintf("%s cannot have more than %s entries", e.Field(), e.Param())
		}
		return fmt.Sprintf("%s cannot be more than %s", e.Field(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), strings.ReplaceAll(e.Param(), " ", ", "))
	}
	return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
}

// badRequest answers 400 with a single message.
func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message})
}

// validationFailed answers 400 with per-field messages.
func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  fields,
	})
}

// respondError maps a service error onto its HTTP status and client message.
// Internal error text is only logged.
func respondError(c *fiber.Ctx, op string, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationFailed(c, verr.Fields)
	case errors.Is(err, services.ErrDuplicateEmail):
		return badRequest(c, "User already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		return badRequest(c, "Invalid credentials")
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "User not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not authorized"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Pigeon not found"})
	case errors.Is(err, services.ErrStoreUnavailable):
		log.Printf("Error %s: %v", op, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "Service temporarily unavailable"})
	}
	log.Printf("Error %s: %v", op, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error"})
}

// ErrorHandler answers errors that escape route handlers, such as oversized
// bodies and unknown routes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		message := fe.Message
		switch fe.Code {
		case fiber.StatusNotFound:
			message = "Route not found"
		case fiber.StatusRequestEntityTooLarge:
			message = "Request body too large"
		}
		return c.Status(fe.Code).JSON(fiber.Map{"message": message})
	}
	log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error"})
}
