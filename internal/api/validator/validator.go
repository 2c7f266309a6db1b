package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"pageguard/internal/models"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

var otpPattern = regexp.MustCompile(`^[0-9]{4,10}$`)

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	for tag, fn := range map[string]playgroundvalidator.Func{
		"user_role":  validateUserRole,
		"otp":        validateOTP,
		"perm_level": validateLevel,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}

	return &CustomValidator{validator: v}
}

// Custom validation functions
func validateUserRole(fl playgroundvalidator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).Valid()
}

func validateOTP(fl playgroundvalidator.FieldLevel) bool {
	return otpPattern.MatchString(fl.Field().String())
}

func validateLevel(fl playgroundvalidator.FieldLevel) bool {
	return models.Level(fl.Field().String()).Valid()
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields formats validation errors into a map keyed by JSON field name
func (ve ValidationErrors) Fields() map[string]string {
	errMap := make(map[string]string)
	for _, err := range ve {
		field := err.Field()
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errMap[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			errMap[field] = fmt.Sprintf("%s must be at least %s characters", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "uuid":
			errMap[field] = fmt.Sprintf("%s must be a valid UUID", field)
		case "oneof":
			errMap[field] = fmt.Sprintf("%s must be one of [%s]", field, param)
		case "user_role":
			errMap[field] = fmt.Sprintf("%s must be either 'user' or 'superadmin'", field)
		case "otp":
			errMap[field] = fmt.Sprintf("%s must be a numeric code", field)
		case "perm_level":
			errMap[field] = fmt.Sprintf("%s must be one of none, view, edit, create, delete", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, tag)
		}
	}
	return errMap
}

// LoginRequest is the body of every login endpoint
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=15"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otp"`
}

type ConfirmResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,otp"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// PermissionRequest sets the grant of one user on one page. When Level is
// given it overrides the individual flags.
type PermissionRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	PageID    string `json:"page_id" validate:"required,uuid"`
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanCreate bool   `json:"can_create"`
	CanDelete bool   `json:"can_delete"`
	Level     string `json:"level" validate:"omitempty,perm_level"`
}

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"omitempty,max=150"`
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" validate:"omitempty,max=150"`
	Phone     string `json:"phone" validate:"omitempty,max=15"`
	Role      string `json:"role" validate:"omitempty,user_role"`
	Password  string `json:"password" validate:"omitempty,min=8"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=15"`
	IsActive  *bool   `json:"is_active"`
	Role      *string `json:"role" validate:"omitempty,user_role"`
}
