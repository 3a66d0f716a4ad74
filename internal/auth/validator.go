package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"chat-app/internal/apperr"
	"chat-app/internal/models"
)

var validate = validator.New()

// UserDraft is the input for signup and admin user creation or update.
type UserDraft struct {
	FullName string      `json:"full_name" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Mobile   string      `json:"mobile" validate:"required,len=10,numeric"`
	Password string      `json:"password" validate:"omitempty,min=8,max=72"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=user admin"`
}

// ValidateDraft checks a draft. requirePassword is false for updates.
func ValidateDraft(d UserDraft, requirePassword bool) error {
	if requirePassword && d.Password == "" {
		return apperr.Validation("missing_fields", "All fields (name, email, mobile, password) are required")
	}

	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("invalid_user", err.Error())
	}
	first := verrs[0]
	if first.Tag() == "required" {
		if requirePassword {
			return apperr.Validation("missing_fields", "All fields (name, email, mobile, password) are required")
		}
		return apperr.Validation("missing_fields", "Name, email, and mobile are required")
	}
	switch first.Field() {
	case "Email":
		return apperr.Validation("invalid_email", "Please enter a valid email address")
	case "Mobile":
		return apperr.Validation("invalid_mobile", "Mobile number must be exactly 10 digits")
	case "Password":
		return apperr.Validation("invalid_password", "Password must be at least 8 characters")
	case "Role":
		return apperr.Validation("invalid_role", "Role must be user or admin")
	}
	return apperr.Validation("invalid_user", first.Error())
}
