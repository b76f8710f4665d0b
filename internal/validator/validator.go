// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"leavedesk/internal/leave"
)

// Letters (including CJK), digits, underscore, dot and hyphen.
var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.\-]{3,64}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("leave_date", validateLeaveDate)
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("leave_category", validateLeaveCategory)
}

func validateLeaveDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(leave.DateLayout, fl.Field().String())
	return err == nil
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func validateLeaveCategory(fl validator.FieldLevel) bool {
	return leave.Category(fl.Field().String()).Valid()
}
