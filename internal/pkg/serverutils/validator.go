package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs struct-tag validation and maps failures to a 400.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var fields []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Field(), fieldErr.Tag()))
		}
		return fiber.NewError(fiber.StatusBadRequest, "Validation failed: "+strings.Join(fields, ", "))
	}
	return nil
}
