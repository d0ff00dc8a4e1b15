package serverutils

import "github.com/gofiber/fiber/v2"

type APIResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(message string) APIResponse {
	return APIResponse{
		Message: message,
	}
}

// ErrorHandlerMiddleware converts unhandled errors bubbling out of handlers
// into a generic 500 so internal failures never reach clients verbatim.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		if fiberErr, ok := err.(*fiber.Error); ok {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error"))
	}
}
