package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// NewJwtMiddleware guards operator endpoints (ingestion) with the given HMAC
// secret. Chat connections are tenant-scoped and unauthenticated.
func NewJwtMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		})

		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
		}

		ctx.Locals("operator_id", claims["sub"])
		return ctx.Next()
	}
}
