package serverutils

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func JwtMiddleware(ctx *fiber.Ctx) error {
	userID, err := userFromToken(ctx.Get("Authorization"))
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, err.Error()))
	}
	ctx.Locals("user_id", userID)
	return ctx.Next()
}

// OptionalJwtMiddleware sets user_id when a valid bearer token is sent and
// lets anonymous requests through. A token that is present but invalid is rejected.
func OptionalJwtMiddleware(ctx *fiber.Ctx) error {
	header := ctx.Get("Authorization")
	if header == "" {
		ctx.Locals("user_id", "")
		return ctx.Next()
	}
	return JwtMiddleware(ctx)
}

// UserID reads the id stored by the JWT middlewares.
func UserID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals("user_id").(string)
	return id
}

func userFromToken(authHeader string) (string, error) {
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}
	tokenStr := strings.TrimSpace(authHeader[7:])

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid claims")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid claims")
	}
	return userID, nil
}
