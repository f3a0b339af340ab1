package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
)

// AuthContext is the caller identity resolved from the bearer token.
type AuthContext struct {
	UserId uuid.UUID
	Email  string
}

func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token", false))
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token", false))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims", false))
	}

	uid, _ := claims["uid"].(string)
	if uid == "" {
		uid, _ = claims["user_id"].(string)
	}
	if _, err := uuid.Parse(uid); err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid subject", false))
	}
	email, _ := claims["email"].(string)

	ctx.Locals(LocalUserID, uid)
	ctx.Locals(LocalEmail, email)
	return ctx.Next()
}

// Auth reads the identity stored by JwtMiddleware.
func Auth(ctx *fiber.Ctx) AuthContext {
	uid, _ := ctx.Locals(LocalUserID).(string)
	email, _ := ctx.Locals(LocalEmail).(string)
	userId, _ := uuid.Parse(uid)
	return AuthContext{UserId: userId, Email: email}
}
