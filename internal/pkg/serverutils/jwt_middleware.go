package serverutils

import (
	"errors"
	"os"

	"helmet-orchestrator-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalSubject = "subject"
	LocalRole    = "role"

	RoleOperator = "operator"
)

var errSigningMethod = errors.New("unexpected signing method")

// ParseToken validates an HMAC-signed token against JWT_SECRET.
func ParseToken(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errSigningMethod
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// BearerToken reads the token from the Authorization header, falling back to
// the "token" query parameter browsers use for websocket handshakes.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

func JwtMiddleware(ctx *fiber.Ctx) error {
	tokenStr := BearerToken(ctx)
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Missing token"})
	}

	claims, err := ParseToken(tokenStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid token"})
	}

	subject, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	ctx.Locals(LocalSubject, subject)
	ctx.Locals(LocalRole, role)
	return ctx.Next()
}

// CommandSource maps the caller's role to the source recorded on commands.
func CommandSource(ctx *fiber.Ctx) entity.CommandSource {
	if role, _ := ctx.Locals(LocalRole).(string); role == RoleOperator {
		return entity.SourceOperator
	}
	return entity.SourceUI
}
