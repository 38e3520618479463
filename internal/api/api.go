package api

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"marketplace/internal/apperr"
)

// Claims is the bearer-token payload. The identity provider is external;
// this service only reads the verified user id and role.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// userID extracts the authenticated user id set by the JWT middleware,
// or zero when the request carries no identity.
func userID(c echo.Context) int64 {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return 0
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return 0
	}
	return claims.UserID
}

func isAdmin(c echo.Context) bool {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return false
	}
	claims, ok := token.Claims.(*Claims)
	return ok && claims.Role == "admin"
}

// writeError maps business errors onto HTTP responses without leaking
// storage internals.
func writeError(c echo.Context, err error) error {
	if e := apperr.As(err); e != nil {
		return c.JSON(apperr.HTTPStatus(err), map[string]string{
			"code":    e.Code,
			"message": e.Message,
		})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal server error"})
}
