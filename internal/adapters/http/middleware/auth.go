package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rafaelleal24/inventory/internal/adapters/http/handlers"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
)

const userIDKey = "user_id"

type TokenParser interface {
	ParseToken(token string) (domain.ID, error)
}

// Authenticate requires a bearer token and stores the caller's id on the
// gin context.
func Authenticate(parser TokenParser) gin.HandlerFunc {
	return authenticate(parser, false)
}

// AuthenticateStream also accepts the token in the access_token query
// parameter, since browser EventSource clients cannot set headers.
func AuthenticateStream(parser TokenParser) gin.HandlerFunc {
	return authenticate(parser, true)
}

func authenticate(parser TokenParser, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && allowQuery {
			token = c.Query("access_token")
		}
		if token == "" {
			handlers.HandleError(c, serviceerrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		userID, err := parser.ParseToken(token)
		if err != nil {
			handlers.HandleError(c, err)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID returns the authenticated caller, or "" outside Authenticate.
func UserID(c *gin.Context) domain.ID {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(domain.ID); ok {
			return id
		}
	}
	return ""
}
