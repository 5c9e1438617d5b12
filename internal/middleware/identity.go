package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/JonnyWalker81/trendy/engagement/internal/apierror"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
)

// UserIDHeader identifies the user a request acts for
const UserIDHeader = logger.UserIDHeader

// RequireUser rejects requests without a user id and stores it as
// "user_id" in the gin context and in the request context for logging
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithUserID(c.Request.Context(), c.GetHeader(UserIDHeader))
		userID := logger.UserIDFromContext(ctx)
		if userID == "" {
			logger.Ctx(c.Request.Context()).Debug("request rejected: missing user id")
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
			return
		}

		c.Set("user_id", userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
