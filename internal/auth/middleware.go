package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"speakwall/internal/utils"
)

// UserIDKey is where Required stores the verified user id on the context.
const UserIDKey = "user_id"

// Required rejects requests without a valid Bearer token and stores the
// verified user id under UserIDKey for downstream handlers.
func Required(signer *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			utils.Error(c, http.StatusUnauthorized, "Missing bearer token")
			c.Abort()
			return
		}

		userID, err := signer.Verify(token)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID reads the verified user id set by Required. Empty when the route
// is not behind the middleware.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
