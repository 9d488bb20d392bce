package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pulse-correction-bot/pkg/response"
)

// BotSecretHeader carries the secret shared with the order backend.
const BotSecretHeader = "X-Bot-Secret"

// BotSecret guards the ops API with the shared backend secret.
// With no secret configured every request is rejected.
func BotSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(BotSecretHeader)
		if secret == "" || got == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing bot secret", nil)
			c.Abort()
			return
		}
		if !equalSecret(got, secret) {
			response.Error[any](c, http.StatusUnauthorized, "invalid bot secret", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// WebhookSecret checks the :secret path segment of the webhook route.
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || !equalSecret(c.Param("secret"), secret) {
			response.Error[any](c, http.StatusNotFound, "not found", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func equalSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
