package router

import (
	"net/http"

	"fitts-go/internal/handlers"
	"fitts-go/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionKeySessionKey = "experiment_key"

// SessionKeyMiddleware gives every browser session a random key that
// identifies its experiment session in the runner, and stores the key in
// the Gin context for the handlers.
func SessionKeyMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		key, ok := session.Get(sessionKeySessionKey).(string)
		if !ok || key == "" {
			var err error
			key, err = utils.GenerateSecureToken(32)
			if err != nil {
				log.Error("Failed to generate session key", zap.Error(err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			session.Set(sessionKeySessionKey, key)
			if err := session.Save(); err != nil {
				log.Error("Failed to save session", zap.Error(err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		c.Set(handlers.SessionKeyContextKey, key)
		c.Next()
	}
}
