// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"fitts-go/internal/config"
	"fitts-go/internal/handlers"
	"fitts-go/internal/services"
	"fitts-go/internal/utils"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String()})
}

// SessionMaxAge is the lifetime of the session cookie. Experiment sessions
// idle for longer are unreachable and can be expired.
const SessionMaxAge = 24 * time.Hour

func Setup(log *zap.Logger, runner *services.Runner) (*gin.Engine, error) {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	server := config.Get().Server
	secret, err := utils.SessionSecret(server.SessionSecret)
	if err != nil {
		return nil, err
	}
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(SessionMaxAge / time.Second),
	})
	router.Use(sessions.Sessions("fittssession", store))

	// --- Now that sessions are initialized, other middleware can use them ---
	router.Use(SessionKeyMiddleware(log))
	router.Use(CSRFProtection())

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	experimentHandler := handlers.NewExperimentHandler(log, runner)

	limit := server.StartRateLimit
	if limit == 0 {
		limit = 10
	}
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/designs", experimentHandler.Designs)

	experimentRoutes := router.Group("/experiment")
	{
		experimentRoutes.POST("/start", limiter, experimentHandler.Start)
		experimentRoutes.GET("/state", experimentHandler.State)
		experimentRoutes.POST("/arm", experimentHandler.Arm)
		experimentRoutes.POST("/pointer", experimentHandler.Pointer)
		experimentRoutes.POST("/click", experimentHandler.Click)
		experimentRoutes.POST("/advance", experimentHandler.Advance)
		experimentRoutes.POST("/abort", experimentHandler.Abort)
		experimentRoutes.GET("/results", experimentHandler.Results)
		experimentRoutes.GET("/results.csv", experimentHandler.ResultsCSV)
	}

	return router, nil
}
