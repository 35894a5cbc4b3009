// Package front wires the public storefront API surface: route registration
// and the JWT auth middleware for signed-in customers.
package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	"github.com/fovdark/fovdark/internal/config"
	handlers "github.com/fovdark/fovdark/internal/http/api/front/handlers"
	"github.com/fovdark/fovdark/internal/licenses"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/queue"
	"github.com/fovdark/fovdark/internal/ratelimit"
	"github.com/fovdark/fovdark/internal/security"
)

// Deps bundles the shared services the storefront surface depends on.
type Deps struct {
	DB       *gorm.DB           // Database handle.
	JWT      config.JWTConfig   // Token settings.
	Cache    cache.Cache        // Shared read-through cache, may be nil.
	Limiter  *ratelimit.Manager // Login and review rate limiter, may be nil.
	Events   *queue.Publisher   // Lifecycle event publisher, may be nil.
	Licenses *licenses.Engine   // License binding engine.
}

// RegisterFrontRoutes registers storefront routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	frontGroup := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Limiter)
	frontGroup.POST("/auth/signup", authHandler.Signup)
	frontGroup.POST("/auth/login", authHandler.Login)

	catalogHandler := handlers.NewCatalogHandler(deps.DB, deps.Cache)
	frontGroup.GET("/products", catalogHandler.List)
	frontGroup.GET("/products/:slug", catalogHandler.Get)
	frontGroup.GET("/products/:slug/reviews", catalogHandler.Reviews)
	frontGroup.GET("/categories", catalogHandler.Categories)

	siteHandler := handlers.NewSiteHandler(deps.DB, deps.Cache)
	frontGroup.GET("/site/theme", siteHandler.Theme)
	frontGroup.GET("/site/settings", siteHandler.Settings)
	frontGroup.GET("/site/languages", siteHandler.Languages)
	frontGroup.GET("/site/translate", siteHandler.Translate)

	authed := frontGroup.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))

	authed.GET("/auth/me", authHandler.Me)
	authed.PUT("/auth/profile", authHandler.UpdateProfile)
	authed.PUT("/auth/password", authHandler.ChangePassword)

	reviewHandler := handlers.NewReviewHandler(deps.DB, deps.Cache, deps.Limiter)
	authed.POST("/reviews", reviewHandler.Create)

	orderHandler := handlers.NewOrderHandler(deps.DB)
	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)

	licenseHandler := handlers.NewLicenseHandler(deps.DB, deps.Licenses, deps.Events)
	authed.GET("/licenses", licenseHandler.List)
	authed.POST("/licenses/:id/bind", licenseHandler.Bind)
}

// userAuthMiddleware validates customer JWTs and loads the account into the
// request context. Disabled accounts are rejected even with a valid token.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var account models.User
		if errFind := db.WithContext(c.Request.Context()).First(&account, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if !account.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set("authUserID", account.ID)
		c.Set("authUser", &account)
		c.Next()
	}
}
