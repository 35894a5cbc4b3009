// Package admin wires the back-office API surface: route registration and
// the JWT auth middleware gating it.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	"github.com/fovdark/fovdark/internal/config"
	handlers "github.com/fovdark/fovdark/internal/http/api/admin/handlers"
	"github.com/fovdark/fovdark/internal/licenses"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/queue"
	"github.com/fovdark/fovdark/internal/security"
	"github.com/fovdark/fovdark/internal/storage"
)

// Deps bundles the shared services the admin surface depends on.
type Deps struct {
	DB       *gorm.DB         // Database handle.
	JWT      config.JWTConfig // Token settings.
	Cache    cache.Cache      // Shared read-through cache, may be nil.
	Store    storage.Store    // Object store for assets.
	Events   *queue.Publisher // Lifecycle event publisher, may be nil.
	Licenses *licenses.Engine // License binding engine.
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(deps.DB, deps.JWT))

	authed.GET("/mfa/status", authHandler.MFAStatus)
	authed.POST("/mfa/totp/prepare", authHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", authHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", authHandler.DisableTOTP)

	userHandler := handlers.NewUserHandler(deps.DB)
	authed.POST("/users", userHandler.Create)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id", userHandler.Update)
	authed.DELETE("/users/:id", userHandler.Delete)
	authed.POST("/users/:id/enable", userHandler.Enable)
	authed.POST("/users/:id/disable", userHandler.Disable)
	authed.PUT("/users/:id/password", userHandler.ChangePassword)

	categoryHandler := handlers.NewCategoryHandler(deps.DB, deps.Cache)
	authed.POST("/categories", categoryHandler.Create)
	authed.GET("/categories", categoryHandler.List)
	authed.GET("/categories/:id", categoryHandler.Get)
	authed.PUT("/categories/:id", categoryHandler.Update)
	authed.DELETE("/categories/:id", categoryHandler.Delete)

	productHandler := handlers.NewProductHandler(deps.DB, deps.Cache)
	authed.POST("/products", productHandler.Create)
	authed.GET("/products", productHandler.List)
	authed.GET("/products/:id", productHandler.Get)
	authed.PUT("/products/:id", productHandler.Update)
	authed.DELETE("/products/:id", productHandler.Delete)
	authed.POST("/products/:id/enable", productHandler.Enable)
	authed.POST("/products/:id/disable", productHandler.Disable)
	authed.POST("/products/:id/bestseller", productHandler.SetBestseller)

	orderHandler := handlers.NewOrderHandler(deps.DB, deps.Events)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.PUT("/orders/:id/status", orderHandler.UpdateStatus)
	authed.DELETE("/orders/:id", orderHandler.Delete)

	licenseHandler := handlers.NewLicenseHandler(deps.DB, deps.Licenses)
	authed.POST("/licenses", licenseHandler.Create)
	authed.GET("/licenses", licenseHandler.List)
	authed.GET("/licenses/:id", licenseHandler.Get)
	authed.PUT("/licenses/:id/status", licenseHandler.SetStatus)
	authed.POST("/licenses/:id/unbind", licenseHandler.Unbind)
	authed.DELETE("/licenses/:id", licenseHandler.Delete)

	reviewHandler := handlers.NewReviewHandler(deps.DB, deps.Cache)
	authed.GET("/reviews", reviewHandler.List)
	authed.DELETE("/reviews/:id", reviewHandler.Delete)

	assetHandler := handlers.NewAssetHandler(deps.DB, deps.Store)
	authed.POST("/assets", assetHandler.Upload)
	authed.GET("/assets", assetHandler.List)
	authed.DELETE("/assets/:id", assetHandler.Delete)

	themeHandler := handlers.NewThemeHandler(deps.DB, deps.Cache)
	authed.POST("/themes", themeHandler.Create)
	authed.GET("/themes", themeHandler.List)
	authed.GET("/themes/:id", themeHandler.Get)
	authed.PUT("/themes/:id", themeHandler.Update)
	authed.DELETE("/themes/:id", themeHandler.Delete)
	authed.POST("/themes/:id/activate", themeHandler.Activate)

	settingHandler := handlers.NewSettingHandler(deps.DB, deps.Cache)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Upsert)
	authed.DELETE("/settings/:key", settingHandler.Delete)

	dashboardHandler := handlers.NewDashboardHandler(deps.DB)
	authed.GET("/dashboard/kpi", dashboardHandler.KPI)
	authed.GET("/dashboard/orders", dashboardHandler.RecentOrders)
}

// adminAuthMiddleware validates admin JWTs and loads the admin account into
// the request context. Disabled accounts and non-admin roles are rejected
// even when the token is valid.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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
		if !account.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		if !account.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set("adminID", account.ID)
		c.Set("adminUser", &account)
		c.Next()
	}
}
