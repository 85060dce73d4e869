package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"bakaaro-pos/internal/ai"
	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/config"
	"bakaaro-pos/internal/middleware"
	"bakaaro-pos/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps wires the router to the services it exposes.
type Deps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Resolver  *auth.Resolver
	Tokens    *auth.TokenService
	Auth      *services.AuthService
	Products  *services.ProductService
	Sales     *services.SaleService
	Staff     *services.StaffService
	Branches  *services.BranchService
	Reports   *services.ReportService
	Assistant *ai.Assistant
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(d.Logger))
	r.Use(middleware.AccessLog())

	r.Use(cors.New(corsConfig(d.Config.HTTP.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.GET("/api/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is working", "timestamp": time.Now().UTC()})
	})

	authH := NewAuthHandler(d.Auth)
	r.POST("/api/auth/login", authH.Login)

	// --- FEATURE FLAG: Registration ---
	if d.Config.Auth.AllowRegistration {
		r.POST("/api/auth/register", authH.Register)
		d.Logger.Warn("registration route is open; disable auth.allowRegistration in production")
	} else {
		d.Logger.Info("registration route is disabled")
	}

	products := NewProductHandler(d.Products)
	sales := NewSaleHandler(d.Sales)
	staff := NewStaffHandler(d.Staff)
	branches := NewBranchHandler(d.Branches)
	reports := NewReportHandler(d.Reports)
	assistant := NewAIHandler(d.Assistant)

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.Authenticate(d.Resolver, d.Tokens, d.Config.Auth.AllowUserIDHeader))
	{
		staffOrAdmin := api.Group("/")
		staffOrAdmin.Use(middleware.RequireStaffOrAdmin())
		{
			staffOrAdmin.GET("/products", products.List)
			staffOrAdmin.GET("/products/scan/:barcode", products.Scan)
			staffOrAdmin.GET("/sales", sales.List)
			staffOrAdmin.POST("/sales", sales.Create)
			staffOrAdmin.GET("/staff", staff.List)
			staffOrAdmin.GET("/branches", branches.List)
		}

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/products", products.Create)
			admin.PUT("/products/:id", products.Update)
			admin.DELETE("/products/:id", products.Delete)
			admin.DELETE("/sales/:id", sales.Delete)

			admin.POST("/staff", staff.Create)
			admin.PUT("/staff/:id", staff.Update)
			admin.DELETE("/staff/:id", staff.Delete)
			admin.PATCH("/staff/:id/toggle-status", staff.ToggleStatus)

			admin.POST("/branches", branches.Create)
			admin.PUT("/branches/:id", branches.Update)
			admin.DELETE("/branches/:id", branches.Delete)
			admin.PATCH("/branches/:id/toggle-status", branches.ToggleStatus)

			admin.GET("/reports/sales", reports.Sales)
			admin.GET("/reports/valuation", reports.Valuation)

			admin.POST("/ask", assistant.Ask)
		}
	}

	serveFrontend(r, d.Config.HTTP.WebDir)
	return r
}

// corsConfig allows the SPA origins. An empty list or "*" admits any origin
// without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderUserID, middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// serveFrontend mounts a built SPA. Unknown /api paths always get a JSON 404.
func serveFrontend(r *gin.Engine, webDir string) {
	if webDir != "" {
		r.Static("/assets", filepath.Join(webDir, "assets"))
		r.StaticFile("/vite.svg", filepath.Join(webDir, "vite.svg"))
	}

	r.NoRoute(func(c *gin.Context) {
		if webDir == "" || strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		// SPA catch-all: the frontend handles its own routing.
		c.File(filepath.Join(webDir, "index.html"))
	})
}
