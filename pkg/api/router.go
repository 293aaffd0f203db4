package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/deconz2z2m/pkg/api/handlers"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine *gin.Engine
	deps   handlers.Deps
}

// NewRouter creates a new API router
func NewRouter(deps handlers.Deps) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine, deps.Settings.AllowedOrigins())

	router := &Router{
		engine: engine,
		deps:   deps.WithDefaults(),
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.deps.Store)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		migrationsHandler := handlers.NewMigrationsHandler(r.deps)
		migrations := v1.Group("/migrations")
		{
			migrations.POST("", migrationsHandler.Create)
			migrations.POST("/preview", migrationsHandler.Preview)
		}

		gatewayHandler := handlers.NewGatewayHandler(r.deps)
		gateway := v1.Group("/gateway")
		{
			gateway.POST("/devices", gatewayHandler.Devices)
			gateway.POST("/pair", gatewayHandler.Pair)
		}
		v1.GET("/gateways", gatewayHandler.Gateways)

		serialHandler := handlers.NewSerialHandler(r.deps)
		v1.GET("/serial-ports", serialHandler.ListPorts)
	}
}

// Handler exposes the engine for http.Server and tests
func (r *Router) Handler() http.Handler {
	return r.engine
}
