// Package router assembles the gin engine: middleware chain, public
// endpoints and the authenticated /api/v1 groups.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/infrastructure/logger"
	"github.com/retailcore/backoffice/internal/interfaces/http/dto"
	"github.com/retailcore/backoffice/internal/interfaces/http/handler"
	"github.com/retailcore/backoffice/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAPIMiddleware adds middleware to the versioned API group only
func WithAPIMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup collects the routes of one API area under a prefix
type DomainGroup struct {
	name   string
	prefix string
	routes []routeDefinition
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodGet, path: path, handlers: handlers})
	return dg
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: http.MethodPost, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Handlers are the endpoint handlers served by the engine
type Handlers struct {
	System    *handler.SystemHandler
	Sale      *handler.SaleHandler
	Quote     *handler.QuoteHandler
	Inventory *handler.InventoryHandler
	Fiscal    *handler.FiscalHandler
}

// Config holds everything the engine is built from. Zero values disable
// the optional pieces: no Meter means no HTTP metrics, no RateLimiter means
// no rate limit and an empty ServiceName means no tracing middleware.
type Config struct {
	ServiceName string
	Logger      *zap.Logger
	Meter       metric.Meter
	JWT         middleware.JWTMiddlewareConfig
	RateLimiter *middleware.RateLimiter
	CORS        middleware.CORSConfig
	MaxBodySize int64
	Swagger     middleware.SwaggerConfig

	// ProfileLabels tags CPU samples with the route when profiling runs
	ProfileLabels bool
}

// New builds the gin engine with every route of the API
func New(cfg Config, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.JWT.Logger == nil {
		cfg.JWT.Logger = log
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	if cfg.ServiceName != "" {
		engine.Use(middleware.Tracing(cfg.ServiceName), middleware.SpanEnricher())
	}
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	}
	if cfg.ProfileLabels {
		engine.Use(middleware.ProfileLabels())
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(shared.CodeNotFound, "Route not found", c.GetString("request_id")))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponse(dto.ErrCodeBadRequest, "Method not allowed", c.GetString("request_id")))
	})

	jwt := middleware.JWTAuthMiddlewareWithConfig(cfg.JWT)

	engine.GET("/health", h.System.Health)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, jwt),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	apiMiddleware := []gin.HandlerFunc{jwt}
	if cfg.RateLimiter != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(cfg.RateLimiter))
	}

	r := NewRouter(engine, WithAPIMiddleware(apiMiddleware...))
	r.Register(NewDomainGroup("sales", "/sales").
		POST("", h.Sale.Create).
		GET("", h.Sale.List).
		GET("/:id", h.Sale.Get).
		POST("/:id/invoice", h.Sale.IssueInvoice).
		GET("/:id/voucher", h.Sale.VoucherLink))
	r.Register(NewDomainGroup("quotes", "/quotes").
		POST("", h.Quote.Create).
		GET("", h.Quote.List).
		POST("/expire", h.Quote.Expire).
		GET("/:id", h.Quote.Get).
		POST("/:id/convert", h.Quote.Convert))
	r.Register(NewDomainGroup("inventory", "/inventory").
		GET("/products/:id/availability", h.Inventory.Availability).
		GET("/low-stock", h.Inventory.LowStock))
	r.Register(NewDomainGroup("fiscal", "/fiscal").
		GET("/health", h.Fiscal.Health))
	r.Setup()

	return engine
}
