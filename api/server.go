package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/access"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/analytics"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/auth"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/catalog"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/customers"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Services bundles everything the HTTP layer fronts.
type Services struct {
	Orders    *orders.Service
	Refunds   *orders.RefundProcessor
	Checkout  *payments.Service
	Customers *customers.Service
	Access    *access.Service
	Catalog   *catalog.Service
	Analytics *analytics.Service
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	http     *http.Server
	verifier *auth.Verifier
	svc      Services
}

func NewServer(cfg *config.Config, logger *zap.Logger, verifier *auth.Verifier, svc Services) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	return &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		verifier: verifier,
		svc:      svc,
	}
}

func (s *Server) SetupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.config.Media.UploadDir != "" {
		s.router.Static("/media", s.config.Media.UploadDir)
	}

	api := s.router.Group("/api")
	{
		api.GET("/auth/csrf", s.csrfToken)

		// Storefront order reads
		api.GET("/orders/last", s.lastOrder)
		api.GET("/orders/:id", s.getOrder)

		// Checkout flow
		checkout := api.Group("/checkout")
		{
			checkout.POST("/orders", s.checkoutCreateOrder)
			checkout.POST("/session", s.createSession)
			checkout.GET("/session/:id", s.getSession)
			checkout.POST("/session/:id/authorize", s.authorizeSession)
			checkout.POST("/session/:id/capture", s.captureSession)
			checkout.POST("/session/:id/cancel", s.cancelSession)
		}
	}

	admin := s.router.Group("/api/admin")
	admin.Use(s.authRequired())
	{
		ordersGroup := admin.Group("/orders")
		{
			ordersGroup.GET("", requirePermission("orders:read"), s.listOrders)
			ordersGroup.GET("/:id", requirePermission("orders:read"), s.getOrder)
			ordersGroup.PUT("/:id/status", requirePermission("orders:write"), s.updateOrderStatus)
			ordersGroup.POST("/:id/notes", requirePermission("orders:write"), s.addOrderNote)
			ordersGroup.POST("/:id/refund", requirePermission("orders:refund"), s.refundOrder)
			ordersGroup.GET("/:id/refunds", requirePermission("orders:read"), s.listRefunds)
			ordersGroup.DELETE("/:id", requirePermission("orders:delete"), s.deleteOrder)
		}

		customersGroup := admin.Group("/customers")
		{
			customersGroup.GET("", requirePermission("customers:read"), s.listCustomers)
			customersGroup.POST("", requirePermission("customers:write"), s.createCustomer)
			customersGroup.GET("/:id", requirePermission("customers:read"), s.getCustomer)
			customersGroup.PUT("/:id", requirePermission("customers:write"), s.updateCustomer)
			customersGroup.DELETE("/:id", requirePermission("customers:delete"), s.deleteCustomer)
			customersGroup.POST("/:id/segments/:segmentId", requirePermission("customers:write"), s.assignSegment)
			customersGroup.DELETE("/:id/segments/:segmentId", requirePermission("customers:write"), s.unassignSegment)
		}

		segmentsGroup := admin.Group("/segments")
		{
			segmentsGroup.GET("", requirePermission("customers:read"), s.listSegments)
			segmentsGroup.POST("", requirePermission("customers:write"), s.createSegment)
			segmentsGroup.PUT("/:id", requirePermission("customers:write"), s.updateSegment)
			segmentsGroup.DELETE("/:id", requirePermission("customers:write"), s.deleteSegment)
		}

		usersGroup := admin.Group("/users")
		{
			usersGroup.GET("", requirePermission("users:read"), s.listUsers)
			usersGroup.PUT("/:id/role", requirePermission("users:write"), s.setUserRole)
			usersGroup.PUT("/:id/status", requirePermission("users:write"), s.setUserStatus)
			usersGroup.DELETE("/:id", requirePermission("users:delete"), s.deleteUser)
		}

		rolesGroup := admin.Group("/roles")
		{
			rolesGroup.GET("", requirePermission("roles:read"), s.listRoles)
			rolesGroup.POST("", requirePermission("roles:write"), s.createRole)
			rolesGroup.GET("/:id", requirePermission("roles:read"), s.getRole)
			rolesGroup.PUT("/:id", requirePermission("roles:write"), s.updateRole)
			rolesGroup.DELETE("/:id", requirePermission("roles:delete"), s.deleteRole)
		}
		admin.GET("/permissions", requirePermission("roles:read"), s.permissionCatalog)

		productsGroup := admin.Group("/products")
		{
			productsGroup.GET("", requirePermission("products:read"), s.listProducts)
			productsGroup.POST("", requirePermission("products:write"), s.createProduct)
			productsGroup.GET("/:id", requirePermission("products:read"), s.getProduct)
			productsGroup.PUT("/:id", requirePermission("products:write"), s.updateProduct)
			productsGroup.DELETE("/:id", requirePermission("products:delete"), s.deleteProduct)
			productsGroup.POST("/:id/images", requirePermission("products:write"), s.uploadProductImage)
			productsGroup.DELETE("/:id/images/:imageId", requirePermission("products:write"), s.deleteProductImage)
		}

		sectionsGroup := admin.Group("/sections")
		{
			sectionsGroup.GET("", requirePermission("settings:read"), s.listSections)
			sectionsGroup.POST("", requirePermission("settings:write"), s.createSection)
			sectionsGroup.PUT("/reorder", requirePermission("settings:write"), s.reorderSections)
			sectionsGroup.PUT("/:id", requirePermission("settings:write"), s.updateSection)
			sectionsGroup.DELETE("/:id", requirePermission("settings:write"), s.deleteSection)
		}

		analyticsGroup := admin.Group("/analytics")
		{
			analyticsGroup.GET("/summary", requirePermission("analytics:read"), s.analyticsSummary)
			analyticsGroup.GET("/revenue/daily", requirePermission("analytics:read"), s.dailyRevenue)
			analyticsGroup.GET("/products/top", requirePermission("analytics:read"), s.topProducts)
		}
	}

	// Swagger
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler wraps the router in CSRF protection; only admin mutations are
// actually checked.
func (s *Server) Handler() http.Handler {
	protect := csrf.Protect(
		[]byte(s.config.Auth.CSRFKey),
		csrf.Secure(s.config.Auth.CSRFSecure),
		csrf.TrustedOrigins(s.config.Auth.TrustedOrigins),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
	return skipCSRFOutsideAdmin(protect(s.router))
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("API server starting", zap.String("address", addr))
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// skipCSRFOutsideAdmin marks storefront and read-only requests as exempt.
// The token endpoint still runs inside the protection so it can mint tokens.
func skipCSRFOutsideAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/admin/") {
			r = csrf.UnsafeSkipCheck(r)
		}
		next.ServeHTTP(w, r)
	})
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, `{"error":%q,"kind":"permission_denied","retryable":false}`, csrf.FailureReason(r).Error())
}

// csrfToken hands the storefront and console a token to echo back on admin
// mutations.
func (s *Server) csrfToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrfToken": csrf.Token(c.Request)})
}
