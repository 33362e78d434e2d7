package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
)

// Controllers groups the handlers mounted by InitRouter.
type Controllers struct {
	Health   *controller.Controller
	Products *controller.ProductController
	Auth     *controller.AuthController
	// MaxUploadSize is the image ceiling enforced by the upload handler.
	MaxUploadSize int64
}

func InitRouter(conf *config.Config, server *gin.Engine, ctrs Controllers, httpMiddleware *middleware.Middleware) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery(), middleware.Logger(), middleware.CORS())

	server.GET("/ping", ctrs.Health.Ping)

	// Locally stored images are served by this process
	if conf.Storage.Backend == config.StorageBackendLocal && strings.HasPrefix(conf.Storage.LocalPublicBaseURL, "/") {
		server.Static(strings.TrimRight(conf.Storage.LocalPublicBaseURL, "/"), conf.Storage.LocalUploadDir)
	}

	// Public read path
	products := server.Group("/products")
	{
		products.GET("", ctrs.Products.ListProducts)
		products.GET("/:id", ctrs.Products.GetProduct)
	}

	admin := server.Group("/admin")
	admin.POST("/login", ctrs.Auth.Login)

	protected := admin.Group("", httpMiddleware.AdminAuth())
	{
		protected.POST("/products", ctrs.Products.CreateProduct)
		protected.PATCH("/products/:id", ctrs.Products.UpdateProduct)
		protected.DELETE("/products/:id", ctrs.Products.DeleteProduct)
		protected.POST("/images", ctrs.Products.UploadImage(ctrs.MaxUploadSize))
	}

	return server
}
