package routes

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/api/handlers"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
)

type ProductRoutes struct {
	handler   *handlers.ProductHandler
	jwtSecret string
}

func NewProductRoutes(handler *handlers.ProductHandler, jwtSecret string) *ProductRoutes {
	return &ProductRoutes{
		handler:   handler,
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes registers all product-related routes
func (p *ProductRoutes) RegisterRoutes(router *gin.Engine, cache *middleware.CacheMiddleware) {
	validation := middleware.NewValidationMiddleware()

	products := router.Group("/api/products")
	products.Use(middleware.NewAuthMiddleware(p.jwtSecret))

	products.GET("", cache.CacheResponse(), gzip.Gzip(gzip.DefaultCompression), p.handler.ListProducts)

	// Mutations feed real-time pattern recomputation, so cached analytics
	// responses go stale along with the product lists
	products.POST("", validation.ValidateRequest(&dto.CreateProductRequest{}), cache.CacheInvalidate("products:*", "analytics:*"), p.handler.CreateProduct)

	products.GET("/:id", cache.CacheResponse(), p.handler.GetProduct)
	products.PUT("/:id", validation.ValidateRequest(&dto.UpdateProductRequest{}), cache.CacheInvalidate("products:*", "analytics:*"), p.handler.UpdateProduct)
	products.DELETE("/:id", cache.CacheInvalidate("products:*", "analytics:*"), p.handler.DeleteProduct)

	products.POST("/:id/consume", cache.CacheInvalidate("products:*", "analytics:*"), p.handler.ConsumeProduct)
}
