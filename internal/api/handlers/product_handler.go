package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoki33/ordo-backend/internal/api/dto"
	"github.com/tomoki33/ordo-backend/internal/api/middleware"
	"github.com/tomoki33/ordo-backend/internal/domain/product"
)

var log = logrus.New()

// ProductHandler handles HTTP requests for inventory products
type ProductHandler struct {
	service product.Service
}

// NewProductHandler creates a new ProductHandler instance
func NewProductHandler(service product.Service) *ProductHandler {
	return &ProductHandler{service: service}
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	validatedModel, exists := c.Get("validated_model")

	if exists {
		if validatedPtr, ok := validatedModel.(*dto.CreateProductRequest); ok {
			req = *validatedPtr
		} else {
			log.Errorf("Invalid model type: %T, expected *dto.CreateProductRequest", validatedModel)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model type from validation"})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	input := product.CreateProductInput{
		UserID:         userID,
		Name:           req.Name,
		Category:       product.Category(req.Category),
		Location:       product.Location(req.Location),
		Brand:          req.Brand,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		ExpirationDate: req.ExpirationDate,
		PurchaseDate:   req.PurchaseDate,
		Tags:           req.Tags,
		Notes:          req.Notes,
	}

	created, err := h.service.CreateProduct(c.Request.Context(), input)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == product.ErrInvalidInput {
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ProductToResponse(created)})
}

// GetProduct handles GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	p, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == product.ErrProductNotFound {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ProductToResponse(p)})
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page size"})
		return
	}

	filter := product.ProductFilter{
		UserID:   &userID,
		Page:     page,
		PageSize: pageSize,
	}
	if category := c.Query("category"); category != "" {
		cat := product.Category(category)
		filter.Category = &cat
	}
	if location := c.Query("location"); location != "" {
		loc := product.Location(location)
		filter.Location = &loc
	}
	if name := c.Query("name"); name != "" {
		filter.Name = &name
	}

	products, total, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]dto.ProductResponse, len(products))
	for i := range products {
		responses[i] = *ProductToResponse(&products[i])
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.ProductListResponse{
		Products:   responses,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}})
}

// UpdateProduct handles PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	var req dto.UpdateProductRequest
	if validatedModel, exists := c.Get("validated_model"); exists {
		if validatedPtr, ok := validatedModel.(*dto.UpdateProductRequest); ok {
			req = *validatedPtr
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model type from validation"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := product.UpdateProductInput{
		Name:           req.Name,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		Brand:          req.Brand,
		ExpirationDate: req.ExpirationDate,
		Notes:          req.Notes,
	}
	if req.Category != nil {
		cat := product.Category(*req.Category)
		input.Category = &cat
	}
	if req.Location != nil {
		loc := product.Location(*req.Location)
		input.Location = &loc
	}

	updated, err := h.service.UpdateProduct(c.Request.Context(), id, input)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == product.ErrProductNotFound {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ProductToResponse(updated)})
}

// DeleteProduct handles DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		statusCode := http.StatusInternalServerError
		if err == product.ErrProductNotFound {
			statusCode = http.StatusNotFound
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "product deleted successfully"})
}

// ConsumeProduct handles POST /api/products/:id/consume
func (h *ProductHandler) ConsumeProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req dto.ConsumeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.ConsumeProduct(c.Request.Context(), id, userID, req.Quantity)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch err {
		case product.ErrProductNotFound:
			statusCode = http.StatusNotFound
		case product.ErrInvalidInput:
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ProductToResponse(p)})
}
