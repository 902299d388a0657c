package http

import (
	"context"
	"errors"
	"net/http"

	"product-catalog/internal/products"
	"product-catalog/internal/products/form"

	"github.com/gin-gonic/gin"
)

type ProductService interface {
	CreateProduct(ctx context.Context, in products.Input, img *products.Image) (products.Product, error)
	GetProduct(ctx context.Context, id string) (products.Product, error)
	UpdateProduct(ctx context.Context, id string, in products.Input, img *products.Image) (products.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, filter products.Filter) ([]products.Product, error)
}

type Handler struct {
	service       ProductService
	maxImageBytes int64
}

func NewHandler(svc ProductService, maxImageBytes int64) *Handler {
	return &Handler{service: svc, maxImageBytes: maxImageBytes}
}

type errorResponse struct {
	Error  string            `json:"error" example:"product not found"`
	Fields map[string]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message" example:"product deleted"`
}

// writeError maps service errors onto status codes. Unexpected errors get a
// generic message; the cause is attached to the gin context for the access log.
func writeError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var verr *products.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}
	if errors.Is(err, products.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: products.ErrNotFound.Error()})
		return
	}
	var serr *products.StorageError
	if errors.As(err, &serr) {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: serr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
}

// CreateProduct godoc
// @Summary      Create a new product
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        title        formData  string  true   "Product title"
// @Param        description  formData  string  false  "Product description"
// @Param        status       formData  string  true   "Product status"  Enums(active, inactive)
// @Param        date         formData  string  true   "Product date (YYYY-MM-DD)"
// @Param        image        formData  file    false  "Product image"
// @Success      201  {object}  products.Product
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	in, img, err := form.Bind(c, h.maxImageBytes)
	if err != nil {
		writeError(c, err, "failed to read request")
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), in, img)
	if err != nil {
		writeError(c, err, "failed to create product")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProduct godoc
// @Summary      Get a product by ID
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  products.Product
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to get product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct godoc
// @Summary      Replace a product's fields
// @Description  Title, description, status and date are always replaced. The image URL changes only when a new image is sent.
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        id           path      string  true   "Product ID"
// @Param        title        formData  string  true   "Product title"
// @Param        description  formData  string  false  "Product description"
// @Param        status       formData  string  true   "Product status"  Enums(active, inactive)
// @Param        date         formData  string  true   "Product date (YYYY-MM-DD)"
// @Param        image        formData  file    false  "New product image"
// @Success      200  {object}  products.Product
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products/{id} [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	in, img, err := form.Bind(c, h.maxImageBytes)
	if err != nil {
		writeError(c, err, "failed to read request")
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), c.Param("id"), in, img)
	if err != nil {
		writeError(c, err, "failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary      Delete a product by ID
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.service.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete product")
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "product deleted"})
}

// ListProducts godoc
// @Summary      List products, newest date first
// @Tags         products
// @Produce      json
// @Param        status     query     string  false  "Filter by status"  Enums(active, inactive)
// @Param        startDate  query     string  false  "Earliest date, inclusive (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Latest date, inclusive (YYYY-MM-DD)"
// @Success      200  {array}   products.Product
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	filter, err := products.ParseFilter(c.Query("status"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		writeError(c, err, "invalid filter")
		return
	}

	items, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "failed to get products")
		return
	}

	c.JSON(http.StatusOK, items)
}
