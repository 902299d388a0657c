// Package web serves the server-rendered product dashboard.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"product-catalog/internal/products"
	"product-catalog/internal/products/form"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	indexTemplate = "index.html"
	formTemplate  = "form.html"
	errorTemplate = "error.html"
)

var statuses = []products.Status{products.StatusActive, products.StatusInactive}

// Templates parses the embedded dashboard pages.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"date": formatDate,
	}).ParseFS(templateFS, "templates/*.html"))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(products.DateLayout)
}

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

type filterQuery struct {
	Status    string
	StartDate string
	EndDate   string
}

type indexPage struct {
	Products []products.Product
	Query    filterQuery
	Statuses []products.Status
	Errors   map[string]string
}

type formPage struct {
	Heading  string
	Action   string
	Input    products.Input
	ImageURL string
	Statuses []products.Status
	Errors   map[string]string
}

func (h *Handler) Index(c *gin.Context) {
	page := indexPage{
		Query: filterQuery{
			Status:    c.Query("status"),
			StartDate: c.Query("startDate"),
			EndDate:   c.Query("endDate"),
		},
		Statuses: statuses,
	}

	filter, err := products.ParseFilter(page.Query.Status, page.Query.StartDate, page.Query.EndDate)
	if err != nil {
		var verr *products.ValidationError
		if !errors.As(err, &verr) {
			h.renderError(c, err)
			return
		}
		_ = c.Error(err)
		page.Errors = verr.Fields
		c.HTML(http.StatusBadRequest, indexTemplate, page)
		return
	}

	items, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, err)
		return
	}
	page.Products = items
	c.HTML(http.StatusOK, indexTemplate, page)
}

func (h *Handler) AddForm(c *gin.Context) {
	c.HTML(http.StatusOK, formTemplate, formPage{
		Heading:  "Add product",
		Action:   "/add",
		Input:    products.Input{Status: string(products.StatusActive)},
		Statuses: statuses,
		Errors:   map[string]string{},
	})
}

func (h *Handler) Add(c *gin.Context) {
	page := formPage{Heading: "Add product", Action: "/add", Statuses: statuses}

	in, img, err := form.Bind(c, h.maxImageBytes)
	if err == nil {
		_, err = h.service.CreateProduct(c.Request.Context(), in, img)
	}
	if err != nil {
		page.Input = in
		h.renderFormError(c, page, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) EditForm(c *gin.Context) {
	product, err := h.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, formTemplate, formPage{
		Heading: "Edit product",
		Action:  "/edit/" + product.ID,
		Input: products.Input{
			Title:       product.Title,
			Description: product.Description,
			Status:      string(product.Status),
			Date:        formatDate(product.Date),
		},
		ImageURL: product.ImageURL,
		Statuses: statuses,
		Errors:   map[string]string{},
	})
}

func (h *Handler) Edit(c *gin.Context) {
	id := c.Param("id")
	page := formPage{Heading: "Edit product", Action: "/edit/" + id, Statuses: statuses}

	in, img, err := form.Bind(c, h.maxImageBytes)
	if err == nil {
		_, err = h.service.UpdateProduct(c.Request.Context(), id, in, img)
	}
	if err != nil {
		page.Input = in
		if current, getErr := h.service.GetProduct(c.Request.Context(), id); getErr == nil {
			page.ImageURL = current.ImageURL
		}
		h.renderFormError(c, page, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) renderFormError(c *gin.Context, page formPage, err error) {
	var verr *products.ValidationError
	if !errors.As(err, &verr) {
		h.renderError(c, err)
		return
	}

	_ = c.Error(err)
	page.Errors = verr.Fields
	c.HTML(http.StatusUnprocessableEntity, formTemplate, page)
}

func (h *Handler) renderError(c *gin.Context, err error) {
	_ = c.Error(err)

	status, message := http.StatusInternalServerError, "Something went wrong, please try again."
	var serr *products.StorageError
	switch {
	case errors.Is(err, products.ErrNotFound):
		status, message = http.StatusNotFound, "Product not found."
	case errors.As(err, &serr):
		message = "The image could not be stored, please try again."
	}

	c.HTML(status, errorTemplate, gin.H{"Status": status, "Message": message})
}

// RegisterRoutes installs the dashboard templates and pages on router.
func RegisterRoutes(router *gin.Engine, handler *Handler) {
	router.SetHTMLTemplate(Templates())

	router.GET("/", handler.Index)
	router.GET("/add", handler.AddForm)
	router.POST("/add", handler.Add)
	router.GET("/edit/:id", handler.EditForm)
	router.POST("/edit/:id", handler.Edit)
	router.POST("/delete/:id", handler.Delete)
}
