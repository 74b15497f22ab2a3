package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dukapoint/storefront/internal/fault"
)

// Handler serves the public listings and the admin catalog CRUD.
type Handler struct {
	service *Service
	log     *zap.SugaredLogger
}

// NewHandler creates the catalog handler.
func NewHandler(service *Service, log *zap.SugaredLogger) *Handler {
	return &Handler{service: service, log: log}
}

type productRequest struct {
	Name       string  `json:"name" binding:"required"`
	Price      int64   `json:"price" binding:"required,gt=0"`
	Quantity   *int    `json:"quantity" binding:"required,gte=0"`
	CategoryID int64   `json:"category_id" binding:"required"`
	Image      *string `json:"image"`
}

type categoryRequest struct {
	Name       string   `json:"name" binding:"required"`
	SupplierID int64    `json:"supplier_id" binding:"required"`
	Images     []string `json:"images"`
}

type supplierRequest struct {
	Name         string `json:"name" binding:"required"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
}

func (r supplierRequest) input() SupplierInput {
	return SupplierInput{
		Name:         r.Name,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Address:      r.Address,
	}
}

type imagesRequest struct {
	Images []string `json:"images" binding:"required,min=1"`
}

type imageRequest struct {
	Image string `json:"image" binding:"required"`
}

// PublicProducts handles GET /api/public/products.
func (h *Handler) PublicProducts(c *gin.Context) {
	listings, err := h.service.PublicProducts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// PublicCategories handles GET /api/public/categories.
func (h *Handler) PublicCategories(c *gin.Context) {
	categories, err := h.service.PublicCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// ListProducts handles GET /api/products (admin).
func (h *Handler) ListProducts(c *gin.Context) {
	listings, err := h.service.Products(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// CreateProduct handles POST /api/products (admin).
func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, price, quantity, and category_id are required"})
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), ProductInput{
		Name:       req.Name,
		Price:      req.Price,
		Quantity:   *req.Quantity,
		CategoryID: req.CategoryID,
		ImageRef:   req.Image,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpdateProduct handles PUT /api/products/:id (admin).
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, price, quantity, and category_id are required"})
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), id, ProductInput{
		Name:       req.Name,
		Price:      req.Price,
		Quantity:   *req.Quantity,
		CategoryID: req.CategoryID,
		ImageRef:   req.Image,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/:id (admin).
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// ListCategories handles GET /api/categories (admin).
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories (admin).
func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name and supplier_id are required"})
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), req.Name, req.SupplierID, req.Images)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// UpdateCategory handles PUT /api/categories/:id (admin).
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name and supplier_id are required"})
		return
	}

	category, err := h.service.UpdateCategory(c.Request.Context(), id, req.Name, req.SupplierID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/:id (admin).
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
		return
	}

	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// AddCategoryImages handles POST /api/categories/:id/images (admin).
func (h *Handler) AddCategoryImages(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
		return
	}

	var req imagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one image is required"})
		return
	}

	images, err := h.service.AddCategoryImages(c.Request.Context(), id, req.Images)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category_id": id, "images": images})
}

// ReplaceCategoryImage handles PUT /api/category-images/:imageId (admin).
func (h *Handler) ReplaceCategoryImage(c *gin.Context) {
	imageID, err := pathID(c, "imageId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image id"})
		return
	}

	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
		return
	}

	if err := h.service.ReplaceCategoryImage(c.Request.Context(), imageID, req.Image); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_id": imageID, "image": req.Image})
}

// DeleteCategoryImage handles DELETE /api/category-images/:imageId (admin).
func (h *Handler) DeleteCategoryImage(c *gin.Context) {
	imageID, err := pathID(c, "imageId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image id"})
		return
	}

	if err := h.service.DeleteCategoryImage(c.Request.Context(), imageID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

// ListSuppliers handles GET /api/suppliers (admin).
func (h *Handler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.service.Suppliers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// SuppliersWithProducts handles GET /api/suppliers-with-products (admin).
func (h *Handler) SuppliersWithProducts(c *gin.Context) {
	suppliers, err := h.service.SuppliersWithProducts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// CreateSupplier handles POST /api/suppliers (admin).
func (h *Handler) CreateSupplier(c *gin.Context) {
	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Supplier name is required"})
		return
	}

	supplier, err := h.service.CreateSupplier(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier handles PUT /api/suppliers/:id (admin).
func (h *Handler) UpdateSupplier(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supplier id"})
		return
	}

	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Supplier name is required"})
		return
	}

	supplier, err := h.service.UpdateSupplier(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier handles DELETE /api/suppliers/:id (admin).
func (h *Handler) DeleteSupplier(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supplier id"})
		return
	}

	if err := h.service.DeleteSupplier(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supplier deleted successfully"})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := fault.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Errorw("❌ Catalog operation failed", "error", err)
		c.JSON(status, gin.H{"error": "Database error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}
