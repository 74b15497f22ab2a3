package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dukapoint/storefront/internal/cache"
)

// Service fronts the repository with the read-through cache on the public
// listings and invalidates the affected keys on every mutation. Admin reads
// bypass the cache entirely.
type Service struct {
	repo  Repository
	cache cache.Cache
	ttl   time.Duration
	log   *zap.SugaredLogger
}

// NewService wires the catalog service.
func NewService(repo Repository, c cache.Cache, ttl time.Duration, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, log: log}
}

// PublicProducts returns the cached product listing, recomputing it from the
// store on miss or expiry.
func (s *Service) PublicProducts(ctx context.Context) ([]ProductListing, error) {
	var listings []ProductListing
	err := s.cache.Get(ctx, cache.KeyPublicProducts, &listings)
	if err == nil {
		return listings, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warnw("⚠️ Product cache read failed, falling through to store", "error", err)
	}

	listings, err = s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.KeyPublicProducts, listings, s.ttl); err != nil {
		s.log.Warnw("⚠️ Failed to cache product listing", "error", err)
	}
	return listings, nil
}

// PublicCategories returns the cached category listing, recomputing on miss.
func (s *Service) PublicCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := s.cache.Get(ctx, cache.KeyPublicCategories, &categories)
	if err == nil {
		return categories, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warnw("⚠️ Category cache read failed, falling through to store", "error", err)
	}

	categories, err = s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.KeyPublicCategories, categories, s.ttl); err != nil {
		s.log.Warnw("⚠️ Failed to cache category listing", "error", err)
	}
	return categories, nil
}

// Products is the uncached admin listing.
func (s *Service) Products(ctx context.Context) ([]ProductListing, error) {
	return s.repo.ListProducts(ctx)
}

// Categories is the uncached admin listing.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// Suppliers lists all suppliers.
func (s *Service) Suppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// SuppliersWithProducts is the grouped admin view of suppliers and the
// products they source.
func (s *Service) SuppliersWithProducts(ctx context.Context) ([]SupplierWithProducts, error) {
	return s.repo.ListSuppliersWithProducts(ctx)
}

// CreateSupplier adds a supplier. A new supplier is not yet referenced by
// any listing, so nothing is invalidated.
func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput) (*Supplier, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return s.repo.CreateSupplier(ctx, input)
}

// UpdateSupplier invalidates both public listings: the supplier's name is
// denormalized into product and category rows.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (*Supplier, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	supplier, err := s.repo.UpdateSupplier(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPublicProducts)
	s.invalidate(ctx, cache.KeyPublicCategories)
	return supplier, nil
}

// DeleteSupplier detaches referencing categories and products, so both
// listings are stale afterwards.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyPublicProducts)
	s.invalidate(ctx, cache.KeyPublicCategories)
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	product, err := s.repo.CreateProduct(ctx, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPublicProducts)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*Product, error) {
	product, err := s.repo.UpdateProduct(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPublicProducts)
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyPublicProducts)
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, name string, supplierID int64, imageRefs []string) (*Category, error) {
	category, err := s.repo.CreateCategory(ctx, name, supplierID, imageRefs)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPublicCategories)
	return category, nil
}

// UpdateCategory also invalidates the product listing: the cascade rewrites
// the supplier shown on product rows.
func (s *Service) UpdateCategory(ctx context.Context, id int64, name string, supplierID int64) (*Category, error) {
	category, err := s.repo.UpdateCategory(ctx, id, name, supplierID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPublicCategories)
	s.invalidate(ctx, cache.KeyPublicProducts)
	return category, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyPublicCategories)
	s.invalidate(ctx, cache.KeyPublicProducts)
	return nil
}

func (s *Service) AddCategoryImages(ctx context.Context, categoryID int64, refs []string) ([]CategoryImage, error) {
	images, err := s.repo.AddCategoryImages(ctx, categoryID, refs)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPublicCategories)
	return images, nil
}

func (s *Service) ReplaceCategoryImage(ctx context.Context, imageID int64, ref string) error {
	if err := s.repo.ReplaceCategoryImage(ctx, imageID, ref); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyPublicCategories)
	return nil
}

func (s *Service) DeleteCategoryImage(ctx context.Context, imageID int64) error {
	if err := s.repo.DeleteCategoryImage(ctx, imageID); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyPublicCategories)
	return nil
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warnw("⚠️ Cache invalidation failed", "key", key, "error", err)
	}
}
