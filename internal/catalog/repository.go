package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapoint/storefront/internal/fault"
)

// Repository is the persistent store behind the catalog.
type Repository interface {
	ListProducts(ctx context.Context) ([]ProductListing, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string, supplierID int64, imageRefs []string) (*Category, error)
	UpdateCategory(ctx context.Context, id int64, name string, supplierID int64) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	AddCategoryImages(ctx context.Context, categoryID int64, refs []string) ([]CategoryImage, error)
	ReplaceCategoryImage(ctx context.Context, imageID int64, ref string) error
	DeleteCategoryImage(ctx context.Context, imageID int64) error

	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, input SupplierInput) (*Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (*Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
	ListSuppliersWithProducts(ctx context.Context) ([]SupplierWithProducts, error)
}

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository creates a PostgresRepository.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListProducts(ctx context.Context) ([]ProductListing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.price, p.quantity, p.image, p.category_id, p.supplier_id,
		       COALESCE(c.name, 'Unknown') AS category,
		       COALESCE(s.name, 'None') AS supplier
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		LEFT JOIN suppliers s ON p.supplier_id = s.id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	listings := make([]ProductListing, 0)
	for rows.Next() {
		var l ProductListing
		if err := rows.Scan(&l.ID, &l.Name, &l.Price, &l.Quantity, &l.ImageRef,
			&l.CategoryID, &l.SupplierID, &l.Category, &l.Supplier); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, name, price, quantity, category_id, supplier_id, image
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CategoryID, &p.SupplierID, &p.ImageRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &fault.NotFoundError{Entity: "product", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &p, nil
}

// supplierForCategory resolves the supplier a product inherits from its category.
func (r *PostgresRepository) supplierForCategory(ctx context.Context, categoryID int64) (*int64, error) {
	var supplierID *int64
	err := r.db.QueryRow(ctx, `
		SELECT supplier_id FROM categories WHERE id = $1
	`, categoryID).Scan(&supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &fault.ValidationError{Reason: "Invalid price, quantity, or category_id"}
		}
		return nil, fmt.Errorf("failed to resolve category supplier: %w", err)
	}
	return supplierID, nil
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	supplierID, err := r.supplierForCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	p := Product{
		Name:       input.Name,
		Price:      input.Price,
		Quantity:   input.Quantity,
		CategoryID: &input.CategoryID,
		SupplierID: supplierID,
		ImageRef:   input.ImageRef,
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO products (name, price, quantity, image, category_id, supplier_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, input.Name, input.Price, input.Quantity, input.ImageRef, input.CategoryID, supplierID).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*Product, error) {
	supplierID, err := r.supplierForCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $1, price = $2, quantity = $3, image = COALESCE($4, image),
		    category_id = $5, supplier_id = $6
		WHERE id = $7
	`, input.Name, input.Price, input.Quantity, input.ImageRef, input.CategoryID, supplierID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &fault.NotFoundError{Entity: "product", ID: fmt.Sprint(id)}
	}
	return r.GetProduct(ctx, id)
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "product", ID: fmt.Sprint(id)}
	}
	return nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.supplier_id, s.name, ci.id, ci.image
		FROM categories c
		LEFT JOIN category_images ci ON c.id = ci.category_id
		LEFT JOIN suppliers s ON c.supplier_id = s.id
		ORDER BY c.id, ci.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			c       Category
			imageID *int64
			ref     *string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.SupplierID, &c.SupplierName, &imageID, &ref); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}

		i, ok := index[c.ID]
		if !ok {
			c.Images = []CategoryImage{}
			index[c.ID] = len(categories)
			categories = append(categories, c)
			i = index[c.ID]
		}
		if imageID != nil && ref != nil {
			categories[i].Images = append(categories[i].Images, CategoryImage{ID: *imageID, Ref: *ref})
		}
	}
	return categories, rows.Err()
}

// supplierName fetches the supplier's name, failing validation on unknown ids.
func (r *PostgresRepository) supplierName(ctx context.Context, supplierID int64) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM suppliers WHERE id = $1`, supplierID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &fault.ValidationError{Reason: "Invalid supplier_id"}
		}
		return "", fmt.Errorf("failed to validate supplier: %w", err)
	}
	return name, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, name string, supplierID int64, imageRefs []string) (*Category, error) {
	supplierName, err := r.supplierName(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	category := Category{Name: name, SupplierID: &supplierID, SupplierName: &supplierName, Images: []CategoryImage{}}
	err = tx.QueryRow(ctx, `
		INSERT INTO categories (name, supplier_id) VALUES ($1, $2) RETURNING id
	`, name, supplierID).Scan(&category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	for _, ref := range imageRefs {
		var image CategoryImage
		image.Ref = ref
		err := tx.QueryRow(ctx, `
			INSERT INTO category_images (category_id, image) VALUES ($1, $2) RETURNING id
		`, category.ID, ref).Scan(&image.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to attach category image: %w", err)
		}
		category.Images = append(category.Images, image)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit category: %w", err)
	}
	return &category, nil
}

// UpdateCategory renames a category and reassigns its supplier, cascading
// the supplier onto the category's products in the same transaction.
func (r *PostgresRepository) UpdateCategory(ctx context.Context, id int64, name string, supplierID int64) (*Category, error) {
	supplierName, err := r.supplierName(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE categories SET name = $1, supplier_id = $2 WHERE id = $3
	`, name, supplierID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &fault.NotFoundError{Entity: "category", ID: fmt.Sprint(id)}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET supplier_id = $1 WHERE category_id = $2
	`, supplierID, id); err != nil {
		return nil, fmt.Errorf("failed to cascade supplier to products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit category update: %w", err)
	}
	return &Category{ID: id, Name: name, SupplierID: &supplierID, SupplierName: &supplierName}, nil
}

// DeleteCategory removes a category, its image refs, and detaches its
// products in one transaction.
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM category_images WHERE category_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category images: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE products SET category_id = NULL, supplier_id = NULL WHERE category_id = $1
	`, id); err != nil {
		return fmt.Errorf("failed to detach products: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "category", ID: fmt.Sprint(id)}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit category delete: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddCategoryImages(ctx context.Context, categoryID int64, refs []string) ([]CategoryImage, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)
	`, categoryID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to validate category: %w", err)
	}
	if !exists {
		return nil, &fault.NotFoundError{Entity: "category", ID: fmt.Sprint(categoryID)}
	}

	images := make([]CategoryImage, 0, len(refs))
	for _, ref := range refs {
		var image CategoryImage
		image.Ref = ref
		err := r.db.QueryRow(ctx, `
			INSERT INTO category_images (category_id, image) VALUES ($1, $2) RETURNING id
		`, categoryID, ref).Scan(&image.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to add category image: %w", err)
		}
		images = append(images, image)
	}
	return images, nil
}

func (r *PostgresRepository) ReplaceCategoryImage(ctx context.Context, imageID int64, ref string) error {
	tag, err := r.db.Exec(ctx, `UPDATE category_images SET image = $1 WHERE id = $2`, ref, imageID)
	if err != nil {
		return fmt.Errorf("failed to replace category image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "category image", ID: fmt.Sprint(imageID)}
	}
	return nil
}

func (r *PostgresRepository) DeleteCategoryImage(ctx context.Context, imageID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM category_images WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete category image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "category image", ID: fmt.Sprint(imageID)}
	}
	return nil
}

func (r *PostgresRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, contact_email, contact_phone, address
		FROM suppliers
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]Supplier, 0)
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactEmail, &s.ContactPhone, &s.Address); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// isUniqueViolation reports whether err is the Postgres unique_violation code.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) CreateSupplier(ctx context.Context, input SupplierInput) (*Supplier, error) {
	s := Supplier{
		Name:         input.Name,
		ContactEmail: input.ContactEmail,
		ContactPhone: input.ContactPhone,
		Address:      input.Address,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact_email, contact_phone, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, input.Name, input.ContactEmail, input.ContactPhone, input.Address).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &fault.ValidationError{Reason: "Supplier name already exists"}
		}
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (*Supplier, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE suppliers
		SET name = $1, contact_email = $2, contact_phone = $3, address = $4
		WHERE id = $5
	`, input.Name, input.ContactEmail, input.ContactPhone, input.Address, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &fault.ValidationError{Reason: "Supplier name already exists"}
		}
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &fault.NotFoundError{Entity: "supplier", ID: fmt.Sprint(id)}
	}
	return &Supplier{
		ID:           id,
		Name:         input.Name,
		ContactEmail: input.ContactEmail,
		ContactPhone: input.ContactPhone,
		Address:      input.Address,
	}, nil
}

// DeleteSupplier removes a supplier after detaching the categories and
// products that reference it, all in one transaction.
func (r *PostgresRepository) DeleteSupplier(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE categories SET supplier_id = NULL WHERE supplier_id = $1
	`, id); err != nil {
		return fmt.Errorf("failed to detach categories: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE products SET supplier_id = NULL WHERE supplier_id = $1
	`, id); err != nil {
		return fmt.Errorf("failed to detach products: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "supplier", ID: fmt.Sprint(id)}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit supplier delete: %w", err)
	}
	return nil
}

// ListSuppliersWithProducts returns every supplier, alphabetically, with the
// products it currently sources attached.
func (r *PostgresRepository) ListSuppliersWithProducts(ctx context.Context) ([]SupplierWithProducts, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, contact_email, contact_phone, address
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]SupplierWithProducts, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var s SupplierWithProducts
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactEmail, &s.ContactPhone, &s.Address); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		s.Products = []SupplierProduct{}
		index[s.ID] = len(suppliers)
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read suppliers: %w", err)
	}

	productRows, err := r.db.Query(ctx, `
		SELECT p.supplier_id, p.id, p.name, p.price, p.quantity, p.image,
		       COALESCE(c.name, 'Unknown') AS category
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.supplier_id IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list supplier products: %w", err)
	}
	defer productRows.Close()

	for productRows.Next() {
		var (
			supplierID int64
			p          SupplierProduct
		)
		if err := productRows.Scan(&supplierID, &p.ID, &p.Name, &p.Price, &p.Quantity, &p.ImageRef, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan supplier product: %w", err)
		}
		if i, ok := index[supplierID]; ok {
			suppliers[i].Products = append(suppliers[i].Products, p)
		}
	}
	if err := productRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read supplier products: %w", err)
	}

	return suppliers, nil
}
