// Command migrate bootstraps the storefront schema and seed data. It is
// idempotent and safe to run on every deploy.
package main

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"github.com/dukapoint/storefront/internal/config"
)

// The CHECK constraints are the last line of defense: even a caller that
// bypasses the guarded decrement cannot drive quantity negative.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id        BIGSERIAL PRIMARY KEY,
		name      TEXT NOT NULL,
		email     TEXT NOT NULL UNIQUE,
		password  TEXT NOT NULL,
		is_admin  BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL UNIQUE,
		contact_email  TEXT NOT NULL DEFAULT '',
		contact_phone  TEXT NOT NULL DEFAULT '',
		address        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL,
		supplier_id  BIGINT REFERENCES suppliers(id)
	)`,
	`CREATE TABLE IF NOT EXISTS category_images (
		id           BIGSERIAL PRIMARY KEY,
		category_id  BIGINT NOT NULL REFERENCES categories(id),
		image        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL,
		price        BIGINT NOT NULL CHECK (price >= 0),
		quantity     INTEGER NOT NULL CHECK (quantity >= 0),
		image        TEXT,
		category_id  BIGINT REFERENCES categories(id),
		supplier_id  BIGINT REFERENCES suppliers(id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id            UUID PRIMARY KEY,
		user_id       BIGINT REFERENCES users(id),
		total_amount  BIGINT NOT NULL CHECK (total_amount >= 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		id          BIGSERIAL PRIMARY KEY,
		order_id    UUID NOT NULL REFERENCES orders(id),
		product_id  BIGINT NOT NULL REFERENCES products(id),
		quantity    INTEGER NOT NULL CHECK (quantity > 0),
		unit_price  BIGINT NOT NULL CHECK (unit_price >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_lines_order_id ON order_lines (order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON products (category_id)`,
}

type seedSupplier struct {
	name, email, phone, address string
}

var seedSuppliers = []seedSupplier{
	{"ElectroTech Solutions", "contact@electrotech.com", "0726900272", "Marson, Nakuru City"},
	{"FashionTrendz", "support@fashiontrendz.com", "0794572255", "Moi Avenue, Fashion City"},
	{"StepIn Style", "info@stepinstyle.com", "0798627653", "Footwear Lane, Eldoret City"},
	{"AutoWorld", "sales@autoworld.com", "0727550071", "101 Motor Road, Mombasa City"},
	{"HomeHaven", "care@homehaven.com", "0725222792", "Comfort Street, Nairobi City"},
	{"AdventureGear", "contact@adventuregear.com", "+1234567895", "303 Outdoor Trail, Adventure City"},
}

func main() {
	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to apply schema statement: %v", err)
		}
	}
	log.Println("✅ Schema applied")

	for _, s := range seedSuppliers {
		_, err := db.Exec(`
			INSERT INTO suppliers (name, contact_email, contact_phone, address)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING
		`, s.name, s.email, s.phone, s.address)
		if err != nil {
			log.Fatalf("Failed to seed supplier %s: %v", s.name, err)
		}
	}
	log.Printf("✅ Seeded %d suppliers", len(seedSuppliers))
}
