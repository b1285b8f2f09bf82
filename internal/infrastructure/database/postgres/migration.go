// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/wholesale-backend/internal/domain/company"
	"github.com/your-org/wholesale-backend/internal/domain/order"
	"github.com/your-org/wholesale-backend/internal/domain/product"
	"github.com/your-org/wholesale-backend/internal/domain/stock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Company accounts - Base tables
		&company.Company{},

		// Product catalog
		&product.Product{},
		&product.ProductOption{},

		// Orders
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Stock ledger
		&stock.VariantStock{},
		&stock.StockMovement{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Company indexes
		"CREATE INDEX IF NOT EXISTS idx_companies_email_active ON companies(email, is_active)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_code ON products(code)",
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Order indexes; created_at ascending is the allocation priority scan
		"CREATE INDEX IF NOT EXISTS idx_orders_company_status ON orders(company_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_orders_order_number ON orders(order_number)",

		// Order item indexes; the variant key drives every allocation pass
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_variant ON order_items(product_id, color, size)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_unmet ON order_items(product_id) WHERE quantity > shipped_quantity",

		// Order status history indexes
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		// Stock indexes
		"CREATE INDEX IF NOT EXISTS idx_variant_stocks_product ON variant_stocks(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_variant ON stock_movements(product_id, color, size, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference_type, reference_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedAdminAccount(); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	if err := m.seedTestCompany(); err != nil {
		return fmt.Errorf("failed to seed test company: %w", err)
	}

	if err := m.seedTestProducts(); err != nil {
		return fmt.Errorf("failed to seed test products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminAccount() error {
	log.Println("👤 Seeding admin account...")

	var existing company.Company
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		admin := company.Company{
			Code:         "CMP-ADMIN",
			Name:         "Warehouse Admin",
			Email:        "admin@example.com",
			PasswordHash: string(hashedPassword),
			Role:         company.RoleAdmin,
			IsActive:     true,
		}

		if err := m.db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}

		log.Println("✅ Created admin account: admin@example.com (password: admin123)")
	} else {
		log.Printf("⏭️ Admin account already exists with ID: %d", existing.ID)
	}

	return nil
}

func (m *Migration) seedTestCompany() error {
	log.Println("👤 Seeding test buyer company...")

	var existing company.Company
	result := m.db.Where("email = ?", "buyer@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("buyer123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		buyer := company.Company{
			Code:         "CMP-TEST",
			Name:         "Test Boutique",
			Email:        "buyer@example.com",
			PasswordHash: string(hashedPassword),
			Role:         company.RoleBuyer,
			ContactName:  "Test Buyer",
			IsActive:     true,
		}

		if err := m.db.Create(&buyer).Error; err != nil {
			return err
		}

		log.Println("✅ Created test company: buyer@example.com (password: buyer123)")
	} else {
		log.Println("⏭️ Test company already exists")
	}

	return nil
}

// seedTestProducts creates a few styles with variant options for development
func (m *Migration) seedTestProducts() error {
	log.Println("🛍️ Seeding test products...")

	var productCount int64
	m.db.Model(&product.Product{}).Count(&productCount)
	if productCount > 0 {
		log.Println("⏭️ Test products already exist")
		return nil
	}

	testProducts := []product.Product{
		{
			Code:             "STY-1001",
			Name:             "Relaxed Linen Shirt",
			Description:      "Relaxed fit linen shirt, garment washed",
			Price:            4500, // 45.00 wholesale
			MinOrderQuantity: 6,
			IsActive:         true,
			Options: []product.ProductOption{
				{Color: "White", Size: "S"},
				{Color: "White", Size: "M"},
				{Color: "White", Size: "L"},
				{Color: "Navy", Size: "S"},
				{Color: "Navy", Size: "M"},
				{Color: "Navy", Size: "L"},
			},
		},
		{
			Code:             "STY-1002",
			Name:             "Wide Leg Trouser",
			Description:      "High-waisted wide leg trouser in brushed twill",
			Price:            6200,
			MinOrderQuantity: 4,
			IsActive:         true,
			Options: []product.ProductOption{
				{Color: "Black", Size: "36"},
				{Color: "Black", Size: "38"},
				{Color: "Black", Size: "40"},
			},
		},
		{
			Code:             "STY-1003",
			Name:             "Canvas Tote",
			Description:      "Heavy canvas tote, one size",
			Price:            1800,
			MinOrderQuantity: 12,
			IsActive:         true,
		},
	}

	for _, prod := range testProducts {
		if err := m.db.Create(&prod).Error; err != nil {
			log.Printf("⚠️ Failed to create test product %s: %v", prod.Code, err)
			continue
		}
		log.Printf("✅ Created test product: %s", prod.Name)
	}

	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"stock_movements",
		"variant_stocks",
		"order_status_history",
		"order_items",
		"orders",
		"product_options",
		"products",
		"companies",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
