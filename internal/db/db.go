package db

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // SQLite driver for local runs and tests
)

// ShortLink is an anonymous link in the global namespace. Its code is generated.
type ShortLink struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	OriginalURL string    `gorm:"not null" json:"originalUrl"`
	ShortCode   string    `gorm:"unique_index;not null" json:"shortenedUrl"`
	Clicks      int64     `gorm:"not null;default:0" json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CustomLink is an account-owned link whose code was chosen by the owner.
type CustomLink struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	OriginalURL string    `gorm:"not null" json:"originalLink"`
	CustomCode  string    `gorm:"unique_index;not null" json:"customLink"`
	OwnerID     string    `gorm:"index;not null" json:"userId"`
	Clicks      int64     `gorm:"not null;default:0" json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Account is a registered user. Its ID is the owner id of CustomLinks.
type Account struct {
	ID           string    `gorm:"primary_key" json:"id"`
	FirstName    string    `gorm:"not null" json:"firstName"`
	LastName     string    `gorm:"not null" json:"lastName"`
	Email        string    `gorm:"unique_index;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Open connects to the database and migrates the schema.
// dialect is "postgres" or "sqlite3".
func Open(dialect, dataSourceName string) (*gorm.DB, error) {
	conn, err := gorm.Open(dialect, dataSourceName)
	if err != nil {
		return nil, err
	}
	conn.LogMode(false)

	if dialect == "sqlite3" {
		// A single connection keeps :memory: databases shared and serialises writers.
		conn.DB().SetMaxOpenConns(1)
	} else {
		conn.DB().SetMaxOpenConns(25)
		conn.DB().SetMaxIdleConns(10)
		conn.DB().SetConnMaxLifetime(5 * time.Minute)
	}

	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Migrate creates or updates the tables and their unique indexes.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(&ShortLink{}, &CustomLink{}, &Account{}).Error
}
