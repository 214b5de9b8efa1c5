package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evently/evently-backend/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{
		DBUser: "evently",
		DBPass: "s3cret",
		DBHost: "db.internal",
		DBPort: "3306",
		DBName: "evently",
	}
	assert.Equal(t,
		"evently:s3cret@tcp(db.internal:3306)/evently?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn(cfg))
}

func TestDSNWithoutPassword(t *testing.T) {
	cfg := config.Config{DBUser: "root", DBHost: "localhost", DBPort: "3306", DBName: "evently"}
	assert.Equal(t,
		"root@tcp(localhost:3306)/evently?charset=utf8mb4&parseTime=true&loc=UTC",
		dsn(cfg))
}

func TestDSNKeepsCredentialsVerbatim(t *testing.T) {
	cfg := config.Config{DBUser: "app", DBPass: "p@ss word", DBHost: "h", DBPort: "3306", DBName: "d"}
	assert.Contains(t, dsn(cfg), "app:p@ss word@tcp(h:3306)/d")
}
