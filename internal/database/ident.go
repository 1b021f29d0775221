package database

import (
	"fmt"
	"strings"
)

// Fixed character set and collation for databases created on demand
const (
	CreateCharset   = "utf8mb4"
	CreateCollation = "utf8mb4_unicode_ci"
)

// QuoteMySQLIdentifier safely quotes a MySQL/MariaDB identifier by wrapping
// in backticks and doubling any internal backticks.
//
//	QuoteMySQLIdentifier("my`db") → "`my``db`"
func QuoteMySQLIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// CreateDatabaseSQL returns the statement used to create a missing target database.
func CreateDatabaseSQL(name string) string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s CHARACTER SET %s COLLATE %s",
		QuoteMySQLIdentifier(name), CreateCharset, CreateCollation)
}
