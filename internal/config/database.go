// internal/config/database.go
package config

import (
	"fmt"
)

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the
// individual settings. Sessions run in UTC so date columns round-trip
// unchanged.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}
