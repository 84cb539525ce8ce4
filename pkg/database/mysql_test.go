package database

import (
	"strings"
	"testing"

	"github.com/Ammly/AdbSms/environments"
)

func TestDSN_ReportsFoundRows(t *testing.T) {
	dsn := DSN(environments.DatabaseConfig{
		Host:     "db",
		Port:     "3306",
		User:     "adbsms",
		Password: "secret",
		DBName:   "adbsms",
	})

	if !strings.HasPrefix(dsn, "adbsms:secret@tcp(db:3306)/adbsms?") {
		t.Errorf("unexpected dsn prefix %q", dsn)
	}
	if !strings.Contains(dsn, "clientFoundRows=true") {
		t.Errorf("expected clientFoundRows in %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime in %q", dsn)
	}
}
