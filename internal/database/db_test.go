package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	dsn := Options{User: "fest", Pass: "s3cret", Host: "db", Port: "3306", Name: "festival"}.DSN()
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if cfg.User != "fest" || cfg.Passwd != "s3cret" || cfg.Addr != "db:3306" || cfg.DBName != "festival" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.ParseTime {
		t.Fatal("parseTime not enabled")
	}
	if cfg.Loc.String() != "UTC" {
		t.Fatalf("loc = %v, want UTC", cfg.Loc)
	}
}
