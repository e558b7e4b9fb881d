// Package repository implements the MySQL persistence layer.  The
// sentinel values below let higher layers distinguish failure modes
// without inspecting driver errors.  For example, ErrVenueInUse
// signals that a venue still has events pointing at it, while
// ErrAlreadyCheckedIn reports that the check-in unique key rejected a
// second scan.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a unique key that
	// has no more specific sentinel.
	ErrConflict = errors.New("conflict")

	ErrDuplicateEmail   = errors.New("email already exists")
	ErrDuplicatePhone   = errors.New("phone already exists")
	ErrDuplicateSlug    = errors.New("slug already exists")
	ErrDuplicateVenue   = errors.New("venue name already exists")
	ErrAlreadyCheckedIn = errors.New("reservation already checked in")

	// ErrVenueInUse is returned when deleting a venue that events still
	// reference.
	ErrVenueInUse = errors.New("venue is referenced by events")
)

const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// mysqlCode returns the server error number of err, or 0.
func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlCode(err) == errDupEntry }

// duplicateKey reports whether err is a duplicate-entry error on the
// named unique key.
func duplicateKey(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDupEntry {
		return false
	}
	return strings.Contains(me.Message, key)
}

// missingParent maps a foreign key violation on insert (the referenced
// user, event or reservation is gone) to ErrNotFound.
func missingParent(err error) error {
	if mysqlCode(err) == errNoReferencedRow {
		return ErrNotFound
	}
	return err
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// affected returns ErrNotFound when a write touched no rows.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
