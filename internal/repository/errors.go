// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors themselves.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist. Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user with the same email is already
// registered. Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a uniquely named record already exists.
var ErrConflict = errors.New("conflict")

// ErrReferenceNotFound is returned when an insert points at a user,
// committee or account that does not exist.
var ErrReferenceNotFound = errors.New("referenced record not found")

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

// classify maps driver errors onto the sentinels above. Unknown errors are
// returned untouched.
func classify(err error, duplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			if duplicate != nil {
				return duplicate
			}
		case mysqlNoReferencedRow:
			return ErrReferenceNotFound
		}
	}
	return err
}
