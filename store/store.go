// Package store defines the aggregate persistence interface. Each entity
// package (tenant, user, role, permission, assignment, setting, auditlog)
// defines its own store interface and the composite Store composes them.
// Backends: Memory, Postgres, SQLite and MongoDB.
package store

import (
	"context"
	"errors"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/setting"
	"github.com/xraph/bastion/tenant"
	"github.com/xraph/bastion/user"
)

// Errors shared by every backend. Callers test with errors.Is.
var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("store: duplicate")

	// ErrUnavailable is returned when the backing table or collection has
	// not been provisioned yet.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the aggregate persistence interface.
// A single backend implements every entity store.
type Store interface {
	tenant.Store
	user.Store
	role.Store
	permission.Store
	assignment.Store
	setting.Store
	auditlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
