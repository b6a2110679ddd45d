// Package audit records who did what to which entity, tagged with the
// resolved tenant, in the append-only audit trail.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/plugin"
)

// Entity is implemented by models that can be logged directly.
type Entity interface {
	AuditType() string
	AuditID() string
}

// Logger appends audit entries. Call Log only after the mutation it
// describes has succeeded.
type Logger struct {
	store   auditlog.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	tenancy bool
	now     func() time.Time
}

// Option configures the Logger.
type Option func(*Logger)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(a *Logger) { a.logger = l } }

// WithPlugins sets the plugin registry notified of recorded entries.
func WithPlugins(r *plugin.Registry) Option { return func(a *Logger) { a.plugins = r } }

// WithTenancy toggles tagging entries with the resolved tenant.
// Defaults to enabled.
func WithTenancy(enabled bool) Option { return func(a *Logger) { a.tenancy = enabled } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(a *Logger) { a.now = now } }

// NewLogger creates an audit logger over st.
func NewLogger(st auditlog.Store, opts ...Option) *Logger {
	a := &Logger{
		store:   st,
		logger:  slog.Default(),
		tenancy: true,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Log records action on entity. Entity is either an Entity, whose type
// and ID are used (entityID is ignored), or a string naming the entity
// type. The changes payload is stored as given. Tenant, principal, IP and
// user agent are taken from ctx when present.
func (a *Logger) Log(ctx context.Context, action string, entity any, entityID string, changes map[string]any) (*auditlog.Entry, error) {
	if !auditlog.ValidAction(action) {
		return nil, fmt.Errorf("%w: unknown audit action %q", bastion.ErrValidation, action)
	}

	var entityType string
	switch e := entity.(type) {
	case Entity:
		entityType = e.AuditType()
		entityID = e.AuditID()
	case string:
		entityType = e
	default:
		return nil, fmt.Errorf("%w: cannot audit entity of type %T", bastion.ErrValidation, entity)
	}

	entry := &auditlog.Entry{
		ID:         id.NewAuditID(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		CreatedAt:  a.now(),
	}
	if len(changes) > 0 {
		entry.Changes = changes
	}
	if p, ok := bastion.PrincipalFromContext(ctx); ok {
		entry.UserID = p.ID
	}
	if a.tenancy {
		entry.TenantID = bastion.TenantIDFromContext(ctx)
	}
	info := bastion.RequestInfoFromContext(ctx)
	entry.IP = info.IP
	entry.UserAgent = info.UserAgent

	if err := a.store.CreateAuditEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("audit: record %s %s: %w", action, entityType, err)
	}

	a.logger.Debug("audit entry recorded",
		slog.String("action", action),
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID),
		slog.String("tenant", entry.TenantID.String()),
	)
	a.plugins.EmitAuditRecorded(ctx, entry)
	return entry, nil
}

// List returns entries matching filter, newest first, and the total count
// ignoring pagination.
func (a *Logger) List(ctx context.Context, filter *auditlog.ListFilter) ([]*auditlog.Entry, int64, error) {
	entries, err := a.store.ListAuditEntries(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: list: %w", err)
	}
	total, err := a.store.CountAuditEntries(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: count: %w", err)
	}
	return entries, total, nil
}

// Get returns a single entry.
func (a *Logger) Get(ctx context.Context, entryID id.AuditID) (*auditlog.Entry, error) {
	e, err := a.store.GetAuditEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("audit: get %s: %w", entryID, err)
	}
	return e, nil
}
