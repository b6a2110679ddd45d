package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/tenant"
)

// testPlugin implements Plugin + RoleCreated + AfterAuthorize + TenantResolved.
type testPlugin struct {
	roleCreatedCalled    bool
	afterAuthorizeCalled bool
	resolvedSource       string
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	t.roleCreatedCalled = true
	return nil
}

func (t *testPlugin) OnAfterAuthorize(_ context.Context, _, _ any) error {
	t.afterAuthorizeCalled = true
	return nil
}

func (t *testPlugin) OnTenantResolved(_ context.Context, _ *tenant.Tenant, source string) error {
	t.resolvedSource = source
	return nil
}

// failingPlugin returns an error from its hook; dispatch must carry on.
type failingPlugin struct{ calls int }

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnAuditRecorded(_ context.Context, _ *auditlog.Entry) error {
	f.calls++
	return errors.New("boom")
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	reg.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "admin"})
	if !tp.roleCreatedCalled {
		t.Fatal("OnRoleCreated was not called")
	}

	reg.EmitAfterAuthorize(ctx, nil, nil)
	if !tp.afterAuthorizeCalled {
		t.Fatal("OnAfterAuthorize was not called")
	}

	reg.EmitTenantResolved(ctx, &tenant.Tenant{ID: id.NewTenantID()}, "header")
	if tp.resolvedSource != "header" {
		t.Fatalf("expected source header, got %q", tp.resolvedSource)
	}

	// Should not panic on hooks with no listeners.
	reg.EmitTenantUnresolved(ctx, "unknown.example.com", "/")
	reg.EmitRoleDeleted(ctx, id.NewRoleID())
	reg.EmitShutdown(ctx)
}

func TestRegistryHookErrorsAreSwallowed(t *testing.T) {
	reg := NewRegistry(nil)
	fp := &failingPlugin{}
	reg.Register(fp)

	reg.EmitAuditRecorded(context.Background(), &auditlog.Entry{})
	reg.EmitAuditRecorded(context.Background(), &auditlog.Entry{})
	if fp.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fp.calls)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *Registry
	reg.EmitAfterAuthorize(context.Background(), nil, nil)
	reg.EmitSettingsCacheAccess(context.Background(), "k", true)
	if reg.Plugins() != nil {
		t.Fatal("expected no plugins")
	}
}
