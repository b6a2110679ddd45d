package id_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xraph/bastion/id"
)

func TestConstructorsAndParsers(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
		prefix  string
	}{
		{"TenantID", id.NewTenantID, id.ParseTenantID, "tnt_"},
		{"UserID", id.NewUserID, id.ParseUserID, "usr_"},
		{"RoleID", id.NewRoleID, id.ParseRoleID, "role_"},
		{"PermissionID", id.NewPermissionID, id.ParsePermissionID, "perm_"},
		{"AssignmentID", id.NewAssignmentID, id.ParseAssignmentID, "asgn_"},
		{"SettingID", id.NewSettingID, id.ParseSettingID, "set_"},
		{"AuditID", id.NewAuditID, id.ParseAuditID, "audit_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			if !strings.HasPrefix(original.String(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, original.String())
			}
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseTenantID(id.NewUserID().String()); err == nil {
		t.Fatal("expected tenant parser to reject a user id")
	}
	if _, err := id.ParseRoleID(id.NewPermissionID().String()); err == nil {
		t.Fatal("expected role parser to reject a permission id")
	}
}

func TestParseOptional(t *testing.T) {
	got, err := id.ParseOptional("", id.PrefixTenant)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsNil() {
		t.Fatal("expected Nil for empty input")
	}

	tid := id.NewTenantID()
	got, err = id.ParseOptional(tid.String(), id.PrefixTenant)
	if err != nil {
		t.Fatal(err)
	}
	if got != tid {
		t.Fatalf("expected %s, got %s", tid, got)
	}
}

func TestNilBehaviour(t *testing.T) {
	var n id.ID
	if !n.IsNil() || n.String() != "" || n.Prefix() != "" {
		t.Fatal("zero ID should be Nil with empty string and prefix")
	}
	v, err := n.Value()
	if err != nil || v != nil {
		t.Fatalf("expected NULL driver value, got %v (%v)", v, err)
	}
}

func TestLessIsCreationOrder(t *testing.T) {
	a := id.NewTenantID()
	time.Sleep(2 * time.Millisecond)
	b := id.NewTenantID()
	if !a.Less(b) {
		t.Fatalf("expected %s < %s", a, b)
	}
}

func TestJSONAndScan(t *testing.T) {
	type wrapper struct {
		Tenant id.ID `json:"tenant"`
	}
	orig := wrapper{Tenant: id.NewTenantID()}
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}
	var back wrapper
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Tenant != orig.Tenant {
		t.Fatalf("json mismatch: %s != %s", back.Tenant, orig.Tenant)
	}

	var scanned id.ID
	if err := scanned.Scan([]byte(orig.Tenant.String())); err != nil {
		t.Fatal(err)
	}
	if scanned != orig.Tenant {
		t.Fatal("scan mismatch")
	}
	if err := scanned.Scan(nil); err != nil || !scanned.IsNil() {
		t.Fatal("scan of nil should yield Nil")
	}
	if err := scanned.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}
