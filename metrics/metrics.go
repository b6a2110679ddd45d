// Package metrics exports Prometheus counters for authorization
// decisions, tenant resolution, settings cache efficiency, audit writes
// and role changes. It is a plugin: register it with the engine's plugin
// registry and expose the registerer through promhttp.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/setting"
	"github.com/xraph/bastion/tenant"
)

const namespace = "bastion"

// Compile-time hook checks.
var (
	_ plugin.Plugin              = (*Plugin)(nil)
	_ plugin.AfterAuthorize      = (*Plugin)(nil)
	_ plugin.TenantResolved      = (*Plugin)(nil)
	_ plugin.TenantUnresolved    = (*Plugin)(nil)
	_ plugin.SettingChanged      = (*Plugin)(nil)
	_ plugin.SettingsCacheAccess = (*Plugin)(nil)
	_ plugin.AuditRecorded       = (*Plugin)(nil)
	_ plugin.RoleCreated         = (*Plugin)(nil)
	_ plugin.RoleUpdated         = (*Plugin)(nil)
	_ plugin.RoleDeleted         = (*Plugin)(nil)
	_ plugin.RoleAssigned        = (*Plugin)(nil)
)

// Plugin collects the counters.
type Plugin struct {
	Decisions         *prometheus.CounterVec
	DecisionLatency   prometheus.Histogram
	TenantResolutions *prometheus.CounterVec
	SettingWrites     *prometheus.CounterVec
	SettingsCache     *prometheus.CounterVec
	AuditEntries      *prometheus.CounterVec
	RoleChanges       *prometheus.CounterVec
}

// New creates the counters and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Plugin, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Plugin{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_decisions_total",
			Help:      "Authorization decisions by outcome and decision code",
		}, []string{"allowed", "decision"}),
		DecisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "authorization_duration_seconds",
			Help:      "Time spent evaluating authorization decisions",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
		TenantResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_resolutions_total",
			Help:      "Tenant resolutions by source; unresolved requests use source \"none\"",
		}, []string{"source"}),
		SettingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setting_writes_total",
			Help:      "Settings writes by kind",
		}, []string{"kind"}),
		SettingsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_cache_requests_total",
			Help:      "Settings cache lookups by result",
		}, []string{"result"}),
		AuditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit entries recorded by action and entity type",
		}, []string{"action", "entity_type"}),
		RoleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_changes_total",
			Help:      "Role lifecycle events",
		}, []string{"event"}),
	}
	for _, c := range []prometheus.Collector{
		p.Decisions, p.DecisionLatency, p.TenantResolutions, p.SettingWrites,
		p.SettingsCache, p.AuditEntries, p.RoleChanges,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "metrics" }

func (p *Plugin) OnAfterAuthorize(_ context.Context, _, result any) error {
	r, ok := result.(*bastion.Result)
	if !ok || r == nil {
		return nil
	}
	allowed := "false"
	if r.Allowed {
		allowed = "true"
	}
	p.Decisions.WithLabelValues(allowed, string(r.Decision)).Inc()
	p.DecisionLatency.Observe(float64(r.EvalTimeNs) / 1e9)
	return nil
}

func (p *Plugin) OnTenantResolved(_ context.Context, _ *tenant.Tenant, source string) error {
	p.TenantResolutions.WithLabelValues(source).Inc()
	return nil
}

func (p *Plugin) OnTenantUnresolved(_ context.Context, _, _ string) error {
	p.TenantResolutions.WithLabelValues("none").Inc()
	return nil
}

func (p *Plugin) OnSettingChanged(_ context.Context, s *setting.Setting) error {
	kind := "set"
	if s.Value == nil {
		kind = "delete"
	}
	p.SettingWrites.WithLabelValues(kind).Inc()
	return nil
}

func (p *Plugin) OnSettingsCacheAccess(_ context.Context, _ string, hit bool) error {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.SettingsCache.WithLabelValues(result).Inc()
	return nil
}

func (p *Plugin) OnAuditRecorded(_ context.Context, e *auditlog.Entry) error {
	p.AuditEntries.WithLabelValues(e.Action, e.EntityType).Inc()
	return nil
}

func (p *Plugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	p.RoleChanges.WithLabelValues("created").Inc()
	return nil
}

func (p *Plugin) OnRoleUpdated(_ context.Context, _ *role.Role) error {
	p.RoleChanges.WithLabelValues("updated").Inc()
	return nil
}

func (p *Plugin) OnRoleDeleted(_ context.Context, _ id.RoleID) error {
	p.RoleChanges.WithLabelValues("deleted").Inc()
	return nil
}

func (p *Plugin) OnRoleAssigned(_ context.Context, _ *assignment.Assignment) error {
	p.RoleChanges.WithLabelValues("assigned").Inc()
	return nil
}
