package admin

import (
	"context"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/settings"
)

const settingEntity = "setting"

// ListSettings returns every stored setting of the current tenant.
func (s *Service) ListSettings(ctx context.Context) (map[string]any, error) {
	if err := s.engine.Enforce(ctx, actor(ctx), bastion.PermSettingsView); err != nil {
		return nil, err
	}
	return s.settings.All(ctx), nil
}

// UpdateSetting stores value under key and records the value before and
// after the write. It returns the value now in effect.
func (s *Service) UpdateSetting(ctx context.Context, key string, value any) (any, error) {
	if err := s.engine.Enforce(ctx, actor(ctx), bastion.PermSettingsManage); err != nil {
		return nil, err
	}
	if err := settings.ValidateKey(key); err != nil {
		return nil, err
	}

	before := s.settings.Get(ctx, key, nil)
	if err := s.settings.Set(ctx, key, value); err != nil {
		return nil, err
	}
	after := s.settings.Get(ctx, key, nil)

	if _, err := s.audit.Log(ctx, auditlog.ActionUpdate, settingEntity, key, map[string]any{
		"before": map[string]any{"key": key, "value": before},
		"after":  map[string]any{"key": key, "value": after},
	}); err != nil {
		return nil, err
	}
	return after, nil
}

// DeleteSetting removes key and records a snapshot of its last value.
func (s *Service) DeleteSetting(ctx context.Context, key string) error {
	if err := s.engine.Enforce(ctx, actor(ctx), bastion.PermSettingsManage); err != nil {
		return err
	}
	if err := settings.ValidateKey(key); err != nil {
		return err
	}

	snapshot := map[string]any{"key": key, "value": s.settings.Get(ctx, key, nil)}
	if err := s.settings.Delete(ctx, key); err != nil {
		return err
	}
	_, err := s.audit.Log(ctx, auditlog.ActionDelete, settingEntity, key, map[string]any{
		"snapshot": snapshot,
	})
	return err
}
