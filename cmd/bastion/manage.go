package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/seed"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/user"
)

// withApp loads the application, runs fn and releases resources.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx, flags)
	if err != nil {
		return err
	}
	return errors.Join(fn(ctx, a), a.close(context.Background()))
}

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.ext.Engine().Store().Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newSeedCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed permissions, roles, the default tenant and default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.seed(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seeded")
				return nil
			})
		},
	}
}

func newSettingsCommand(flags *globalFlags) *cobra.Command {
	var tenantSlug string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write settings",
	}
	cmd.PersistentFlags().StringVar(&tenantSlug, "tenant", "", "tenant slug (default: global scope)")

	scoped := func(ctx context.Context, a *app) (context.Context, error) {
		if tenantSlug == "" {
			return ctx, nil
		}
		t, err := a.ext.Engine().Store().GetTenantBySlug(ctx, tenantSlug)
		if err != nil {
			return nil, fmt.Errorf("tenant %q: %w", tenantSlug, err)
		}
		return bastion.WithTenant(ctx, t), nil
	}

	var asJSON bool
	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any = args[1]
			if asJSON {
				if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
					return fmt.Errorf("value is not valid JSON: %w", err)
				}
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctx, err := scoped(ctx, a)
				if err != nil {
					return err
				}
				if err := a.ext.Settings().Set(ctx, args[0], value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
				return nil
			})
		},
	}
	set.Flags().BoolVar(&asJSON, "json", false, "parse VALUE as JSON")

	var (
		prefix string
		dry    bool
	)
	imp := &cobra.Command{
		Use:   "import PATH",
		Short: "Import settings from a JSON object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readSettingsFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctx, err := scoped(ctx, a)
				if err != nil {
					return err
				}
				written, err := a.ext.Settings().Import(ctx, values, prefix, dry)
				if err != nil {
					return err
				}
				verb := "imported"
				if dry {
					verb = "would import"
				}
				for _, key := range slices.Sorted(maps.Keys(written)) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, key)
				}
				return nil
			})
		},
	}
	imp.Flags().StringVar(&prefix, "prefix", "", "prefix prepended to every key")
	imp.Flags().BoolVar(&dry, "dry", false, "show what would be imported without writing")

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Evict cached settings of the scope so the next reads hit the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctx, err := scoped(ctx, a)
				if err != nil {
					return err
				}
				if err := a.ext.Settings().Flush(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "settings cache flushed")
				return nil
			})
		},
	}

	cmd.AddCommand(set, imp, flush)
	return cmd
}

func readSettingsFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON object: %w", path, err)
	}
	return values, nil
}

type provisionFlags struct {
	email    string
	name     string
	password string
	role     string
	tenant   string
}

func (f *provisionFlags) register(cmd *cobra.Command, prefix string) {
	cmd.Flags().StringVar(&f.email, prefix+"email", "", "user email")
	cmd.Flags().StringVar(&f.name, prefix+"name", "Administrator", "display name")
	cmd.Flags().StringVar(&f.password, prefix+"password", "", "password")
	cmd.Flags().StringVar(&f.role, prefix+"role", bastion.RoleAdmin, "admin or root")
	cmd.Flags().StringVar(&f.tenant, prefix+"tenant", "", "tenant slug (default: the default tenant)")
}

func (f *provisionFlags) provision(ctx context.Context, a *app) (*user.User, error) {
	st := a.ext.Engine().Store()
	in := seed.ProvisionInput{
		Email:    f.email,
		Name:     f.name,
		Password: f.password,
		Role:     f.role,
		Guard:    a.ext.Engine().Guard(),
	}
	if f.tenant != "" {
		t, err := st.GetTenantBySlug(ctx, f.tenant)
		if err != nil {
			return nil, fmt.Errorf("tenant %q: %w", f.tenant, err)
		}
		in.TenantID = t.ID
	} else if t, err := st.GetDefaultTenant(ctx); err == nil {
		in.TenantID = t.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	u, created, err := seed.ProvisionUser(ctx, st, in)
	if err != nil {
		return nil, err
	}
	a.logger.Info("provisioned user", slog.String("email", u.Email), slog.Bool("created", created))
	return u, nil
}

func newProvisionUserCommand(flags *globalFlags) *cobra.Command {
	var f provisionFlags
	cmd := &cobra.Command{
		Use:   "provision-user",
		Short: "Create or update an administrative user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				u, err := f.provision(ctx, a)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", u.ID, u.Email)
				return nil
			})
		},
	}
	f.register(cmd, "")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newTokenCommand(flags *globalFlags) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				u, err := a.ext.Engine().Store().GetUserByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("user %q: %w", email, err)
				}
				authn, err := a.authenticator()
				if err != nil {
					return err
				}
				token, err := authn.Issue(u.ID, u.TenantID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
