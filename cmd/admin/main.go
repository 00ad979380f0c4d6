// Command admin manages profile roles from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/bootstrap"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/config"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(connectProfiles).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// profileSource opens the profile repository; replaced in tests.
type profileSource func(ctx context.Context) (repository.ProfileRepository, func(), error)

func connectProfiles(ctx context.Context) (repository.ProfileRepository, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	// Redis is passed through so role changes drop the cached profile the
	// running server would otherwise keep using.
	return repository.NewProfileRepository(db, cache.NewStore(rdb)), closeFn, nil
}

func newRootCmd(open profileSource) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manage administrator roles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	withRepo := func(run func(ctx context.Context, out io.Writer, repo repository.ProfileRepository, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			repo, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return run(ctx, cmd.OutOrStdout(), repo, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "promote <id|email>",
			Short: "Grant the core_admin role",
			Args:  cobra.ExactArgs(1),
			RunE: withRepo(func(ctx context.Context, out io.Writer, repo repository.ProfileRepository, args []string) error {
				return setRole(ctx, out, repo, args[0], models.RoleCoreAdmin)
			}),
		},
		&cobra.Command{
			Use:   "demote <id|email>",
			Short: "Return a profile to the user role",
			Args:  cobra.ExactArgs(1),
			RunE: withRepo(func(ctx context.Context, out io.Writer, repo repository.ProfileRepository, args []string) error {
				return setRole(ctx, out, repo, args[0], models.RoleUser)
			}),
		},
		&cobra.Command{
			Use:       "set-role <id|email> <role>",
			Short:     "Assign any role (user, core_admin, superadmin)",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{string(models.RoleUser), string(models.RoleCoreAdmin), string(models.RoleSuperAdmin)},
			RunE: withRepo(func(ctx context.Context, out io.Writer, repo repository.ProfileRepository, args []string) error {
				role := models.Role(strings.ToLower(strings.TrimSpace(args[1])))
				if !role.Valid() {
					return fmt.Errorf("unknown role %q", args[1])
				}
				return setRole(ctx, out, repo, args[0], role)
			}),
		},
		&cobra.Command{
			Use:   "list-admins",
			Short: "List core admins and superadmins",
			Args:  cobra.NoArgs,
			RunE: withRepo(func(ctx context.Context, out io.Writer, repo repository.ProfileRepository, _ []string) error {
				return listAdmins(ctx, out, repo)
			}),
		},
	)
	return root
}

// resolveProfile accepts a numeric ID or an email address.
func resolveProfile(ctx context.Context, repo repository.ProfileRepository, ref string) (*models.Profile, error) {
	ref = strings.TrimSpace(ref)
	var (
		p   *models.Profile
		err error
	)
	if id, perr := strconv.ParseUint(ref, 10, 32); perr == nil {
		p, err = repo.GetByID(ctx, uint(id))
	} else {
		p, err = repo.GetByEmail(ctx, strings.ToLower(ref))
	}
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, fmt.Errorf("no profile matches %q", ref)
		}
		return nil, err
	}
	return p, nil
}

func setRole(ctx context.Context, out io.Writer, repo repository.ProfileRepository, ref string, role models.Role) error {
	p, err := resolveProfile(ctx, repo, ref)
	if err != nil {
		return err
	}
	if p.Role == role {
		warning(out, "%s already has role %s", p.Email, role)
		return nil
	}
	if p.Role == models.RoleSuperAdmin && role != models.RoleSuperAdmin {
		admins, err := repo.ListAdmins(ctx)
		if err != nil {
			return err
		}
		if countRole(admins, models.RoleSuperAdmin) <= 1 {
			return errors.New("refusing to demote the last superadmin")
		}
	}
	if err := repo.UpdateRole(ctx, p.ID, role); err != nil {
		return err
	}
	success(out, "%s (ID %d): %s -> %s", p.Email, p.ID, p.Role, role)
	return nil
}

func countRole(profiles []*models.Profile, role models.Role) int {
	n := 0
	for _, p := range profiles {
		if p.Role == role {
			n++
		}
	}
	return n
}

func listAdmins(ctx context.Context, out io.Writer, repo repository.ProfileRepository) error {
	admins, err := repo.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		muted(out, "no administrators")
		return nil
	}
	_, _ = fmt.Fprintf(out, "%s\n", headerStyle.Render(fmt.Sprintf("%-6s %-36s %-24s %s", "ID", "EMAIL", "NAME", "ROLE")))
	for _, a := range admins {
		_, _ = fmt.Fprintf(out, "%-6d %-36s %-24s %s\n", a.ID, a.Email, a.FullName, roleBadge(string(a.Role)))
	}
	return nil
}
