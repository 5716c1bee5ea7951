package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jrsteele09/go-bingo-admin/api"
	"github.com/spf13/cobra"
)

type appFunc func() *app

func newLoginCmd(a appFunc) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("BINGO_ADMIN_PASSWORD")
			}
			if err := a().auth.SignIn(cmd.Context(), a().store, email, password); err != nil {
				return err
			}
			claims := a().store.Claims()
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (tenant %s)\n", claims.Email, claims.Tenant)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $BINGO_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove it from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a().store.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Show the claims and permissions of the session",
		Annotations: requiresSession(),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims := a().store.Claims()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"subject":     claims.Subject,
				"email":       claims.Email,
				"name":        claims.Name,
				"tenant":      claims.Tenant,
				"roles":       claims.Roles,
				"permissions": a().store.Permissions(),
				"expires_at":  claims.ExpiresAt,
			})
		},
	}
}

func newCanCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "can <permission>",
		Short: "Report whether the session holds a permission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision := a().guard.Check(args[0])
			if decision.Allowed {
				fmt.Fprintln(cmd.OutOrStdout(), "yes")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "no (%s)\n", decision.Redirect)
			return nil
		},
	}
}

func newRefreshCmd(a appFunc) *cobra.Command {
	return &cobra.Command{
		Use:         "refresh",
		Short:       "Exchange the refresh token for a new pair",
		Annotations: requiresSession(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a().store.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session refreshed, expires %s\n", a().store.Claims().ExpiresAt.Format("15:04:05"))
			return nil
		},
	}
}

func newPasswordResetCmd(a appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password-reset",
		Short: "Request or confirm a password reset",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:  "request <email>",
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a().auth.RequestPasswordReset(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "reset email requested")
				return nil
			},
		},
		&cobra.Command{
			Use:  "confirm <token> <new-password>",
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a().auth.ConfirmPasswordReset(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "password changed")
				return nil
			},
		},
	)
	return cmd
}

func newUsersCmd(a appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage tenant users"}

	var opts api.ListOptions
	list := &cobra.Command{
		Use:         "list",
		Annotations: requires("users.read"),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a().client.Users().List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), users)
		},
	}
	list.Flags().IntVar(&opts.Page, "page", 0, "page number")
	list.Flags().IntVar(&opts.PageSize, "page-size", 0, "page size")
	list.Flags().StringVar(&opts.Search, "search", "", "search term")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:         "get <id>",
			Args:        cobra.ExactArgs(1),
			Annotations: requires("users.read"),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := a().client.Users().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), user)
			},
		},
		&cobra.Command{
			Use:         "activate <id>",
			Args:        cobra.ExactArgs(1),
			Annotations: requires("users.write"),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := a().client.Users().Activate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), user)
			},
		},
		&cobra.Command{
			Use:         "status <id> <active|suspended|disabled>",
			Args:        cobra.ExactArgs(2),
			Annotations: requires("users.write"),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := a().client.Users().SetStatus(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), user)
			},
		},
		&cobra.Command{
			Use:         "role <id> <role>",
			Args:        cobra.ExactArgs(2),
			Annotations: requires("users.write", "roles.read"),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := a().client.Users().SetRole(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), user)
			},
		},
	)
	return cmd
}

func newRolesCmd(a appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "roles", Short: "Manage roles and their permissions"}
	cmd.AddCommand(
		&cobra.Command{
			Use:         "list",
			Annotations: requires("roles.read"),
			RunE: func(cmd *cobra.Command, args []string) error {
				roles, err := a().client.Roles().List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), roles)
			},
		},
		&cobra.Command{
			Use:         "assign <role-id> <permission>...",
			Args:        cobra.MinimumNArgs(1),
			Annotations: requires("roles.write"),
			RunE: func(cmd *cobra.Command, args []string) error {
				role, err := a().client.Roles().AssignPermissions(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), role)
			},
		},
	)
	return cmd
}

func newPermissionsCmd(a appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "permissions", Short: "List the permissions the tenant defines"}
	cmd.AddCommand(&cobra.Command{
		Use:         "list",
		Annotations: requires("roles.read"),
		RunE: func(cmd *cobra.Command, args []string) error {
			permissions, err := a().client.Permissions().List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), permissions)
		},
	})
	return cmd
}

func newBranchesCmd(a appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "branches", Short: "Manage tenant branches"}
	cmd.AddCommand(&cobra.Command{
		Use:         "list",
		Annotations: requires("branches.read"),
		RunE: func(cmd *cobra.Command, args []string) error {
			branches, err := a().client.Branches().List(cmd.Context(), api.ListOptions{})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), branches)
		},
	})
	return cmd
}

func newTenantCmd(a appFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Tenant settings and plan"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "settings",
			Short: "Show the public tenant settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				settings, err := a().client.Tenant().Settings(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), settings)
			},
		},
		&cobra.Command{
			Use:         "upgrade <plan>",
			Args:        cobra.ExactArgs(1),
			Annotations: requires("tenant.manage"),
			RunE: func(cmd *cobra.Command, args []string) error {
				settings, err := a().client.Tenant().UpgradePlan(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), settings)
			},
		},
	)
	return cmd
}
