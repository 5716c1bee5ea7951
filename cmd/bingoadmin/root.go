package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-bingo-admin/access"
	"github.com/jrsteele09/go-bingo-admin/internal/config"
	"github.com/jrsteele09/go-bingo-admin/tenants"
	"github.com/spf13/cobra"
)

// permissionAnnotation lists the comma separated permissions a command requires.
// Commands carrying it also require a session.
const (
	permissionAnnotation = "permissions"
	sessionAnnotation    = "session"
)

// RedirectError is returned when the guard turns a command away
type RedirectError struct {
	Decision access.Decision
}

func (e *RedirectError) Error() string {
	if len(e.Decision.Missing) > 0 {
		return fmt.Sprintf("redirect to %s: missing %s", e.Decision.Redirect, strings.Join(e.Decision.Missing, ", "))
	}
	return fmt.Sprintf("redirect to %s", e.Decision.Redirect)
}

type rootOptions struct {
	host string
}

func newRootCmd(c config.Config) *cobra.Command {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:          "bingoadmin",
		Short:        "Administer a tenant of the bingo platform",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			displayAppname(c.GetAppName())
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(c.GetLogLevel())
			if !needsApp(cmd) {
				return nil
			}

			ctx := cmd.Context()
			if opts.host != "" {
				ctx = tenants.WithHost(ctx, opts.host)
				cmd.SetContext(ctx)
			}

			var err error
			if a, err = newApp(ctx, c); err != nil {
				return err
			}
			return checkAccess(cmd, a.guard)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.host, "host", "", "host name to resolve the tenant from, e.g. acme.bingo.com")

	current := func() *app { return a }
	root.AddCommand(
		newLoginCmd(current),
		newLogoutCmd(current),
		newWhoamiCmd(current),
		newCanCmd(current),
		newRefreshCmd(current),
		newPasswordResetCmd(current),
		newUsersCmd(current),
		newRolesCmd(current),
		newPermissionsCmd(current),
		newBranchesCmd(current),
		newTenantCmd(current),
		newWatchCmd(current),
	)
	return root
}

func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return cmd.HasParent()
}

// checkAccess applies the guard to commands annotated with a session or permission
// requirement
func checkAccess(cmd *cobra.Command, guard *access.Guard) error {
	required, hasPermissions := cmd.Annotations[permissionAnnotation]
	_, needsSession := cmd.Annotations[sessionAnnotation]
	if !hasPermissions && !needsSession {
		return nil
	}

	var permissions []string
	for _, p := range strings.Split(required, ",") {
		if p = strings.TrimSpace(p); p != "" {
			permissions = append(permissions, p)
		}
	}

	decision := guard.Check(permissions...)
	if !decision.Allowed {
		return &RedirectError{Decision: decision}
	}
	return nil
}

func requires(permissions ...string) map[string]string {
	return map[string]string{permissionAnnotation: strings.Join(permissions, ",")}
}

func requiresSession() map[string]string {
	return map[string]string{sessionAnnotation: "true"}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
