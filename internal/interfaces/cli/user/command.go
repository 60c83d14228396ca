package user

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	appauth "kreltrack/internal/application/auth"
	pvo "kreltrack/internal/domain/permission/value_objects"
	domainuser "kreltrack/internal/domain/user"
	uvo "kreltrack/internal/domain/user/valueobjects"
	"kreltrack/internal/interfaces/cli/app"
)

func NewCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts and sessions",
	}
	cmd.AddCommand(
		newAddCommand(opts),
		newLoginCommand(opts),
		newPasswdCommand(opts),
		newListCommand(opts),
		newPermsCommand(opts),
	)
	return cmd
}

func newAddCommand(opts *app.Options) *cobra.Command {
	var (
		username string
		role     string
		password string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Long: `Create an account. The very first account needs no session and must be a super user;
every later account is created by a logged-in super user.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, opts, func(ctx context.Context, a *app.App) error {
				var actor *domainuser.Actor
				if a.HasSession() {
					current, err := a.Actor(ctx)
					if err != nil {
						return err
					}
					actor = &current
				}

				if password == "" {
					var err error
					if password, err = app.ReadPassword(cmd, "Password: "); err != nil {
						return err
					}
				}

				u, err := a.Gate.Register(ctx, appauth.RegisterCommand{
					Username: username,
					Password: password,
					Role:     role,
				}, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Username(), u.Role())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Login name (required)")
	cmd.Flags().StringVarP(&role, "role", "r", uvo.RoleOperator.String(), "operator, engineer, manager or super")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLoginCommand(opts *app.Options) *cobra.Command {
	var (
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, opts, func(ctx context.Context, a *app.App) error {
				if password == "" {
					var err error
					if password, err = app.ReadPassword(cmd, "Password: "); err != nil {
						return err
					}
				}
				session, err := a.Gate.Login(ctx, username, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), session.Token)
				fmt.Fprintf(cmd.ErrOrStderr(), "logged in as %s (%s), session valid until %s\n",
					session.Actor.Username, session.Actor.Role, session.ExpiresAt.Local().Format(time.Kitchen))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Login name (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newPasswdCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the logged-in account",
		Long:  "Change the password of the logged-in account. The current and new passwords are prompted; piped input gives one per line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor domainuser.Actor) error {
				pw, err := app.ReadPasswords(cmd, "Current password: ", "New password: ", "Repeat new password: ")
				if err != nil {
					return err
				}
				if pw[1] != pw[2] {
					return fmt.Errorf("new passwords do not match")
				}
				if err := a.Gate.ChangePassword(ctx, actor, pw[0], pw[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password changed for %s\n", actor.Username)
				return nil
			})
		},
	}
}

func newListCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor domainuser.Actor) error {
				users, err := a.Gate.ListUsers(ctx, actor)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USERNAME\tROLE\tACTIVE\tLAST LOGIN")
				for _, u := range users {
					last := "-"
					if t := u.LastLoginAt(); t != nil {
						last = t.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", u.Username(), u.Role(), u.IsActive(), last)
				}
				return tw.Flush()
			})
		},
	}
}

func newPermsCommand(opts *app.Options) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Show what a role may do",
		Long:  "Show the grants of a role, inherited ones included. Without --role the current session's role is shown; other roles need user read access.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor domainuser.Actor) error {
				target := actor.Role
				if role != "" {
					parsed, err := uvo.NewRole(role)
					if err != nil {
						return err
					}
					target = parsed
				}
				if target != actor.Role {
					if err := a.Gate.Authorize(ctx, actor, pvo.ResourceUser, pvo.ActionRead); err != nil {
						return err
					}
				}

				grants, err := a.Perms.GrantsFor(target.String())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RESOURCE\tACTION\tVIA")
				for _, g := range grants {
					via := "-"
					if g.Role != target.String() {
						via = g.Role
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Resource, g.Action, via)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "Role to inspect (default: your own)")
	return cmd
}
