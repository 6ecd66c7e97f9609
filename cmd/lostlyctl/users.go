package main

import (
	"fmt"

	"github.com/spf13/cobra"

	authsvc "github.com/KhadijaXD/lostly/internal/app/services/auth"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

type accountFlags struct {
	email      string
	name       string
	password   string
	department string
	contact    string
	role       string
}

func (f *accountFlags) bind(cmd *cobra.Command, withRole bool) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.password, "password", "", "initial password (min 8 characters)")
	cmd.Flags().StringVar(&f.department, "department", "Administration", "department")
	cmd.Flags().StringVar(&f.contact, "contact", "N/A", "contact number")
	if withRole {
		cmd.Flags().StringVar(&f.role, "role", string(domainuser.RoleStudent), "student, staff or admin")
	}
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
}

func (f *accountFlags) params() authsvc.RegisterParams {
	return authsvc.RegisterParams{
		Email:         f.email,
		Name:          f.name,
		Password:      f.password,
		Department:    f.department,
		ContactNumber: f.contact,
	}
}

func newCreateUserCmd(use, short string, fixedRole domainuser.Role) *cobra.Command {
	var flags accountFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			role := fixedRole
			if role == "" {
				parsed, err := domainuser.ParseRole(flags.role)
				if err != nil {
					return err
				}
				role = parsed
			}
			return withAuth(cmd.Context(), func(svc *authsvc.Service) error {
				user, err := svc.CreateUser(cmd.Context(), flags.params(), role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
				return nil
			})
		},
	}
	flags.bind(cmd, fixedRole == "")
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd.Context(), func(svc *authsvc.Service) error {
				if err := svc.ResetPassword(cmd.Context(), email, password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "new password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func init() {
	rootCmd.AddCommand(
		newCreateUserCmd("create-admin", "Create an administrator account", domainuser.RoleAdmin),
		newCreateUserCmd("create-user", "Create an account with the given role", ""),
		newResetPasswordCmd(),
	)
}
