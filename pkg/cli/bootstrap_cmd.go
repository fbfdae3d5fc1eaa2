package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	internaldb "expertmarket/internal/db"
	"expertmarket/internal/db/repository"
	"expertmarket/internal/domain"
)

func newBootstrapAdminCmd(dbPath *string) *cobra.Command {
	var (
		email string
		name  string
		role  = newRoleValue(domain.RoleSuperadmin, domain.RoleAdmin, domain.RoleSuperadmin)
	)

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create or promote the first administrator account",
		Long: "Create an administrator account directly in the database, bypassing the API's " +
			"role-assignment rules. If a user with the given email already exists it is " +
			"promoted instead. Intended for initial setup of a fresh deployment.",
		Example: `  # Create the first superadmin
  expertmarket bootstrap-admin --email root@example.com --name "Root Admin"

  # Promote an existing user to admin
  expertmarket bootstrap-admin --email ops@example.com --role admin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			ctx := cmd.Context()

			db, err := internaldb.OpenSQLite(*dbPath, "write", 0)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := internaldb.RunMigrations(db); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			users := repository.NewUserRepo(db)

			existing, err := users.GetByEmail(ctx, email)
			switch {
			case err == nil:
				if err := users.SetRole(ctx, existing.ID, role.role); err != nil {
					return fmt.Errorf("promote user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to %s\n", existing.Email, existing.ID, role.role)
				return nil
			case domain.IsNotFound(err):
				if name == "" {
					name = email
				}
				created, err := users.Create(ctx, &domain.User{
					Email: email,
					Name:  name,
					Role:  role.role,
				})
				if err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", created.Role, created.Email, created.ID)
				return nil
			default:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the account")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email)")
	cmd.Flags().Var(role, "role", "role to assign: admin or superadmin")

	return cmd
}
