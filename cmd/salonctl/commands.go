package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seregajade-png/analysis-beauty/internal/shared/config"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/db"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

// env supplies the database-backed dependencies; tests replace it.
type env struct {
	openDB  func(ctx context.Context, databaseURL string) (*sql.DB, error)
	migrate func(ctx context.Context, conn *sql.DB) error
	version func(conn *sql.DB) (int64, error)
	users   func(conn *sql.DB) users.Repo
}

func defaultEnv() env {
	return env{
		openDB: func(ctx context.Context, databaseURL string) (*sql.DB, error) {
			if databaseURL == "" {
				return nil, fmt.Errorf("DATABASE_URL is required (or pass --database-url)")
			}
			return db.Connect(ctx, databaseURL, db.OptionsFor(db.ProfileCLI))
		},
		migrate: db.RunMigrations,
		version: db.SchemaVersion,
		users: func(conn *sql.DB) users.Repo {
			return &users.PGRepo{DB: conn}
		},
	}
}

func newRootCmd(e env) *cobra.Command {
	var databaseURL string
	root := &cobra.Command{
		Use:           "salonctl",
		Short:         "Administer the salon analysis service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")

	withDB := func(cmd *cobra.Command, fn func(ctx context.Context, conn *sql.DB) error) error {
		url := databaseURL
		if url == "" {
			url = config.Load().DatabaseURL
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		conn, err := e.openDB(ctx, url)
		if err != nil {
			return err
		}
		defer conn.Close()
		return fn(ctx, conn)
	}

	root.AddCommand(newMigrateCmd(e, withDB), newUsersCmd(e, withDB))
	return root
}

type dbRunner func(cmd *cobra.Command, fn func(ctx context.Context, conn *sql.DB) error) error

func newMigrateCmd(e env, withDB dbRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, conn *sql.DB) error {
				if err := e.migrate(ctx, conn); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				v, err := e.version(conn)
				if err != nil {
					return fmt.Errorf("read schema version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrations applied, schema at version %d\n", v)
				return nil
			})
		},
	}
}

func newUsersCmd(e env, withDB dbRunner) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var in users.NewUser
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with a password",
		Long: `Create a user with a password.

Examples:
  salonctl users create --email owner@salon.ru --password secret --role OWNER --salon "Лотос"
  salonctl users create --email anna@salon.ru --password secret --manager <manager-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, conn *sql.DB) error {
				user, err := users.NewService(e.users(conn)).Create(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&in.Email, "email", "", "login email")
	createCmd.Flags().StringVar(&in.Name, "name", "", "display name")
	createCmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	createCmd.Flags().StringVar(&in.Role, "role", users.RoleAdmin, "OWNER, MANAGER or ADMIN")
	createCmd.Flags().StringVar(&in.SalonName, "salon", "", "salon name")
	createCmd.Flags().StringVar(&in.ManagerID, "manager", "", "id of the managing user")
	createCmd.Flags().BoolVar(&in.Legacy, "legacy", false, "store a legacy SHA-256 hash")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	var email, password string
	var legacy bool
	resetCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Replace a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, conn *sql.DB) error {
				if err := users.NewService(e.users(conn)).ResetPassword(ctx, email, password, legacy); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", email)
				return nil
			})
		},
	}
	resetCmd.Flags().StringVar(&email, "email", "", "login email")
	resetCmd.Flags().StringVar(&password, "password", "", "new password")
	resetCmd.Flags().BoolVar(&legacy, "legacy", false, "store a legacy SHA-256 hash")
	_ = resetCmd.MarkFlagRequired("email")
	_ = resetCmd.MarkFlagRequired("password")

	usersCmd.AddCommand(createCmd, resetCmd)
	return usersCmd
}
