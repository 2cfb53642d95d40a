package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/rbac"
	"github.com/maestroapp/maestro/pkg/users"
)

func newMigrateCommand() *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Run database migrations and initialize built-in roles",
		Flags:       flag.NewFlagSet("migrate", flag.ExitOnError),
		Run:         runMigrate,
	}

	cmd.Flags.String("db-url", defaultDBURL(), "PostgreSQL connection URL")

	return cmd
}

func runMigrate(args []string) error {
	cmd := newMigrateCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	dbURL := cmd.Flags.Lookup("db-url").Value.String()

	db, err := openDatabase(dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newLogger()
	progress := newProgressLogger()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	progress.Info("Running role and permission migrations")
	if err := rbac.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	progress.Info("Ensuring audit and user schemas")
	if err := audit.NewStore(db, db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure audit schema: %w", err)
	}
	if err := users.NewStore(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure users schema: %w", err)
	}

	progress.Info("Initializing built-in roles")
	if err := rbac.InitializeBuiltInRoles(ctx, rbac.NewStore(db), logger); err != nil {
		return fmt.Errorf("failed to initialize built-in roles: %w", err)
	}

	fmt.Println("Migrations complete")
	return nil
}
