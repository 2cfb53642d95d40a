package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/maestroapp/maestro/pkg/rbac"
)

func newSyncPermissionsCommand() *Command {
	cmd := &Command{
		Name:        "sync-permissions",
		Description: "Sync the compiled-in permission catalog to the database",
		Flags:       flag.NewFlagSet("sync-permissions", flag.ExitOnError),
		Run:         runSyncPermissions,
	}

	cmd.Flags.String("db-url", defaultDBURL(), "PostgreSQL connection URL")

	return cmd
}

func runSyncPermissions(args []string) error {
	cmd := newSyncPermissionsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	dbURL := cmd.Flags.Lookup("db-url").Value.String()

	db, err := openDatabase(dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// No cache and no audit sink; offline syncs are not part of the trail.
	service := rbac.NewService(rbac.NewStore(db), nil, nil, newLogger())
	result, err := service.SyncCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync permission catalog: %w", err)
	}

	fmt.Printf("Permission catalog synced: %d created, %d already present\n", result.Created, result.Existing)
	return nil
}
