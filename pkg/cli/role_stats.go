package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/maestroapp/maestro/pkg/rbac"
)

func newRoleStatsCommand() *Command {
	cmd := &Command{
		Name:        "role-stats",
		Description: "Show the number of active users per role",
		Flags:       flag.NewFlagSet("role-stats", flag.ExitOnError),
		Run:         runRoleStats,
	}

	cmd.Flags.String("db-url", defaultDBURL(), "PostgreSQL connection URL")

	return cmd
}

func runRoleStats(args []string) error {
	cmd := newRoleStatsCommand()
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

	counts, err := rbac.NewStore(db).RoleUserCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load role stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tDISPLAY NAME\tUSERS")
	var total int64
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%s\t%d\n", c.Role, c.DisplayName, c.UserCount)
		total += c.UserCount
	}
	fmt.Fprintf(w, "\t\t%d\n", total)
	return w.Flush()
}
