package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/maestroapp/maestro/pkg/observability"
)

// Command represents an admin subcommand
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "maestro-admin",
		Description: "Maestro - administration tooling for the school backend",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("maestro-admin", flag.ExitOnError),
	}

	root.Subcommands["migrate"] = newMigrateCommand()
	root.Subcommands["sync-permissions"] = newSyncPermissionsCommand()
	root.Subcommands["seed-roles"] = newSeedRolesCommand()
	root.Subcommands["role-stats"] = newRoleStatsCommand()

	return root
}

// Execute runs the command
func (c *Command) Execute() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return c.usage()
	}

	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for name, cmd := range c.Subcommands {
		fmt.Printf("  %-18s %s\n", name, cmd.Description)
	}
	return nil
}

// defaultDBURL is the fallback for the -db-url flag on every subcommand
func defaultDBURL() string {
	if url := os.Getenv("MAESTRO_POSTGRES_URL"); url != "" {
		return url
	}
	return "postgres://localhost/maestro?sslmode=disable"
}

// openDatabase connects to the database. Admin commands talk to the database
// directly; they do not need the API server to be up.
func openDatabase(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// newLogger builds the logger the library calls expect. Only failures
// surface; progress lines come from the CLI's own logger.
func newLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, os.Stderr)
}

// newProgressLogger builds the logger for the CLI's own progress output.
// Output goes to stderr so command results on stdout stay clean.
func newProgressLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// commandTimeout bounds one admin command run
const commandTimeout = 5 * time.Minute
