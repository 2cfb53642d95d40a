package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/maestroapp/maestro/pkg/rbac"
)

// seedRole is one role definition in a seed file
type seedRole struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"displayName"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

// seedFile is the on-disk format of a role seed file:
//
//	roles:
//	  - name: REGISTRAR
//	    displayName: Registrar
//	    description: Front desk staff managing enrollment
//	    permissions:
//	      - STUDENT:READ:ANY
//	      - ENROLLMENT:CREATE:ANY
//	      - ENROLLMENT:READ:ANY
type seedFile struct {
	Roles []seedRole `yaml:"roles"`
}

func newSeedRolesCommand() *Command {
	cmd := &Command{
		Name:        "seed-roles",
		Description: "Create or update roles from a YAML seed file",
		Flags:       flag.NewFlagSet("seed-roles", flag.ExitOnError),
		Run:         runSeedRoles,
	}

	cmd.Flags.String("db-url", defaultDBURL(), "PostgreSQL connection URL")
	cmd.Flags.String("file", "roles.yaml", "Path to the role seed file")

	return cmd
}

func runSeedRoles(args []string) error {
	cmd := newSeedRolesCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	dbURL := cmd.Flags.Lookup("db-url").Value.String()
	path := cmd.Flags.Lookup("file").Value.String()

	roles, err := loadSeedFile(path)
	if err != nil {
		return err
	}
	newProgressLogger().WithFields(logrus.Fields{
		"file":  path,
		"roles": len(roles),
	}).Info("Seed file validated")

	db, err := openDatabase(dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	created, updated, err := applySeedRoles(ctx, rbac.NewStore(db), roles)
	if err != nil {
		return err
	}

	fmt.Printf("Roles seeded: %d created, %d updated\n", created, updated)
	return nil
}

// loadSeedFile reads a seed file and validates every permission name against
// the catalog before anything touches the database.
func loadSeedFile(path string) ([]seedRole, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("seed file %s defines no roles", path)
	}

	for _, role := range file.Roles {
		if role.Name == "" {
			return nil, fmt.Errorf("seed file %s contains a role without a name", path)
		}
		if err := rbac.ValidatePermissions(role.Permissions); err != nil {
			return nil, fmt.Errorf("role %s: %w", role.Name, err)
		}
	}
	return file.Roles, nil
}

// applySeedRoles upserts the seed roles: existing roles get their permission
// set replaced, missing ones are created.
func applySeedRoles(ctx context.Context, store *rbac.Store, roles []seedRole) (created, updated int, err error) {
	for _, seed := range roles {
		existing, err := store.GetRoleByName(ctx, seed.Name)
		if err == nil {
			if err := store.UpdateRolePermissions(ctx, existing.ID, seed.Permissions); err != nil {
				return created, updated, fmt.Errorf("failed to update role %s: %w", seed.Name, err)
			}
			updated++
			continue
		}
		if !errors.Is(err, rbac.ErrNotFound) {
			return created, updated, err
		}

		displayName := seed.DisplayName
		if displayName == "" {
			displayName = seed.Name
		}
		role := &rbac.Role{
			Name:        seed.Name,
			DisplayName: displayName,
			Description: seed.Description,
			Permissions: seed.Permissions,
		}
		if err := store.CreateRole(ctx, role); err != nil {
			return created, updated, fmt.Errorf("failed to create role %s: %w", seed.Name, err)
		}
		created++
	}
	return created, updated, nil
}
