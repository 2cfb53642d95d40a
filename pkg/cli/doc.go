// Package cli implements the maestro-admin command-line tooling.
//
// # Overview
//
// This package implements the `maestro-admin` subcommands operators use to
// prepare and inspect a Maestro database: running migrations, syncing the
// permission catalog, seeding roles and checking role usage. The commands run
// against the database directly, so they work with the API server down.
//
// # Commands
//
// migrate: Run migrations and initialize built-in roles
//
//	maestro-admin migrate --db-url postgres://localhost/maestro
//
// sync-permissions: Sync the compiled-in permission catalog to the database
//
//	maestro-admin sync-permissions
//
// seed-roles: Create or update roles from a YAML seed file
//
//	maestro-admin seed-roles --file roles.yaml
//
// A seed file defines roles with their permission sets:
//
//	roles:
//	  - name: REGISTRAR
//	    displayName: Registrar
//	    description: Front desk staff managing enrollment
//	    permissions:
//	      - STUDENT:READ:ANY
//	      - ENROLLMENT:CREATE:ANY
//	      - ENROLLMENT:READ:ANY
//
// Every permission name is validated against the catalog before anything is
// written; unknown names abort the whole run.
//
// role-stats: Show the number of active users per role
//
//	maestro-admin role-stats
//
// # Configuration
//
// Database URL:
//
//	export MAESTRO_POSTGRES_URL="postgres://localhost/maestro?sslmode=disable"
//	# Or use --db-url flag
//
// Changes made here bypass the API and therefore do not show up in the audit
// trail; the trail covers the HTTP surface.
package cli
