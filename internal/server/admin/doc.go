// Package admin implements the operator command line: applying and
// inspecting migrations, seeding the default roles and bootstrapping the
// first administrator account.
//
// Usage:
//
//	admin <command> [flags]
//
// Commands:
//
//	migrate       apply pending migrations
//	status        print the state of every migration
//	seed-roles    create missing default roles (ADMIN, USER, MODERATOR)
//	create-admin  create an ACTIVE, verified account holding the ADMIN role
//	version       print build information
package admin
