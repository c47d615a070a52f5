package main

import (
	"database/sql"

	"github.com/trezcool/goose"

	"github.com/trezcool/tutordesk/fs"
)

var gooseRunFunc = goose.RunFS // mockable

// newMigrateFunc runs the embedded goose migrations against `db`.
func newMigrateFunc(db *sql.DB) func(command string, args ...string) error {
	return func(command string, args ...string) error {
		return gooseRunFunc(command, db, appfs.FS, appfs.MigrationsDir, args...)
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.migrateFunc == nil {
		return errNoSQL
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return cli.migrateFunc(args[0], arguments...)
}
