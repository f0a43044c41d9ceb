package main

import (
	"context"
	"flag"
	"io"
	"time"

	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
)

const (
	sqlPingCmdName    = "sql-ping"
	sqlMigrateCmdName = "sql-migrate"
)

type sqlPingSubcommand struct {
	output io.Writer
}

func (s *sqlPingSubcommand) FlagSet() *flag.FlagSet {
	return flag.NewFlagSet(sqlPingCmdName, flag.ExitOnError)
}

func (s *sqlPingSubcommand) Exec(flags *flag.FlagSet, conf config.Config) error {
	db, dialect, clean, err := openDB(conf.DB)
	if err != nil {
		return err
	}
	defer clean()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := datastore.CheckServerVersion(ctx, db, dialect); err != nil {
		return err
	}

	fprintf(s.output, "%s %s: OK\n", progname, sqlPingCmdName)
	return nil
}

type sqlMigrateSubcommand struct {
	output io.Writer
}

func (s *sqlMigrateSubcommand) FlagSet() *flag.FlagSet {
	return flag.NewFlagSet(sqlMigrateCmdName, flag.ExitOnError)
}

func (s *sqlMigrateSubcommand) Exec(flags *flag.FlagSet, conf config.Config) error {
	db, dialect, clean, err := openDB(conf.DB)
	if err != nil {
		return err
	}
	defer clean()

	n, err := glsql.Migrate(db, dialect)
	if err != nil {
		return err
	}

	fprintf(s.output, "%s %s: OK (applied %d migrations)\n", progname, sqlMigrateCmdName, n)
	return nil
}
