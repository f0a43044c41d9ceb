package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
)

const sqlMigrateDownCmdName = "sql-migrate-down"

var errMigrateDownUsage = errors.New("expected exactly one MAX_MIGRATIONS argument")

type sqlMigrateDownSubcommand struct {
	output io.Writer
	force  bool
}

func (*sqlMigrateDownSubcommand) prefix() string { return progname + " " + sqlMigrateDownCmdName }

func (*sqlMigrateDownSubcommand) invocation() string {
	return invocationPrefix + " " + sqlMigrateDownCmdName
}

func (s *sqlMigrateDownSubcommand) FlagSet() *flag.FlagSet {
	flags := flag.NewFlagSet(sqlMigrateDownCmdName, flag.ExitOnError)
	flags.Usage = func() {
		printfErr("usage:  %s [-f] MAX_MIGRATIONS\n", s.invocation())
	}
	flags.BoolVar(&s.force, "f", false, "apply down-migrations (default is dry run)")
	return flags
}

func (s *sqlMigrateDownSubcommand) Exec(flags *flag.FlagSet, conf config.Config) error {
	if flags.NArg() != 1 {
		flags.Usage()
		return errMigrateDownUsage
	}

	maxMigrations, err := strconv.Atoi(flags.Arg(0))
	if err != nil {
		return err
	}

	if maxMigrations < 1 {
		return fmt.Errorf("number of migrations to roll back must be 1 or more")
	}

	db, dialect, clean, err := openDB(conf.DB)
	if err != nil {
		return err
	}
	defer clean()

	if s.force {
		n, err := glsql.MigrateDown(db, dialect, maxMigrations)
		if err != nil {
			return err
		}

		fprintf(s.output, "%s: OK (applied %d \"down\" migrations)\n", s.prefix(), n)
		return nil
	}

	planned, err := glsql.MigrateDownPlan(db, dialect, maxMigrations)
	if err != nil {
		return err
	}

	fprintf(s.output, "%s: DRY RUN -- would roll back:\n\n", s.prefix())
	for _, id := range planned {
		fprintf(s.output, "- %s\n", id)
	}
	fprintf(s.output, "\nTo apply these migrations run: %s -f %d\n", s.invocation(), maxMigrations)

	return nil
}
