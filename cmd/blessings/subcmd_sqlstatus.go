package main

import (
	"flag"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
)

const sqlMigrateStatusCmdName = "sql-migrate-status"

type sqlMigrateStatusSubcommand struct {
	output io.Writer
}

func (s *sqlMigrateStatusSubcommand) FlagSet() *flag.FlagSet {
	return flag.NewFlagSet(sqlMigrateStatusCmdName, flag.ExitOnError)
}

func (s *sqlMigrateStatusSubcommand) Exec(flags *flag.FlagSet, conf config.Config) error {
	db, dialect, clean, err := openDB(conf.DB)
	if err != nil {
		return err
	}
	defer clean()

	migrations, err := glsql.MigrateStatus(db, dialect)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(s.output)
	table.SetHeader([]string{"Migration", "Applied"})
	table.SetColWidth(60)

	// Display the rows in order of name
	var keys []string
	for k := range migrations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		m := migrations[k]
		applied := "no"

		if m.Unknown {
			applied = "unknown migration"
		} else if m.Migrated {
			applied = m.AppliedAt.String()
		}

		table.Append([]string{
			k,
			applied,
		})
	}

	table.Render()

	return nil
}
