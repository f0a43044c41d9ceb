package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
)

const invocationPrefix = progname + " -config CONFIG_TOML"

type subcmd interface {
	FlagSet() *flag.FlagSet
	Exec(flags *flag.FlagSet, conf config.Config) error
}

var subcommands = map[string]subcmd{
	sqlPingCmdName:          &sqlPingSubcommand{output: os.Stdout},
	sqlMigrateCmdName:       &sqlMigrateSubcommand{output: os.Stdout},
	sqlMigrateDownCmdName:   &sqlMigrateDownSubcommand{output: os.Stdout},
	sqlMigrateStatusCmdName: &sqlMigrateStatusSubcommand{output: os.Stdout},
}

// subCommand returns an exit code, to be fed into os.Exit.
func subCommand(conf config.Config, arg0 string, argRest []string) int {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		<-interrupt
		os.Exit(130) // indicates program was interrupted
	}()

	cmd, ok := subcommands[arg0]
	if !ok {
		printfErr("%s: unknown subcommand: %q\n", progname, arg0)
		return 1
	}

	flags := cmd.FlagSet()

	if err := flags.Parse(argRest); err != nil {
		printfErr("%s\n", err)
		return 1
	}

	if err := cmd.Exec(flags, conf); err != nil {
		printfErr("%s %s: fail: %v\n", progname, arg0, err)
		return 1
	}

	return 0
}

func openDB(conf config.DB) (*sql.DB, glsql.Dialect, func(), error) {
	db, err := glsql.OpenDB(conf)
	if err != nil {
		return nil, "", nil, fmt.Errorf("sql open: %w", err)
	}

	clean := func() {
		if err := db.Close(); err != nil {
			printfErr("sql close: %v\n", err)
		}
	}

	return db, glsql.DialectFor(conf.Driver), clean, nil
}

func printfErr(format string, a ...interface{}) (int, error) {
	return fmt.Fprintf(os.Stderr, format, a...)
}

func fprintf(w io.Writer, format string, a ...interface{}) {
	_, _ = fmt.Fprintf(w, format, a...)
}
