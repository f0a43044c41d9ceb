package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
	"gitlab.com/gitlab-org/blessings/internal/testhelper"
)

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	defer testhelper.Configure()()
	return m.Run()
}

func TestNoConfigFlag(t *testing.T) {
	_, err := initConfig()

	assert.Equal(t, err, errNoConfigFile)
}

// sqliteConfig writes a config file pointing at a fresh sqlite database
// and loads it the way main does.
func sqliteConfig(t *testing.T) config.Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`
listen_addr = "127.0.0.1:0"

[database]
driver = "sqlite"
path = %q
`, filepath.Join(dir, "blessings.sqlite"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	defer func(old string) { *flagConfig = old }(*flagConfig)
	*flagConfig = path

	conf, err := initConfig()
	require.NoError(t, err)
	return conf
}

func TestInitConfig_invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database]\ndriver = \"sqlite\"\n"), 0644))

	defer func(old string) { *flagConfig = old }(*flagConfig)
	*flagConfig = path

	_, err := initConfig()
	require.Error(t, err)
}

func execSubcommand(t *testing.T, cmd subcmd, conf config.Config, args ...string) error {
	t.Helper()

	flags := cmd.FlagSet()
	require.NoError(t, flags.Parse(args))
	return cmd.Exec(flags, conf)
}

func TestSQLSubcommands(t *testing.T) {
	conf := sqliteConfig(t)

	ctx, cancel := testhelper.Context()
	defer cancel()

	var out bytes.Buffer

	require.NoError(t, execSubcommand(t, &sqlPingSubcommand{output: &out}, conf))
	require.Equal(t, "blessings sql-ping: OK\n", out.String())

	db, dialect, clean, err := openDB(conf.DB)
	require.NoError(t, err)
	defer clean()

	err = checkDatabase(ctx, db, dialect)
	require.Error(t, err)
	require.Contains(t, err.Error(), "3 migrations not applied")

	out.Reset()
	require.NoError(t, execSubcommand(t, &sqlMigrateSubcommand{output: &out}, conf))
	require.Equal(t, "blessings sql-migrate: OK (applied 3 migrations)\n", out.String())

	require.NoError(t, checkDatabase(ctx, db, dialect))

	out.Reset()
	require.NoError(t, execSubcommand(t, &sqlMigrateStatusSubcommand{output: &out}, conf))
	require.Contains(t, out.String(), "MIGRATION")
	require.Contains(t, out.String(), "20261012141500_catalog_tables")
	require.NotContains(t, out.String(), "| no ")

	out.Reset()
	require.NoError(t, execSubcommand(t, &sqlMigrateDownSubcommand{output: &out}, conf, "1"))
	require.Contains(t, out.String(), "DRY RUN")
	require.Contains(t, out.String(), "- 20261012141500_catalog_tables\n")
	require.NoError(t, checkDatabase(ctx, db, dialect), "dry run must not roll back")

	out.Reset()
	require.NoError(t, execSubcommand(t, &sqlMigrateDownSubcommand{output: &out}, conf, "-f", "1"))
	require.Equal(t, "blessings sql-migrate-down: OK (applied 1 \"down\" migrations)\n", out.String())

	status, err := glsql.MigrateStatus(db, dialect)
	require.NoError(t, err)
	require.Equal(t, []string{"20261012141500_catalog_tables"}, pendingMigrations(status))
}

func TestSQLMigrateDown_invalidArguments(t *testing.T) {
	conf := sqliteConfig(t)

	for _, tc := range []struct {
		desc string
		args []string
	}{
		{desc: "no argument"},
		{desc: "too many arguments", args: []string{"1", "2"}},
		{desc: "not a number", args: []string{"all"}},
		{desc: "zero", args: []string{"0"}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			var out bytes.Buffer
			require.Error(t, execSubcommand(t, &sqlMigrateDownSubcommand{output: &out}, conf, tc.args...))
			require.Empty(t, out.String())
		})
	}
}

func TestSubCommand_unknown(t *testing.T) {
	require.Equal(t, 1, subCommand(config.Config{}, "dial-nodes", nil))
}

func TestPendingMigrations(t *testing.T) {
	require.Empty(t, pendingMigrations(nil))
	require.Equal(t, []string{"a", "c"}, pendingMigrations(map[string]*glsql.MigrationStatusRow{
		"c": {},
		"b": {Migrated: true},
		"a": {},
	}))
}

func TestCheckDatabase_unavailable(t *testing.T) {
	conf := sqliteConfig(t)

	db, dialect, _, err := openDB(conf.DB)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.Error(t, checkDatabase(context.Background(), db, dialect))
}
