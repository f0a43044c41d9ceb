// Command blessings serves the blessings and the product catalog over HTTP.
//
//	blessings -config config.toml                 serve HTTP
//	blessings -config config.toml SUBCOMMAND ...  run a maintenance subcommand
//
// See the subcommands map for the available maintenance subcommands.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
	"gitlab.com/gitlab-org/blessings/internal/blessings/metrics"
	"gitlab.com/gitlab-org/blessings/internal/blessings/sentry"
	"gitlab.com/gitlab-org/blessings/internal/blessings/service"
	"gitlab.com/gitlab-org/blessings/internal/bootstrap"
	"gitlab.com/gitlab-org/blessings/internal/bootstrap/starter"
	"gitlab.com/gitlab-org/blessings/internal/log"
	"gitlab.com/gitlab-org/blessings/internal/version"
	"gitlab.com/gitlab-org/labkit/monitoring"
	"golang.org/x/sync/errgroup"
)

const progname = "blessings"

var (
	flagConfig  = flag.String("config", "", "Location for the config.toml")
	flagVersion = flag.Bool("version", false, "Print version and exit")
	logger      = log.Default()

	errNoConfigFile = errors.New("the config flag must be passed")
)

func main() {
	flag.Usage = func() {
		cmds := make([]string, 0, len(subcommands))
		for k := range subcommands {
			cmds = append(cmds, k)
		}
		sort.Strings(cmds)

		printfErr("Usage of %s:\n", progname)
		flag.PrintDefaults()
		printfErr("  subcommand (optional)\n")
		printfErr("\tOne of %v\n", cmds)
	}
	flag.Parse()

	// If invoked with -version
	if *flagVersion {
		fmt.Println(version.GetVersionString())
		os.Exit(0)
	}

	conf, err := initConfig()
	if err != nil {
		printfErr("%s: configuration error: %v\n", progname, err)
		os.Exit(1)
	}

	if args := flag.Args(); len(args) > 0 {
		os.Exit(subCommand(conf, args[0], args[1:]))
	}

	configure(conf)

	if err := run(conf); err != nil {
		logger.Fatalf("%v", err)
	}
}

func initConfig() (config.Config, error) {
	var conf config.Config

	if *flagConfig == "" {
		return conf, errNoConfigFile
	}

	conf, err := config.FromFile(*flagConfig)
	if err != nil {
		return conf, fmt.Errorf("error reading config file: %v", err)
	}

	if err := conf.Validate(); err != nil {
		return config.Config{}, err
	}

	return conf, nil
}

func configure(conf config.Config) {
	logger = conf.ConfigureLogger()

	if err := sentry.ConfigureSentry(logger, version.GetVersion(), conf.Sentry); err != nil {
		logger.WithError(err).Warn("unable to initialize sentry client")
	}

	if conf.PrometheusListenAddr != "" {
		logger.WithField("address", conf.PrometheusListenAddr).Info("Starting prometheus listener")

		go func() {
			if err := monitoring.Serve(
				monitoring.WithListenerAddress(conf.PrometheusListenAddr),
				monitoring.WithBuildInformation(version.GetVersion(), version.GetBuildTime())); err != nil {
				logger.WithError(err).Errorf("Unable to start prometheus listener: %v", conf.PrometheusListenAddr)
			}
		}()
	}

	logger.WithField("version", version.GetVersionString()).Info("Starting blessings")
}

func run(conf config.Config) error {
	db, err := glsql.OpenDB(conf.DB)
	if err != nil {
		return fmt.Errorf("sql open: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("sql close")
		}
	}()

	dialect := glsql.DialectFor(conf.DB.Driver)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := checkDatabase(ctx, db, dialect); err != nil {
		return err
	}

	catalog := datastore.NewCatalogStore(logger, db, dialect)
	if err := metrics.RegisterCollector(catalog); err != nil {
		return err
	}

	requestLatency, err := metrics.RegisterRequestLatency(conf.Prometheus)
	if err != nil {
		return err
	}

	inFlight, err := metrics.RegisterRequestsInFlight()
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := service.NewServer(
		logger,
		datastore.NewBlessingStore(db, dialect),
		catalog,
		service.WithRequestLatency(requestLatency),
		service.WithRequestsInFlight(inFlight),
	)

	b, err := bootstrap.New(logger)
	if err != nil {
		return fmt.Errorf("unable to create a bootstrap: %v", err)
	}

	b.StopAction = func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.GracefulStopTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("error received during shutting down")
		}
	}

	listeners, err := starter.FromAddresses(conf.ListenAddr, conf.SocketPath)
	if err != nil {
		return err
	}

	for _, cfg := range listeners {
		b.RegisterStarter(starter.New(logger, cfg, srv))
	}

	if err := b.Start(); err != nil {
		return fmt.Errorf("unable to start the bootstrap: %v", err)
	}

	waitErr := b.Wait(conf.GracefulStopTimeout)
	logger.WithError(waitErr).Warn("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), conf.GracefulStopTimeout)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// checkDatabase verifies the server version and that every migration has
// been applied. Migrations are never applied implicitly, see sql-migrate.
func checkDatabase(ctx context.Context, db *sql.DB, dialect glsql.Dialect) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return datastore.CheckServerVersion(ctx, db, dialect)
	})

	g.Go(func() error {
		status, err := glsql.MigrateStatus(db, dialect)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}

		if pending := pendingMigrations(status); len(pending) > 0 {
			return fmt.Errorf("%d migrations not applied, run %s sql-migrate: %v", len(pending), progname, pending)
		}

		return nil
	})

	return g.Wait()
}

func pendingMigrations(status map[string]*glsql.MigrationStatusRow) []string {
	var pending []string
	for id, row := range status {
		if !row.Migrated {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)

	return pending
}
