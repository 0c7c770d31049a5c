package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/liamcoop/homeloan/internal/logger"
	"github.com/liamcoop/homeloan/pipeline"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"
)

var (
	databaseFlag = &cli.StringFlag{
		Name:    "database",
		Usage:   "Database URL (required)",
		EnvVars: []string{"HOMELOAN_DATABASE_URL", "DATABASE_URL"},
	}

	pathFlag = &cli.StringFlag{
		Name:  "path",
		Usage: "Path to migrations directory",
		Value: "migrations",
	}

	fileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "Pipeline artifact to publish",
		Value: pipeline.DefaultArtifactPath,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Fatal("migrate failed", "error", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "migrate",
		Usage:           "Manage the homeloan database schema and published pipelines",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			databaseFlag,
			pathFlag,
		},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: cmdUp,
			},
			{
				Name:   "down",
				Usage:  "Roll back all migrations",
				Action: cmdDown,
			},
			{
				Name:   "version",
				Usage:  "Print the current schema version",
				Action: cmdVersion,
			},
			{
				Name:      "force",
				Usage:     "Set the schema version without running migrations",
				ArgsUsage: "<version>",
				Action:    cmdForce,
			},
			{
				Name:   "publish",
				Usage:  "Validate a pipeline artifact and make it the active one",
				Flags:  []cli.Flag{fileFlag},
				Action: cmdPublish,
			},
			{
				Name:   "list",
				Usage:  "List published pipeline artifacts",
				Action: cmdList,
			},
		},
	}
}

func databaseURL(c *cli.Context) (string, error) {
	url := c.String(databaseFlag.Name)
	if url == "" {
		return "", errors.New("database URL is required. Use --database flag or DATABASE_URL environment variable")
	}
	return url, nil
}

func newMigrator(c *cli.Context) (*migrate.Migrate, error) {
	url, err := databaseURL(c)
	if err != nil {
		return nil, err
	}

	migrationsPath := c.String(pathFlag.Name)
	logger.Info("connecting to database", "migrations", migrationsPath)

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), url)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func cmdUp(c *cli.Context) error {
	m, err := newMigrator(c)
	if err != nil {
		return err
	}
	defer m.Close()

	logger.Info("running migrations up")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run, database is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("migrations completed")
	return nil
}

func cmdDown(c *cli.Context) error {
	m, err := newMigrator(c)
	if err != nil {
		return err
	}
	defer m.Close()

	logger.Info("rolling back migrations")
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	logger.Info("rollback completed")
	return nil
}

func cmdVersion(c *cli.Context) error {
	m, err := newMigrator(c)
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(c.App.Writer, "no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func cmdForce(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("force requires a version number: migrate force <version>")
	}
	version, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid version number: %w", err)
	}

	m, err := newMigrator(c)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Force(version); err != nil {
		return fmt.Errorf("failed to force version: %w", err)
	}
	logger.Info("forced schema version", "version", version)
	return nil
}

func openDB(c *cli.Context) (*sql.DB, error) {
	url, err := databaseURL(c)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func cmdPublish(c *cli.Context) error {
	path, err := pipeline.ResolvePath(c.String(fileFlag.Name))
	if err != nil {
		return err
	}
	document, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	rec, err := pipeline.NewPostgresSource(db).Publish(ctx, document)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "published %s (%s) as the active pipeline\n", rec.Name, rec.ID)
	return nil
}

func cmdList(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := pipeline.NewPostgresSource(db).List(c.Context)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tACTIVE\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s\n", r.ID, r.Name, r.FormatVersion, r.Active, r.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
