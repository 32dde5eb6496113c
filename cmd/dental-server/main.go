package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dental/dental/internal/config"
	"github.com/dental/dental/internal/domain/chart"
	"github.com/dental/dental/internal/domain/reference"
	"github.com/dental/dental/internal/domain/tooth"
	"github.com/dental/dental/internal/platform/db"
	"github.com/dental/dental/pkg/notation"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dental-server",
		Short:        "Dental charting API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(chartCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

// setup loads configuration and returns a context carrying the logger.
func setup() (*config.Config, zerolog.Logger, context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger := newLogger(cfg)
	return cfg, logger, logger.WithContext(context.Background()), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the charting API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
		schema, _ := cmd.Flags().GetString("schema")
		dir, _ := cmd.Flags().GetString("dir")

		cfg, _, ctx, err := setup()
		if err != nil {
			return err
		}
		if !cfg.UsesPostgres() {
			return fmt.Errorf("migrations need STORE_DRIVER=%s", config.DriverPostgres)
		}
		if dir == "" {
			dir = cfg.MigrationsDir
		}
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, dir, schema), schema)
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Print(formatMigrationStatus(statuses))
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
		c.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
		cmd.AddCommand(c)
	}
	return cmd
}

func formatMigrationStatus(statuses []db.MigrationStatus) string {
	out := fmt.Sprintf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	out += "---------- ---------------------------------------- ---------- --------------------\n"
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		out += fmt.Sprintf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
	return out
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load conditions and procedures from the reference data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, ctx, err := setup()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("seed needs STORE_DRIVER=%s; the memory store seeds itself at startup", config.DriverPostgres)
			}
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				file = cfg.ReferenceDataFile
			}
			ds, err := reference.LoadFile(file)
			if err != nil {
				return err
			}

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()
			if err := reference.Seed(ctx, st.tx, st.references, ds); err != nil {
				return err
			}
			logger.Info().
				Str("file", file).
				Int("conditions", len(ds.Conditions)).
				Int("procedures", len(ds.Procedures)).
				Msg("reference data seeded")
			return nil
		},
	}
	cmd.Flags().String("file", "", "Reference data YAML file (default REFERENCE_DATA_FILE)")
	return cmd
}

func chartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Inspect and edit a patient's tooth chart",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Render the current chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			scheme, err := notation.ParseScheme(mustString(cmd, "notation"))
			if err != nil {
				return err
			}
			env, err := openChart(cmd)
			if err != nil {
				return err
			}
			defer env.close()
			fmt.Fprintln(cmd.OutOrStdout(), renderChart(env.session, scheme, time.Now()))
			return nil
		},
	}
	showCmd.Flags().String("notation", string(notation.Universal), "Numbering scheme: universal or palmer")

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Select a tooth, apply edits and commit them",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openChart(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			n, _ := cmd.Flags().GetInt("tooth")
			edit := chartEdit{}
			if cmd.Flags().Changed("condition") {
				c, _ := cmd.Flags().GetInt("condition")
				edit.setCondition, edit.condition = true, c
			}
			if cmd.Flags().Changed("surfaces") {
				edit.setSurfaces, edit.surfaces = true, mustString(cmd, "surfaces")
			}
			if cmd.Flags().Changed("notes") {
				edit.setNotes, edit.notes = true, mustString(cmd, "notes")
			}
			s, err := edit.apply(env.session, n)
			if err != nil {
				return err
			}
			if s, err = s.Commit(env.ctx, env.backend, mustString(cmd, "actor")); err != nil {
				return err
			}
			hist, err := env.svcs.teeth.RecentHistory(env.ctx, s.Patient().ID, n, 5)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderChart(s, notation.Universal, time.Now()))
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(hist, time.Now()))
			return nil
		},
	}
	setCmd.Flags().Int("tooth", 0, "Tooth number (1-32)")
	setCmd.Flags().Int("condition", 0, "Condition id; 0 clears the condition")
	setCmd.Flags().String("surfaces", "", "Surfaces over MODBL in upper case, e.g. MOD")
	setCmd.Flags().String("notes", "", "Clinical notes")
	setCmd.Flags().String("actor", "", "Who made the change (default DEFAULT_ACTOR)")
	_ = setCmd.MarkFlagRequired("tooth")

	for _, c := range []*cobra.Command{showCmd, setCmd} {
		c.Flags().String("patient", "", "Patient id")
		_ = c.MarkFlagRequired("patient")
		cmd.AddCommand(c)
	}
	return cmd
}

// chartEnv is an open store plus a session loaded for --patient.
type chartEnv struct {
	ctx     context.Context
	session chart.Session
	backend chart.Backend
	svcs    *services
	close   func()
}

func openChart(cmd *cobra.Command) (*chartEnv, error) {
	id, err := uuid.Parse(mustString(cmd, "patient"))
	if err != nil {
		return nil, fmt.Errorf("--patient must be a patient id: %w", err)
	}
	cfg, _, ctx, err := setup()
	if err != nil {
		return nil, err
	}
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svcs := newServices(cfg, st)
	backend := svcs.chartBackend()
	s, err := chart.New().LoadPatient(ctx, backend, id)
	if err != nil {
		st.close()
		return nil, err
	}
	return &chartEnv{ctx: ctx, session: s, backend: backend, svcs: svcs, close: st.close}, nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

// chartEdit is the set of changes requested on the command line. Fields left
// unset keep the tooth's current values.
type chartEdit struct {
	setCondition bool
	condition    int
	setSurfaces  bool
	surfaces     string
	setNotes     bool
	notes        string
}

func (e chartEdit) apply(s chart.Session, n int) (chart.Session, error) {
	s, err := s.SelectTooth(n)
	if err != nil {
		return s, err
	}
	if e.setCondition {
		var id *int
		if e.condition != 0 {
			id = &e.condition
		}
		if s, err = s.SetCondition(id); err != nil {
			return s, err
		}
	}
	if e.setSurfaces {
		want, err := tooth.ParseSurfaces(e.surfaces)
		if err != nil {
			return s, err
		}
		for _, surface := range tooth.AllSurfaces() {
			if s.Pending().Surfaces.Has(surface) != want.Has(surface) {
				if s, err = s.ToggleSurface(surface); err != nil {
					return s, err
				}
			}
		}
	}
	if e.setNotes {
		if s, err = s.SetNotes(e.notes); err != nil {
			return s, err
		}
	}
	return s, nil
}

func runServer() error {
	cfg, logger, ctx, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer st.close()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("store ready")

	e := newServer(cfg, logger, st, newServices(cfg, st))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
