package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-memdb"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/dental/dental/internal/config"
	"github.com/dental/dental/internal/domain/chart"
	"github.com/dental/dental/internal/domain/patient"
	"github.com/dental/dental/internal/domain/reference"
	"github.com/dental/dental/internal/domain/tooth"
	"github.com/dental/dental/internal/domain/treatment"
	"github.com/dental/dental/internal/platform/db"
	"github.com/dental/dental/internal/platform/memstore"
	"github.com/dental/dental/internal/platform/middleware"
)

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// stores holds one backend's repositories.
type stores struct {
	patients   patient.Repository
	references reference.Repository
	records    tooth.RecordRepository
	history    tooth.HistoryRepository
	plans      treatment.PlanRepository
	items      treatment.ItemRepository
	tx         transactor
	pinger     db.Pinger
	close      func()
}

func memTables() []*memdb.TableSchema {
	var tables []*memdb.TableSchema
	tables = append(tables, patient.Tables()...)
	tables = append(tables, reference.Tables()...)
	tables = append(tables, tooth.Tables()...)
	tables = append(tables, treatment.Tables()...)
	return tables
}

// openStores connects the configured backend. The memory backend is seeded
// from the reference data file since it starts empty.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if !cfg.UsesPostgres() {
		store, err := memstore.New(memTables()...)
		if err != nil {
			return nil, fmt.Errorf("create memory store: %w", err)
		}
		st := &stores{
			patients:   patient.NewRepoMem(store),
			references: reference.NewRepoMem(store),
			records:    tooth.NewRecordRepoMem(store),
			history:    tooth.NewHistoryRepoMem(store),
			plans:      treatment.NewPlanRepoMem(store),
			items:      treatment.NewItemRepoMem(store),
			tx:         store,
			pinger:     store,
			close:      func() {},
		}
		ds, err := reference.LoadFile(cfg.ReferenceDataFile)
		if err != nil {
			return nil, err
		}
		if err := reference.Seed(ctx, store, st.references, ds); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		zerolog.Ctx(ctx).Info().
			Int("conditions", len(ds.Conditions)).
			Int("procedures", len(ds.Procedures)).
			Msg("memory store seeded")
		return st, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, err
	}
	return &stores{
		patients:   patient.NewRepoPG(pool),
		references: reference.NewRepoPG(pool),
		records:    tooth.NewRecordRepoPG(pool),
		history:    tooth.NewHistoryRepoPG(pool),
		plans:      treatment.NewPlanRepoPG(pool),
		items:      treatment.NewItemRepoPG(pool),
		tx:         db.NewTransactor(pool),
		pinger:     pool,
		close:      pool.Close,
	}, nil
}

type services struct {
	patients   *patient.Service
	references *reference.Service
	teeth      *tooth.Service
	plans      *treatment.Service
}

func newServices(cfg *config.Config, st *stores) *services {
	patients := patient.NewService(st.patients)
	refs := reference.NewService(st.references)
	teeth := tooth.NewService(st.records, st.history, st.tx, patients, refs)
	teeth.SetDefaultActor(cfg.DefaultActor)
	teeth.SetHistoryLimit(cfg.HistoryLimit)
	return &services{
		patients:   patients,
		references: refs,
		teeth:      teeth,
		plans:      treatment.NewService(st.plans, st.items, st.tx, patients, refs),
	}
}

func (s *services) chartBackend() chart.Backend {
	return chart.NewBackend(s.patients, s.teeth, s.references)
}

// newServer builds the echo instance with middleware and every route.
func newServer(cfg *config.Config, logger zerolog.Logger, st *stores, svcs *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(cfg.StoreDriver, st.pinger))

	apiV1 := e.Group("/api/v1")
	cacheCfg := middleware.DefaultCacheConfig()
	cacheCfg.MaxAge = cfg.CacheMaxAge
	static := apiV1.Group("", middleware.ETag(cacheCfg))

	patient.NewHandler(svcs.patients).RegisterRoutes(apiV1)
	reference.NewHandler(svcs.references).RegisterRoutes(static)
	tooth.NewHandler(svcs.teeth).RegisterRoutes(apiV1, static)
	treatment.NewHandler(svcs.plans).RegisterRoutes(apiV1)

	return e
}
