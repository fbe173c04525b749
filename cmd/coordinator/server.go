package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/briarpatch/jeopardy-coordinator/internal/audit"
	"github.com/briarpatch/jeopardy-coordinator/internal/buzzer"
	"github.com/briarpatch/jeopardy-coordinator/internal/catalog"
	"github.com/briarpatch/jeopardy-coordinator/internal/coordlog"
	"github.com/briarpatch/jeopardy-coordinator/internal/durable"
	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral/memstore"
	"github.com/briarpatch/jeopardy-coordinator/internal/gateway"
	"github.com/briarpatch/jeopardy-coordinator/internal/keylock"
	"github.com/briarpatch/jeopardy-coordinator/internal/roundengine"
)

// serverDeps holds every collaborator ServePage's router needs, built
// once at startup per the teacher's one-process-one-wiring-pass shape
// (the teacher's ServePage builds its GameManager inline; this spec has
// enough collaborators that pulling the wiring into its own function
// keeps ServePage focused on HTTP concerns).
type serverDeps struct {
	engine  *roundengine.Engine
	durable durable.Store
	gateway *gateway.Manager
	audit   *audit.Writer
	log     *coordlog.Logger
}

// buildServer wires either the production Redis/Postgres stack or, when
// --dev-memory-stores is set, the in-memory fallbacks the test suites
// already exercise, behind the same ephemeral.Store/durable.Store/
// catalog.Catalog interfaces either way.
func buildServer(ctx context.Context, cfg *Config) (*serverDeps, error) {
	log := coordlog.New(cfg.verbose)

	var eph ephemeral.Store
	var durStore durable.Store
	var cat catalog.Catalog

	if cfg.devMemoryStores {
		eph = memstore.New()

		db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open dev sqlite store: %w", err)
		}
		gs := durable.NewGormStore(db)
		if err := gs.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate dev sqlite store: %w", err)
		}
		durStore = gs
		// Dev mode carries no episode ingest pipeline (out of scope, see
		// §1): this catalog starts empty, and Episode/Clue lookups will
		// fail until a caller seeds one through roundengine's test paths.
		cat = catalog.NewMemCatalog()
	} else {
		pool := ephemeral.NewRedisPool(cfg.redisAddr, cfg.redisPoolSize)
		eph = ephemeral.NewRedisStore(pool)

		db, err := gorm.Open(postgres.Open(cfg.postgresDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		gs := durable.NewGormStore(db)
		if err := gs.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		durStore = gs
		cat = catalog.NewGormCatalog(db)
	}

	arb := buzzer.New(eph, cfg.buzzCooldown, cfg.liveStateTTL)
	auditWriter := audit.New(durStore, log, 256)
	locks := keylock.NewRegistry()

	engine := roundengine.New(cat, eph, durStore, arb, auditWriter, locks, log, roundengine.Config{
		LiveStateTTL:   cfg.liveStateTTL,
		FJTimerSeconds: int(cfg.fjTimer / time.Second),
	})

	mgr := gateway.NewManager(engine, durStore, log)

	return &serverDeps{
		engine:  engine,
		durable: durStore,
		gateway: mgr,
		audit:   auditWriter,
		log:     log,
	}, nil
}
