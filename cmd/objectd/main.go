package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/objectd/internal/config"
	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/core/event"
	coresys "github.com/l1jgo/objectd/internal/core/system"
	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/loot"
	"github.com/l1jgo/objectd/internal/messaging"
	"github.com/l1jgo/objectd/internal/persist"
	"github.com/l1jgo/objectd/internal/scripting"
	"github.com/l1jgo/objectd/internal/spatial"
	"github.com/l1jgo/objectd/internal/system"
	"github.com/l1jgo/objectd/internal/world"
)

const (
	interactQueueSize  = 4096
	maxRequestsPerTick = 512
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// content is every YAML table the objects are built from.
type content struct {
	templates *data.ObjectTable
	spawns    *data.SpawnTable
	groups    *data.SpawnGroupTable
	pools     *data.PoolTable
	links     *data.LinkedRespawnTable
	effects   *data.EffectTable
	loot      *data.LootTable
}

func loadContent(cfg *config.Config) (*content, error) {
	c := &content{}
	var err error
	if c.templates, err = data.LoadObjectTable(cfg.Content.Templates); err != nil {
		return nil, err
	}
	printStat("object templates", c.templates.Count())
	if c.spawns, err = data.LoadSpawnTable(cfg.Content.Spawns); err != nil {
		return nil, err
	}
	printStat("seed spawns", c.spawns.Count())
	if c.groups, err = data.LoadSpawnGroupTable(cfg.Content.SpawnGroups, cfg.Respawn.CompatDefault); err != nil {
		return nil, err
	}
	printStat("spawn groups", c.groups.Count())
	if c.pools, err = data.LoadPoolTable(cfg.Content.Pools); err != nil {
		return nil, err
	}
	printStat("pools", c.pools.Count())
	if c.links, err = data.LoadLinkedRespawnTable(cfg.Content.LinkedSpawns); err != nil {
		return nil, err
	}
	printStat("linked respawns", c.links.Count())
	if c.effects, err = data.LoadEffectTable(cfg.Content.Effects); err != nil {
		return nil, err
	}
	printStat("effects", c.effects.Count())
	if c.loot, err = data.LoadLootTable(cfg.Content.Loot); err != nil {
		return nil, err
	}
	printStat("loot tables", c.loot.Count())
	return c, nil
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("OBJECTD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log = log.With(zap.String("server", cfg.Server.Name), zap.Int("server_id", cfg.Server.ID))

	// 3. Content
	printSection("content")
	c, err := loadContent(cfg)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	fmt.Println()

	// 4. Database, migrations, seed and load
	printSection("database")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")

	spawnRepo := persist.NewSpawnRepo(db)
	respawnRepo := persist.NewRespawnRepo(db)

	seeded, err := spawnRepo.Seed(ctx, c.spawns.All())
	if err != nil {
		return fmt.Errorf("seed spawns: %w", err)
	}
	printStat("spawns seeded", seeded)

	var recs []data.SpawnRecord
	for _, mapID := range cfg.Server.Maps {
		mapRecs, err := spawnRepo.LoadByMap(ctx, mapID)
		if err != nil {
			return err
		}
		recs = append(recs, mapRecs...)
	}
	printStat("spawns loaded", len(recs))

	ledgerRows, err := respawnRepo.LoadAll(ctx)
	if err != nil {
		return err
	}
	printStat("respawn times", len(ledgerRows))
	fmt.Println()

	// 5. Write-behind queue
	writer := persist.NewWriter(db, cfg.Persist, log)
	go writer.Run()
	defer writer.Close()

	spawns := persist.NewSpawnStore(writer, recs)
	ledger := persist.NewRespawnLedger(writer, c.links, ledgerRows)

	// 6. Scripting
	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, c.effects, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua scripts loaded")

	// 7. Messaging
	var (
		conn messaging.Conn = messaging.LogConn{Log: log}
		nc   *nats.Conn
	)
	if cfg.Messaging.URL != "" {
		nc, err = messaging.Connect(cfg.Messaging, cfg.Server.Name, log)
		if err != nil {
			return err
		}
		defer messaging.Drain(nc, cfg.Messaging.FlushTimeout, log)
		conn = nc
		printOK("NATS connected")
	} else {
		log.Warn("no messaging url configured, publishing to the log")
	}

	// 8. World services
	actors := world.NewState()
	luaEngine.SetActors(actors)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	clock := world.SystemClock{}
	ids := ecs.NewWorld()
	bus := event.NewBus()
	subscribeEvents(bus, log)

	shards := system.NewShards()
	pools := system.NewPoolManager(system.PoolDeps{
		Pools:  c.pools,
		Shards: shards,
		Spawns: spawns,
		Ledger: ledger,
		Clock:  clock,
		Rand:   rng,
		Log:    log,
	})
	svc := &world.Services{
		Log:       log,
		Clock:     clock,
		Rand:      rng,
		IDs:       ids,
		Bus:       bus,
		Tuning:    tuning(cfg.Respawn),
		Templates: c.templates,
		Groups:    c.groups,
		Links:     c.links,
		Kinds:     world.NewKindRegistry(),
		Spawns:    spawns,
		Ledger:    ledger,
		Effects:   luaEngine,
		Loot:      loot.NewFactory(c.loot, rng, actors, log),
		AI:        luaEngine,
		Collision: spatial.NewCollisionIndex(log),
		Publisher: messaging.NewNatsPublisher(conn, cfg.Messaging.SubjectPrefix, log),
		Actors:    actors,
		Interact:  messaging.NewNatsInteractions(conn, cfg.Messaging.SubjectPrefix, log),
		Pools:     pools,
	}

	printSection("maps")
	for _, mapID := range cfg.Server.Maps {
		m := world.NewMap(mapID, svc)
		shards.Add(m)
		printStat(fmt.Sprintf("map %d objects", mapID), m.LoadSpawns(spawns.ForMap(mapID)))
	}
	printStat("pooled objects", pools.SpawnInitial(clock.Now()))
	fmt.Println()

	// 9. Systems
	runner := coresys.NewRunner(log)
	input := system.NewInteractionSystem(shards, actors, interactQueueSize, maxRequestsPerTick, log)
	persistSys := system.NewPersistenceSystem(writer, respawnRepo, c.links, clock, cfg.Tick.SaveInterval, cfg.Persist.WriteTimeout, log)
	runner.Register(input)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewObjectSystem(shards, log))
	runner.Register(system.NewRespawnSystem(shards, pools, clock, cfg.Tick.RespawnPoll, log))
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(ids, log))

	if nc != nil {
		sub, err := messaging.Subscribe(nc, messaging.InteractSubject(cfg.Messaging.SubjectPrefix), input.HandleMessage)
		if err != nil {
			return err
		}
		defer sub.Unsubscribe()
	}

	// 10. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Tick.Rate)
	defer ticker.Stop()

	log.Info("object service ready",
		zap.Int("maps", shards.Count()),
		zap.Duration("tick", cfg.Tick.Rate),
	)

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Tick.Rate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			persistSys.Wait()
			log.Info("object service stopped", zap.Int("pending_writes", writer.Pending()))
			return nil
		}
	}
}

func tuning(r config.RespawnConfig) world.Tuning {
	return world.Tuning{
		LinkedJitterMin: r.LinkedJitterMin,
		LinkedJitterMax: r.LinkedJitterMax,
		SelfLinkDelay:   r.SelfLinkDelay,
		BobberReady:     r.BobberReady,
		BombArmDelay:    r.BombArmDelay,
		TrapCooldown:    r.TrapCooldown,
	}
}

// subscribeEvents logs the domain events raised on the bus.
func subscribeEvents(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(ev event.CapturePointChanged) {
		log.Info("capture point changed",
			zap.Uint32("entry", ev.Entry),
			zap.Uint32("map_id", ev.MapID),
			zap.Uint8("state", ev.State),
			zap.Uint8("team", ev.Team),
		)
	})
	event.Subscribe(bus, func(ev event.BuildingStateChanged) {
		log.Info("building state changed",
			zap.Uint32("entry", ev.Entry),
			zap.Uint32("map_id", ev.MapID),
			zap.Uint8("state", ev.State),
		)
	})
	event.Subscribe(bus, func(ev event.ObjectRemoved) {
		log.Debug("object removed",
			zap.Uint64("spawn_id", ev.SpawnID),
			zap.Uint32("entry", ev.Entry),
			zap.Bool("deleted", ev.Deleted),
		)
	})
	event.Subscribe(bus, func(ev event.UseCreditGranted) {
		log.Debug("use credit granted",
			zap.Uint32("entry", ev.Entry),
			zap.Uint64("actor", ev.ActorID),
		)
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
