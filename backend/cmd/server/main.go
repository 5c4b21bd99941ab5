package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"x-ocean/backend/internal/game"
	"x-ocean/backend/internal/ocean"
	"x-ocean/backend/internal/physics"
	"x-ocean/backend/internal/telemetry"
	"x-ocean/backend/internal/transport/ws"
)

// fileConfig содержимое JSON-файла настроек; отсутствующие поля берутся по умолчанию
type fileConfig struct {
	Ocean    ocean.Config               `json:"ocean"`
	World    physics.WorldPhysicsConfig `json:"world"`
	Buoyancy physics.BuoyancyConfig     `json:"buoyancy"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Ocean:    ocean.DefaultConfig(),
		World:    physics.DefaultWorldConfig(),
		Buoyancy: physics.DefaultBuoyancyConfig(),
	}
}

func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	tps := flag.Int("tps", 60, "simulation ticks per second")
	seed := flag.Int64("seed", 0, "wave seed, 0 seeds from time")
	configPath := flag.String("config", "", "JSON config file")
	broadcastRate := flag.Float64("broadcast-rate", 20, "state frames per second sent to clients")
	driftInterval := flag.Duration("drift-interval", 10*time.Second, "interval between single-wave resamples, 0 disables drift")
	vessels := flag.Int("vessels", 3, "number of demo vessels")
	mass := flag.Float64("mass", 2400, "demo vessel mass, kg")
	flag.Parse()

	logger := log.New(os.Stdout, "[x-ocean] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Ошибка загрузки настроек: %v", err)
	}
	if *seed != 0 {
		cfg.Ocean.Seed = *seed
	}
	if err := cfg.Ocean.Validate(); err != nil {
		logger.Printf("[Main] ПРЕДУПРЕЖДЕНИЕ: настройки океана: %v", err)
	}
	physics.SetWorldConfig(cfg.World)

	sea := ocean.New(cfg.Ocean, logger)
	scene := game.NewScene(sea, logger)
	for i := 0; i < *vessels; i++ {
		position := mgl64.Vec3{float64(i) * 6, cfg.Ocean.SeaLevel + 1, 0}
		if _, err := scene.AddVessel(fmt.Sprintf("boat-%d", i), *mass, position, cfg.Buoyancy, nil); err != nil {
			logger.Fatalf("Ошибка создания судна: %v", err)
		}
	}

	tm := telemetry.NewTelemetryManager(1000, logger)
	ticker := game.NewGameTicker(*tps, logger)
	wsServer := ws.NewWSServer(scene, logger)

	ticker.RegisterSystem(game.NewOceanRebuildSystem(sea, logger))
	ticker.RegisterSystem(game.NewBuoyancySystem(scene, ticker, tm, logger))
	ticker.RegisterSystem(game.NewOriginTrackingSystem(scene, logger))
	ticker.RegisterSystem(game.NewWaveClockSystem(sea))
	ticker.RegisterSystem(game.NewSeaStateDriftSystem(sea, *driftInterval, logger))
	ticker.RegisterSystem(game.NewBroadcastSystem(scene, ticker, wsServer, *broadcastRate, logger))
	ticker.RegisterSystem(game.NewTelemetrySystem(sea, tm))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.HandleWS)
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		data, err := tm.GetTelemetryJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(data))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]interface{}{
			"ticker":  ticker.GetStats(),
			"systems": ticker.GetPerformanceMonitor().GetSystemsStats(),
			"ocean":   sea.Stats(),
			"clients": wsServer.ClientCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			logger.Printf("[Main] Ошибка отправки статистики: %v", err)
		}
	})

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ticker.Run(ctx)
	})

	g.Go(func() error {
		logger.Printf("[Main] Сервер запущен на %s (ws: /ws, телеметрия: /telemetry, статистика: /stats)", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Сервер остановлен с ошибкой: %v", err)
	}
	logger.Printf("[Main] Сервер остановлен, тиков выполнено: %d", ticker.GetTickCount())
}
