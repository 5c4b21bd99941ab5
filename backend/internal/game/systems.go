package game

import (
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"x-ocean/backend/internal/ocean"
	"x-ocean/backend/internal/physics"
	"x-ocean/backend/internal/telemetry"
)

// Приоритеты систем задают порядок кадра
const (
	PriorityOceanRebuild   = 0
	PriorityBuoyancy       = 10
	PriorityOriginTracking = 20
	PriorityWaveClock      = 30
	PrioritySeaStateDrift  = 40
	PriorityBroadcast      = 50
	PriorityTelemetry      = 60
)

// Самый длинный шаг физики; более длинные тики (после паузы) обрезаются
const maxPhysicsStep = 100 * time.Millisecond

// OceanRebuildSystem выполняет отложенные пересоздание и перенастройку тайлов
type OceanRebuildSystem struct {
	name     string
	priority int
	ocean    *ocean.Ocean
	logger   *log.Logger
}

// NewOceanRebuildSystem создает систему перестроения океана
func NewOceanRebuildSystem(o *ocean.Ocean, logger *log.Logger) *OceanRebuildSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &OceanRebuildSystem{
		name:     "OceanRebuildSystem",
		priority: PriorityOceanRebuild,
		ocean:    o,
		logger:   logger,
	}
}

// Update применяет накопленные за кадр запросы одним перестроением
func (s *OceanRebuildSystem) Update(deltaTime time.Duration) error {
	s.ocean.Flush()
	return nil
}

func (s *OceanRebuildSystem) GetName() string  { return s.name }
func (s *OceanRebuildSystem) GetPriority() int { return s.priority }

// BuoyancySystem считает плавучесть и интегрирует тела по подшагам
type BuoyancySystem struct {
	name       string
	priority   int
	scene      *Scene
	gameTicker *GameTicker
	telemetry  *telemetry.TelemetryManager
	logger     *log.Logger
}

// NewBuoyancySystem создает систему плавучести. telemetry может быть nil
func NewBuoyancySystem(scene *Scene, gameTicker *GameTicker, tm *telemetry.TelemetryManager, logger *log.Logger) *BuoyancySystem {
	if logger == nil {
		logger = log.Default()
	}
	return &BuoyancySystem{
		name:       "BuoyancySystem",
		priority:   PriorityBuoyancy,
		scene:      scene,
		gameTicker: gameTicker,
		telemetry:  tm,
		logger:     logger,
	}
}

// Update выполняет физические подшаги для всех судов
func (s *BuoyancySystem) Update(deltaTime time.Duration) error {
	if deltaTime > maxPhysicsStep {
		deltaTime = maxPhysicsStep
	}
	if deltaTime <= 0 {
		return nil
	}

	world := physics.GetWorldConfig()
	dt := deltaTime.Seconds() / float64(world.Substeps)
	vessels := s.scene.Vessels()

	for i := 0; i < world.Substeps; i++ {
		for _, v := range vessels {
			v.Buoyant.Step(dt)
			v.Body.Integrate(dt, world.Gravity)
		}
	}

	tick := s.gameTicker.GetTickCount()
	states := make([]telemetry.BodyState, 0, len(vessels))
	for _, v := range vessels {
		state := v.State(tick)
		states = append(states, state)
		if s.telemetry != nil {
			s.telemetry.RecordBody(state)
		}
	}
	s.scene.publish(states)

	return nil
}

func (s *BuoyancySystem) GetName() string  { return s.name }
func (s *BuoyancySystem) GetPriority() int { return s.priority }

// OriginTrackingSystem держит отслеживаемое судно в центральном тайле
type OriginTrackingSystem struct {
	name     string
	priority int
	scene    *Scene
	logger   *log.Logger
}

// NewOriginTrackingSystem создает систему плавающего начала координат
func NewOriginTrackingSystem(scene *Scene, logger *log.Logger) *OriginTrackingSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &OriginTrackingSystem{
		name:     "OriginTrackingSystem",
		priority: PriorityOriginTracking,
		scene:    scene,
		logger:   logger,
	}
}

// Update сдвигает сетку, если судно покинуло тайл (0,0)
func (s *OriginTrackingSystem) Update(deltaTime time.Duration) error {
	vessel, ok := s.scene.Tracked()
	if !ok {
		return nil
	}
	s.scene.Ocean().OnOriginChanged(vessel.Body.Position())
	return nil
}

func (s *OriginTrackingSystem) GetName() string  { return s.name }
func (s *OriginTrackingSystem) GetPriority() int { return s.priority }

// WaveClockSystem продвигает время волн один раз за кадр
type WaveClockSystem struct {
	name     string
	priority int
	ocean    *ocean.Ocean
}

// NewWaveClockSystem создает систему часов волн
func NewWaveClockSystem(o *ocean.Ocean) *WaveClockSystem {
	return &WaveClockSystem{
		name:     "WaveClockSystem",
		priority: PriorityWaveClock,
		ocean:    o,
	}
}

func (s *WaveClockSystem) Update(deltaTime time.Duration) error {
	s.ocean.Advance(deltaTime.Seconds())
	return nil
}

func (s *WaveClockSystem) GetName() string  { return s.name }
func (s *WaveClockSystem) GetPriority() int { return s.priority }

// SeaStateDriftSystem периодически заменяет одну волну набора
type SeaStateDriftSystem struct {
	name     string
	priority int
	ocean    *ocean.Ocean
	interval time.Duration
	elapsed  time.Duration
	logger   *log.Logger
}

// NewSeaStateDriftSystem создает систему дрейфа состояния моря. interval <= 0 отключает дрейф
func NewSeaStateDriftSystem(o *ocean.Ocean, interval time.Duration, logger *log.Logger) *SeaStateDriftSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &SeaStateDriftSystem{
		name:     "SeaStateDriftSystem",
		priority: PrioritySeaStateDrift,
		ocean:    o,
		interval: interval,
		logger:   logger,
	}
}

func (s *SeaStateDriftSystem) Update(deltaTime time.Duration) error {
	if s.interval <= 0 {
		return nil
	}

	s.elapsed += deltaTime
	for s.elapsed >= s.interval {
		s.elapsed -= s.interval
		if index := s.ocean.DriftSeaState(); index >= 0 {
			s.logger.Printf("[SeaStateDrift] Пересэмплирована волна %d", index)
		}
	}
	return nil
}

func (s *SeaStateDriftSystem) GetName() string  { return s.name }
func (s *SeaStateDriftSystem) GetPriority() int { return s.priority }

// StateFrame кадр состояния для клиентов
type StateFrame struct {
	Type         string                `json:"type"`
	Tick         uint64                `json:"tick"`
	WaveTime     float64               `json:"wave_time"`
	OriginTile   ocean.TileIndex       `json:"origin_tile"`
	GridPosition mgl64.Vec3            `json:"grid_position"`
	Tiles        int                   `json:"tiles"`
	Bodies       []telemetry.BodyState `json:"bodies"`
	Timestamp    int64                 `json:"timestamp"`
}

// StateBroadcaster интерфейс для отправки кадров состояния клиентам
type StateBroadcaster interface {
	BroadcastState(frame StateFrame) error
}

// BuildStateFrame собирает кадр из опубликованного состояния сцены
func BuildStateFrame(scene *Scene, tick uint64) StateFrame {
	o := scene.Ocean()
	return StateFrame{
		Type:         "state",
		Tick:         tick,
		WaveTime:     o.WaveTime(),
		OriginTile:   o.OriginTile(),
		GridPosition: o.Position(),
		Tiles:        o.Stats().Tiles,
		Bodies:       scene.States(),
		Timestamp:    time.Now().UnixMilli(),
	}
}

// BroadcastSystem рассылает кадры состояния с ограничением частоты
type BroadcastSystem struct {
	name        string
	priority    int
	scene       *Scene
	gameTicker  *GameTicker
	broadcaster StateBroadcaster
	limiter     *rate.Limiter
	logger      *log.Logger
}

// NewBroadcastSystem создает систему рассылки не чаще perSecond кадров в секунду
func NewBroadcastSystem(scene *Scene, gameTicker *GameTicker, broadcaster StateBroadcaster, perSecond float64, logger *log.Logger) *BroadcastSystem {
	if logger == nil {
		logger = log.Default()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &BroadcastSystem{
		name:        "BroadcastSystem",
		priority:    PriorityBroadcast,
		scene:       scene,
		gameTicker:  gameTicker,
		broadcaster: broadcaster,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
	}
}

// SetBroadcaster устанавливает получателя кадров
func (s *BroadcastSystem) SetBroadcaster(broadcaster StateBroadcaster) {
	s.broadcaster = broadcaster
}

func (s *BroadcastSystem) Update(deltaTime time.Duration) error {
	if s.broadcaster == nil || !s.limiter.Allow() {
		return nil
	}
	return s.broadcaster.BroadcastState(BuildStateFrame(s.scene, s.gameTicker.GetTickCount()))
}

func (s *BroadcastSystem) GetName() string  { return s.name }
func (s *BroadcastSystem) GetPriority() int { return s.priority }

// TelemetrySystem записывает счетчики океана и печатает сводку
type TelemetrySystem struct {
	name      string
	priority  int
	ocean     *ocean.Ocean
	telemetry *telemetry.TelemetryManager
}

// NewTelemetrySystem создает систему телеметрии
func NewTelemetrySystem(o *ocean.Ocean, tm *telemetry.TelemetryManager) *TelemetrySystem {
	return &TelemetrySystem{
		name:      "TelemetrySystem",
		priority:  PriorityTelemetry,
		ocean:     o,
		telemetry: tm,
	}
}

func (s *TelemetrySystem) Update(deltaTime time.Duration) error {
	stats := s.ocean.Stats()
	origin := s.ocean.OriginTile()
	s.telemetry.RecordOcean(telemetry.OceanState{
		WaveTime:      s.ocean.WaveTime(),
		Tiles:         stats.Tiles,
		FlatTiles:     stats.FlatTiles,
		MissedLookups: stats.MissedLookups,
		Recenters:     stats.Recenters,
		OriginX:       origin.X,
		OriginZ:       origin.Z,
	})
	s.telemetry.PrintSummary()
	return nil
}

func (s *TelemetrySystem) GetName() string  { return s.name }
func (s *TelemetrySystem) GetPriority() int { return s.priority }
