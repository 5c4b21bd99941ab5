package telemetry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyState снимок состояния плавучего тела на одном тике
type BodyState struct {
	Timestamp       int64      `json:"timestamp"` // Время в миллисекундах
	Tick            uint64     `json:"tick"`
	BodyID          string     `json:"body_id"`
	Position        mgl64.Vec3 `json:"position"`
	Rotation        [4]float64 `json:"rotation"` // w, x, y, z
	Velocity        mgl64.Vec3 `json:"velocity"`
	AngularVelocity mgl64.Vec3 `json:"angular_velocity"`
	Speed           float64    `json:"speed"`
	DepthInWater    float64    `json:"depth_in_water"`
	SubmergedPoints int        `json:"submerged_points"`
	BuoyantForce    mgl64.Vec3 `json:"buoyant_force"`
}

// OceanState счетчики океана на момент записи
type OceanState struct {
	Timestamp     int64   `json:"timestamp"`
	WaveTime      float64 `json:"wave_time"`
	Tiles         int     `json:"tiles"`
	FlatTiles     int     `json:"flat_tiles"`
	MissedLookups uint64  `json:"missed_lookups"`
	Recenters     uint64  `json:"recenters"`
	OriginX       int     `json:"origin_x"`
	OriginZ       int     `json:"origin_z"`
}

// Snapshot содержимое телеметрии для выгрузки
type Snapshot struct {
	Bodies []BodyState `json:"bodies"`
	Ocean  *OceanState `json:"ocean,omitempty"`
}

// TelemetryManager хранит последние состояния тел в ограниченном буфере
type TelemetryManager struct {
	enabled    bool
	data       []BodyState
	ocean      *OceanState
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики для статистики
	counters      map[string]int
	lastPrint     time.Time
	printInterval time.Duration

	logger *log.Logger
}

// NewTelemetryManager создает новый менеджер телеметрии
func NewTelemetryManager(maxEntries int, logger *log.Logger) *TelemetryManager {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	if logger == nil {
		logger = log.Default()
	}

	return &TelemetryManager{
		enabled:       true,
		data:          make([]BodyState, 0, maxEntries),
		maxEntries:    maxEntries,
		counters:      make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 5 * time.Second,
		logger:        logger,
	}
}

// SetPrintInterval задает период вывода сводки
func (tm *TelemetryManager) SetPrintInterval(interval time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.printInterval = interval
}

// RecordBody записывает состояние тела
func (tm *TelemetryManager) RecordBody(state BodyState) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	if state.Timestamp == 0 {
		state.Timestamp = time.Now().UnixMilli()
	}
	state.Speed = state.Velocity.Len()

	tm.data = append(tm.data, state)

	// Ограничиваем размер буфера
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[len(tm.data)-tm.maxEntries:]
	}

	tm.counters["body_"+state.BodyID]++
	if state.SubmergedPoints == 0 {
		tm.counters["airborne_"+state.BodyID]++
	}
}

// RecordOcean сохраняет последние счетчики океана
func (tm *TelemetryManager) RecordOcean(state OceanState) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}
	if state.Timestamp == 0 {
		state.Timestamp = time.Now().UnixMilli()
	}
	tm.ocean = &state
	tm.counters["ocean"]++
}

// Latest последнее состояние каждого тела
func (tm *TelemetryManager) Latest() map[string]BodyState {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return tm.latestLocked()
}

func (tm *TelemetryManager) latestLocked() map[string]BodyState {
	latest := make(map[string]BodyState)
	for i := len(tm.data) - 1; i >= 0; i-- {
		entry := tm.data[i]
		if _, exists := latest[entry.BodyID]; !exists {
			latest[entry.BodyID] = entry
		}
	}
	return latest
}

// Len количество записей в буфере
func (tm *TelemetryManager) Len() int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return len(tm.data)
}

// PrintSummary выводит сводку телеметрии не чаще printInterval
func (tm *TelemetryManager) PrintSummary() bool {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return false
	}

	now := time.Now()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return false
	}

	tm.logger.Println("🔬 [Telemetry] ===== ТЕЛЕМЕТРИЯ ОКЕАНА =====")
	tm.logger.Printf("📊 [Telemetry] Всего записей: %d", len(tm.data))

	keys := make([]string, 0, len(tm.counters))
	for key := range tm.counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tm.logger.Printf("📈 [Telemetry] %s: %d", key, tm.counters[key])
	}

	if tm.ocean != nil {
		tm.logger.Printf("🌊 [Telemetry] Время волн %.2f, тайлов %d (плоских %d), промахов %d, сдвигов начала %d, центр (%d, %d)",
			tm.ocean.WaveTime, tm.ocean.Tiles, tm.ocean.FlatTiles, tm.ocean.MissedLookups,
			tm.ocean.Recenters, tm.ocean.OriginX, tm.ocean.OriginZ)
	}

	latest := tm.latestLocked()
	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		data := latest[id]
		tm.logger.Printf("🚤 [Telemetry] Тело %s [%s]:", id, time.UnixMilli(data.Timestamp).Format("15:04:05.000"))
		tm.logger.Printf("   📍 Позиция: (%.2f, %.2f, %.2f)", data.Position.X(), data.Position.Y(), data.Position.Z())
		tm.logger.Printf("   🏃 Скорость: (%.2f, %.2f, %.2f) |%.2f|",
			data.Velocity.X(), data.Velocity.Y(), data.Velocity.Z(), data.Speed)
		tm.logger.Printf("   💧 Погружение: %.3f м, точек в воде: %d", data.DepthInWater, data.SubmergedPoints)
	}

	tm.counters = make(map[string]int)
	tm.lastPrint = now

	tm.logger.Println("🔬 [Telemetry] ================================")
	return true
}

// GetTelemetryJSON возвращает телеметрию в JSON формате
func (tm *TelemetryManager) GetTelemetryJSON() (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	jsonData, err := json.MarshalIndent(Snapshot{Bodies: tm.data, Ocean: tm.ocean}, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonData), nil
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Printf("🔬 [Telemetry] Телеметрия %s", map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// Clear очищает все данные телеметрии
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = tm.data[:0]
	tm.ocean = nil
	tm.counters = make(map[string]int)
	tm.logger.Println("🔬 [Telemetry] Данные телеметрии очищены")
}
