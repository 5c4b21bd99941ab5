package ocean

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"x-ocean/backend/internal/water"
)

// OriginListener получает сдвиг сетки и новый абсолютный индекс тайла начала координат
type OriginListener func(shift mgl64.Vec3, originTile TileIndex)

// Stats диагностические счетчики сетки
type Stats struct {
	Tiles         int    `json:"tiles"`
	FlatTiles     int    `json:"flat_tiles"`
	Spawns        uint64 `json:"spawns"`
	Reconfigures  uint64 `json:"reconfigures"`
	MissedLookups uint64 `json:"missed_lookups"`
	LODCacheHits  uint64 `json:"lod_cache_hits"`
	LODCacheMiss  uint64 `json:"lod_cache_misses"`
	Recenters     uint64 `json:"recenters"`
}

// Ocean менеджер сетки тайлов вокруг плавающего начала координат.
// Владеет временем жизни тайлов и общим набором волн; запросы смещения
// маршрутизируются в тайл, которому принадлежит мировая точка.
type Ocean struct {
	mu sync.RWMutex

	config  Config
	lod     *LinearLOD
	waveSet *water.WaveSet
	tiles   map[TileIndex]*Tile

	// Размер тайла построенной сетки; новый TileSize вступает в силу при пересоздании
	tileSize float64

	position   mgl64.Vec3 // Мировая позиция центра тайла (0,0); Y - уровень моря
	originTile TileIndex  // Абсолютный индекс тайла, который сейчас является (0,0)
	waveTime   float64

	// Отложенные перестройки: несколько изменений за кадр дают одну перестройку
	spawnRequested       bool
	reconfigureRequested bool
	regenerateRequested  bool

	listeners []OriginListener

	spawns        uint64
	reconfigures  uint64
	recenters     uint64
	missedLookups atomic.Uint64

	seed    int64
	logger  *log.Logger
	missLog rate.Sometimes
}

// New создает океан и сразу строит сетку тайлов
func New(config Config, logger *log.Logger) *Ocean {
	if logger == nil {
		logger = log.Default()
	}
	if err := config.Validate(); err != nil {
		logger.Printf("[Ocean] invalid configuration: %v", err)
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	o := &Ocean{
		config:   config,
		lod:      config.LOD(),
		tiles:    make(map[TileIndex]*Tile),
		position: mgl64.Vec3{0, config.SeaLevel, 0},
		seed:     seed,
		logger:   logger,
		missLog:  rate.Sometimes{First: 3, Interval: 2 * time.Second},
	}
	o.waveSet = water.NewWaveSet(config.WaveSetConfig(), o.nextSeed(), logger)
	o.spawnLocked()

	return o
}

// nextSeed выдает детерминированную последовательность seed для новых наборов волн
func (o *Ocean) nextSeed() int64 {
	o.seed++
	return o.seed
}

// === Конфигурация ===

// Config возвращает текущие настройки
func (o *Ocean) Config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.config
}

// Update изменяет настройки через fn и планирует нужную перестройку
func (o *Ocean) Update(fn func(c *Config)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.config
	fn(&next)
	o.applyLocked(next)
}

// ApplyConfig заменяет настройки целиком
func (o *Ocean) ApplyConfig(next Config) {
	o.Update(func(c *Config) { *c = next })
}

// TryUpdate изменяет настройки через fn под общей блокировкой и применяет
// их только если fn не вернула ошибку и результат проходит Validate.
// Возвращает действующие после вызова настройки.
func (o *Ocean) TryUpdate(fn func(c *Config) error) (Config, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.config
	if err := fn(&next); err != nil {
		return o.config, err
	}
	if err := next.Validate(); err != nil {
		return o.config, err
	}
	o.applyLocked(next)
	return o.config, nil
}

func (o *Ocean) applyLocked(next Config) {
	if err := next.Validate(); err != nil {
		o.logger.Printf("[Ocean] invalid configuration: %v", err)
	}

	prev := o.config
	o.config = next

	if prev.SeaLevel != next.SeaLevel {
		o.position[1] = next.SeaLevel
	}
	if prev.shape() != next.shape() {
		o.lod = next.LOD()
		o.spawnRequested = true
	}
	if prev.WaveSetConfig() != next.WaveSetConfig() ||
		prev.Damping != next.Damping ||
		prev.DebugVisuals != next.DebugVisuals {
		o.reconfigureRequested = true
	}
}

// SetViewDistance радиус сетки в тайлах
func (o *Ocean) SetViewDistance(tiles int) {
	o.Update(func(c *Config) { c.ViewDistanceTiles = tiles })
}

// SetLODDistance расстояние, после которого тайлы становятся плоскими
func (o *Ocean) SetLODDistance(distance float64) {
	o.Update(func(c *Config) { c.LODDistance = distance })
}

// SetMinSubdivisions минимальное подразбиение не плоского тайла
func (o *Ocean) SetMinSubdivisions(n int) {
	o.Update(func(c *Config) { c.MinSubdivisions = n })
}

// SetLODLevels количество ступеней LOD
func (o *Ocean) SetLODLevels(n int) {
	o.Update(func(c *Config) { c.LODLevels = n })
}

// SetTileSize размер тайла и нахлест меша
func (o *Ocean) SetTileSize(size, overlap float64) {
	o.Update(func(c *Config) {
		c.TileSize = size
		c.TileOverlap = overlap
	})
}

// SetWaveCount количество волн
func (o *Ocean) SetWaveCount(n int) {
	o.Update(func(c *Config) { c.WaveCount = n })
}

// SetWaterDepth глубина воды для дисперсионного соотношения
func (o *Ocean) SetWaterDepth(depth float64) {
	o.Update(func(c *Config) { c.WaterDepth = depth })
}

// SetWindAngle среднее направление ветра
func (o *Ocean) SetWindAngle(angle float64) {
	o.Update(func(c *Config) { c.WindAngle = angle })
}

// SetIntensity множитель средней амплитуды
func (o *Ocean) SetIntensity(intensity float64) {
	o.Update(func(c *Config) { c.Intensity = intensity })
}

// SetDamping ослабление смещения поверхности
func (o *Ocean) SetDamping(damping float64) {
	o.Update(func(c *Config) { c.Damping = damping })
}

// SetDebugVisuals переключает отладочную отрисовку тайлов
func (o *Ocean) SetDebugVisuals(enabled bool) {
	o.Update(func(c *Config) { c.DebugVisuals = enabled })
}

// === Отложенная перестройка ===

// RequestSpawn планирует полное пересоздание тайлов
func (o *Ocean) RequestSpawn() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spawnRequested = true
}

// RequestReconfigure планирует обновление параметров тайлов,
// regenerate=true дополнительно заменяет набор волн новым
func (o *Ocean) RequestReconfigure(regenerate bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reconfigureRequested = true
	o.regenerateRequested = o.regenerateRequested || regenerate
}

// RegenerateWaves планирует замену набора волн на свежевыбранный
func (o *Ocean) RegenerateWaves() {
	o.RequestReconfigure(true)
}

// Flush выполняет накопленные запросы перестройки. Вызывается один раз
// в начале тика; возвращает true, если что-то было перестроено.
func (o *Ocean) Flush() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.spawnRequested && !o.reconfigureRequested {
		return false
	}

	if o.reconfigureRequested {
		o.reconfigureLocked(o.regenerateRequested)
	}
	if o.spawnRequested {
		o.spawnLocked()
	}

	o.spawnRequested = false
	o.reconfigureRequested = false
	o.regenerateRequested = false
	return true
}

// Pending сообщает, есть ли незавершенные запросы перестройки
func (o *Ocean) Pending() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.spawnRequested || o.reconfigureRequested
}

// SpawnWaterTiles немедленно пересоздает все тайлы. Идемпотентна.
func (o *Ocean) SpawnWaterTiles() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spawnLocked()
	o.spawnRequested = false
}

// ReconfigureWaterTiles немедленно передает тайлам параметры поверхности
func (o *Ocean) ReconfigureWaterTiles(regenerate bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reconfigureLocked(regenerate)
	o.reconfigureRequested = false
	o.regenerateRequested = false
}

func (o *Ocean) spawnLocked() {
	c := o.config
	o.tiles = make(map[TileIndex]*Tile)
	o.tileSize = c.TileSize

	flat := 0
	meshSize := c.TileSize + c.TileOverlap
	for x := -c.ViewDistanceTiles; x <= c.ViewDistanceTiles; x++ {
		for z := -c.ViewDistanceTiles; z <= c.ViewDistanceTiles; z++ {
			index := TileIndex{X: x, Z: z}

			subdivisions := o.lod.ComputeLOD(distanceToNearestTileEdge(index, c.TileSize))
			noDisplacement := subdivisions == 0
			if !noDisplacement && subdivisions < c.MinSubdivisions {
				subdivisions = c.MinSubdivisions
			}

			localOrigin := mgl64.Vec3{float64(x) * c.TileSize, 0, float64(z) * c.TileSize}
			if noDisplacement {
				localOrigin[1] -= c.FlatTileSink
				flat++
			}

			tile := newTile(index, subdivisions, noDisplacement, localOrigin, meshSize)
			tile.reconfigure(o.waveSet, c.Damping, c.DebugVisuals)
			o.tiles[index] = tile
		}
	}

	o.spawns++
	o.logger.Printf("[Ocean] spawned %d water tiles (%d flat), view distance %d, tile size %.1f",
		len(o.tiles), flat, c.ViewDistanceTiles, c.TileSize)
}

func (o *Ocean) reconfigureLocked(regenerate bool) {
	if regenerate {
		o.waveSet = water.NewWaveSet(o.config.WaveSetConfig(), o.nextSeed(), o.logger)
	} else {
		o.waveSet.Configure(o.config.WaveSetConfig())
	}

	for _, tile := range o.tiles {
		tile.reconfigure(o.waveSet, o.config.Damping, o.config.DebugVisuals)
	}

	o.reconfigures++
	o.logger.Printf("[Ocean] reconfigured %d water tiles (regenerate=%v, waves=%d)",
		len(o.tiles), regenerate, o.waveSet.Len())
}

// distanceToNearestTileEdge расстояние от начала координат сетки до ближайшей точки тайла
func distanceToNearestTileEdge(index TileIndex, tileSize float64) float64 {
	half := tileSize / 2
	dx := math.Max(math.Abs(float64(index.X))*tileSize-half, 0)
	dz := math.Max(math.Abs(float64(index.Z))*tileSize-half, 0)
	return math.Hypot(dx, dz)
}

// === Запросы ===

// GetTileIndices индексы тайла, содержащего мировую точку (Y игнорируется)
func (o *Ocean) GetTileIndices(world mgl64.Vec3) TileIndex {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tileIndicesLocked(world)
}

func (o *Ocean) tileIndicesLocked(world mgl64.Vec3) TileIndex {
	size := o.tileSize
	half := size / 2
	return TileIndex{
		X: int(math.Floor((world.X() - o.position.X() + half) / size)),
		Z: int(math.Floor((world.Z() - o.position.Z() + half) / size)),
	}
}

// GetDisplacement смещение поверхности в мировой точке (Y игнорируется).
// Вне построенной сетки возвращает нулевой вектор.
func (o *Ocean) GetDisplacement(world mgl64.Vec3) mgl64.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	tile := o.tileAtLocked(world)
	if tile == nil {
		return mgl64.Vec3{}
	}
	return tile.Displacement(world.X(), world.Z(), o.waveTime)
}

// GetNormal нормаль поверхности в мировой точке; вне сетки - (0,1,0)
func (o *Ocean) GetNormal(world mgl64.Vec3) mgl64.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	tile := o.tileAtLocked(world)
	if tile == nil {
		return mgl64.Vec3{0, 1, 0}
	}
	return tile.Normal(world.X(), world.Z(), o.waveTime)
}

func (o *Ocean) tileAtLocked(world mgl64.Vec3) *Tile {
	index := o.tileIndicesLocked(world)
	tile, ok := o.tiles[index]
	if !ok {
		o.missedLookups.Add(1)
		o.missLog.Do(func() {
			o.logger.Printf("[Ocean] no water tile %s for position (%.1f, %.1f), using zero displacement",
				index.Name(), world.X(), world.Z())
		})
		return nil
	}
	return tile
}

// SurfaceLevel уровень невозмущенной поверхности
func (o *Ocean) SurfaceLevel() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.position.Y()
}

// === Плавающее начало координат ===

// AddOriginListener регистрирует наблюдателя за сдвигами сетки
func (o *Ocean) AddOriginListener(listener OriginListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, listener)
}

const maxRecenterSteps = 4

// OnOriginChanged сдвигает сетку так, чтобы тайл с worldPosition стал (0,0).
// Возвращает true, если сдвиг произошел.
func (o *Ocean) OnOriginChanged(worldPosition mgl64.Vec3) bool {
	o.mu.Lock()

	index := o.tileIndicesLocked(worldPosition)
	if index == (TileIndex{}) {
		o.mu.Unlock()
		return false
	}

	// Точка на границе тайла после сдвига может попасть в соседний тайл
	// из-за округления; остаток добавляется к сдвигу.
	size := o.tileSize
	startTile := o.originTile
	var shift mgl64.Vec3
	for attempt := 0; index != (TileIndex{}); attempt++ {
		if attempt == maxRecenterSteps {
			o.mu.Unlock()
			panic(fmt.Sprintf("ocean recenter invariant violated: position (%.3f, %.3f) maps to %s after shift",
				worldPosition.X(), worldPosition.Z(), index.Name()))
		}
		step := mgl64.Vec3{float64(index.X) * size, 0, float64(index.Z) * size}
		shift = shift.Add(step)
		o.position = o.position.Add(step)
		o.originTile = o.originTile.Add(index)
		index = o.tileIndicesLocked(worldPosition)
	}
	if o.originTile == startTile {
		o.mu.Unlock()
		return false
	}
	o.recenters++

	originTile := o.originTile
	listeners := make([]OriginListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, listener := range listeners {
		listener(shift, originTile)
	}
	return true
}

// Position мировая позиция центра тайла (0,0)
func (o *Ocean) Position() mgl64.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.position
}

// OriginTile абсолютный индекс текущего центрального тайла
func (o *Ocean) OriginTile() TileIndex {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.originTile
}

// === Время и состояние моря ===

// Advance продвигает часы волн
func (o *Ocean) Advance(dt float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waveTime += dt
}

// WaveTime текущее время волн
func (o *Ocean) WaveTime() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.waveTime
}

// DriftSeaState заменяет одну волну, постепенно применяя новую статистику
func (o *Ocean) DriftSeaState() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.waveSet.ResampleOnce()
}

// WaveSet текущий общий набор волн
func (o *Ocean) WaveSet() *water.WaveSet {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.waveSet
}

// Tile возвращает тайл по индексам
func (o *Ocean) Tile(index TileIndex) (*Tile, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	tile, ok := o.tiles[index]
	return tile, ok
}

// Tiles снимки всех тайлов, отсортированные по (X, Z)
func (o *Ocean) Tiles() []TileSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]TileSnapshot, 0, len(o.tiles))
	for _, tile := range o.tiles {
		result = append(result, tile.snapshot(o.position))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Index.X != result[j].Index.X {
			return result[i].Index.X < result[j].Index.X
		}
		return result[i].Index.Z < result[j].Index.Z
	})
	return result
}

// Stats диагностические счетчики
func (o *Ocean) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	flat := 0
	for _, tile := range o.tiles {
		if tile.noDisplacement {
			flat++
		}
	}
	return Stats{
		Tiles:         len(o.tiles),
		FlatTiles:     flat,
		Spawns:        o.spawns,
		Reconfigures:  o.reconfigures,
		MissedLookups: o.missedLookups.Load(),
		LODCacheHits:  o.lod.CacheHits(),
		LODCacheMiss:  o.lod.CacheMisses(),
		Recenters:     o.recenters,
	}
}
