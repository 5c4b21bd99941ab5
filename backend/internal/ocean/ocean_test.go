package ocean

import (
	"errors"
	"io"
	"log"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"x-ocean/backend/internal/water"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "[TEST] ", log.LstdFlags)
}

func testConfig() Config {
	c := DefaultConfig()
	c.TileSize = 10
	c.TileOverlap = 0
	c.ViewDistanceTiles = 3
	c.LODDistance = 25
	c.MaxSubdivisions = 64
	c.MinSubdivisions = 20
	c.LODLevels = 4
	c.FlatTileSink = 0.5
	c.WaveCount = 6
	c.WavelengthAverage = 20
	c.WavelengthStdDev = 5
	c.AmplitudeAverage = 0.4
	c.WaterDepth = 50
	c.Seed = 1
	return c
}

func newTestOcean() *Ocean {
	return New(testConfig(), testLogger())
}

func TestOcean_SpawnGridAndLOD(t *testing.T) {
	o := newTestOcean()

	tiles := o.Tiles()
	if len(tiles) != 49 {
		t.Fatalf("Ожидали 7x7 = 49 тайлов, получили %d", len(tiles))
	}

	expected := map[TileIndex]int{
		{0, 0}: 64, // расстояние 0
		{1, 0}: 48, // 64·0.8 = 51.2 -> 48
		{1, 1}: 32, // 64·(1-7.07/25) = 45.9 -> 32
		{2, 0}: 20, // 25.6 -> 16, поднято до минимума
		{3, 0}: 0,  // за пределами LOD
		{2, 2}: 0,  // 9.7 -> 0, плоский
	}
	for index, want := range expected {
		tile, ok := o.Tile(index)
		if !ok {
			t.Fatalf("Нет тайла %s", index.Name())
		}
		if tile.Subdivisions() != want {
			t.Errorf("Тайл %s: подразбиение %d, ожидали %d", index.Name(), tile.Subdivisions(), want)
		}
		if tile.NoDisplacement() != (want == 0) {
			t.Errorf("Тайл %s: NoDisplacement=%v при подразбиении %d", index.Name(), tile.NoDisplacement(), want)
		}
	}

	for _, snap := range tiles {
		if snap.NoDisplacement {
			if snap.Subdivisions != 0 {
				t.Errorf("Плоский тайл %s имеет подразбиение %d", snap.Name, snap.Subdivisions)
			}
			if math.Abs(snap.Origin.Y()-(-0.5)) > 1e-12 {
				t.Errorf("Плоский тайл %s не опущен: Y=%f", snap.Name, snap.Origin.Y())
			}
		} else if snap.Subdivisions < 20 {
			t.Errorf("Тайл %s: подразбиение %d ниже минимума", snap.Name, snap.Subdivisions)
		}
		if snap.Name != snap.Index.Name() {
			t.Errorf("Имя тайла %s не совпадает с индексами %v", snap.Name, snap.Index)
		}
	}
}

func TestOcean_SpawnIsIdempotent(t *testing.T) {
	o := newTestOcean()
	before := o.Tiles()

	o.SpawnWaterTiles()
	o.SpawnWaterTiles()
	after := o.Tiles()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("Повторный спавн изменил набор тайлов")
	}
	if o.Stats().LODCacheHits == 0 {
		t.Errorf("Ожидали попадания в кэш LOD при повторном спавне")
	}
}

func TestOcean_FlushCoalescesChanges(t *testing.T) {
	o := newTestOcean()
	start := o.Stats()

	o.SetWindAngle(1.0)
	o.SetIntensity(2.0)
	o.SetDamping(0.1)
	o.SetViewDistance(2)
	o.SetLODDistance(30)

	if got := o.Stats(); got.Spawns != start.Spawns || got.Reconfigures != start.Reconfigures {
		t.Fatalf("Перестройка не должна выполняться до Flush")
	}
	if !o.Pending() {
		t.Fatalf("Ожидали запланированную перестройку")
	}

	if !o.Flush() {
		t.Fatalf("Flush должен был выполнить перестройку")
	}
	if o.Flush() {
		t.Errorf("Второй Flush не должен ничего делать")
	}

	got := o.Stats()
	if got.Spawns != start.Spawns+1 {
		t.Errorf("Ожидали ровно один спавн, получили %d", got.Spawns-start.Spawns)
	}
	if got.Reconfigures != start.Reconfigures+1 {
		t.Errorf("Ожидали ровно одну переконфигурацию, получили %d", got.Reconfigures-start.Reconfigures)
	}
	if got.Tiles != 25 {
		t.Errorf("Ожидали 5x5 = 25 тайлов, получили %d", got.Tiles)
	}
}

func TestOcean_UnchangedConfigDoesNotRebuild(t *testing.T) {
	o := newTestOcean()
	o.ApplyConfig(o.Config())
	if o.Pending() || o.Flush() {
		t.Errorf("Неизмененная конфигурация не должна планировать перестройку")
	}
}

func TestOcean_ReconfigureSharesWaveSet(t *testing.T) {
	o := newTestOcean()
	ws := o.WaveSet()
	before := ws.Waves()

	o.SetWindAngle(2.0)
	o.Flush()

	if o.WaveSet() != ws {
		t.Errorf("Без regenerate набор волн не должен заменяться")
	}
	if !reflect.DeepEqual(before, o.WaveSet().Waves()) {
		t.Errorf("Волны изменились без изменения их количества")
	}
	if o.WaveSet().Config().WindAngleAverage != 2.0 {
		t.Errorf("Новая конфигурация не передана набору волн")
	}

	o.RegenerateWaves()
	o.Flush()
	if o.WaveSet() == ws {
		t.Errorf("RegenerateWaves должен заменить набор волн")
	}
	tile, _ := o.Tile(TileIndex{})
	if tile.waveSet != o.WaveSet() {
		t.Errorf("Тайл не получил новый набор волн")
	}
}

func TestOcean_GetDisplacementRoutesToTile(t *testing.T) {
	o := newTestOcean()
	o.Advance(1.25)

	waves := o.WaveSet().Waves()
	for _, p := range []mgl64.Vec3{{0, 0, 0}, {7.5, 3, -4}, {-14, 0, 12}} {
		got := o.GetDisplacement(p)
		want := water.Displacement(waves, p.X(), p.Z(), 1.25)
		if got != want {
			t.Errorf("GetDisplacement(%v) = %v, ожидали %v", p, got, want)
		}
	}
}

func TestOcean_MissingTileReturnsZero(t *testing.T) {
	o := newTestOcean()

	got := o.GetDisplacement(mgl64.Vec3{1e5, 0, -1e5})
	if got != (mgl64.Vec3{}) {
		t.Errorf("Вне сетки ожидали (0,0,0), получили %v", got)
	}
	if n := o.GetNormal(mgl64.Vec3{1e5, 0, -1e5}); n != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("Вне сетки ожидали нормаль (0,1,0), получили %v", n)
	}
	if o.Stats().MissedLookups != 2 {
		t.Errorf("Ожидали 2 промаха, получили %d", o.Stats().MissedLookups)
	}
}

func TestOcean_FlatTileHasNoDisplacement(t *testing.T) {
	o := newTestOcean()

	// Тайл (3,0) за пределами LOD
	p := mgl64.Vec3{30, 0, 0}
	if got := o.GetDisplacement(p); got != (mgl64.Vec3{}) {
		t.Errorf("Плоский тайл вернул смещение %v", got)
	}
}

func TestOcean_DampingScalesDisplacement(t *testing.T) {
	o := newTestOcean()
	p := mgl64.Vec3{3, 0, 2}
	full := o.GetDisplacement(p)

	o.SetDamping(0.5)
	o.Flush()

	half := o.GetDisplacement(p)
	if !half.ApproxEqualThreshold(full.Mul(0.5), 1e-9) {
		t.Errorf("Ожидали половину смещения %v, получили %v", full.Mul(0.5), half)
	}
}

func TestOcean_RecenterMapsPositionToOrigin(t *testing.T) {
	o := newTestOcean()
	rng := rand.New(rand.NewSource(4))

	for i := 0; i < 200; i++ {
		p := mgl64.Vec3{rng.Float64()*2000 - 1000, 0, rng.Float64()*2000 - 1000}
		o.OnOriginChanged(p)
		if got := o.GetTileIndices(p); got != (TileIndex{}) {
			t.Fatalf("После OnOriginChanged(%v) индексы %v, ожидали (0,0)", p, got)
		}
	}
}

// nudge сдвигает x на steps соседних представимых значений
func nudge(x float64, steps int) float64 {
	direction := math.Inf(1)
	if steps < 0 {
		direction = math.Inf(-1)
		steps = -steps
	}
	for i := 0; i < steps; i++ {
		x = math.Nextafter(x, direction)
	}
	return x
}

func TestOcean_RecenterOnTileEdge(t *testing.T) {
	o := newTestOcean()

	var notified int
	o.AddOriginListener(func(shift mgl64.Vec3, originTile TileIndex) {
		notified++
		if originTile != o.OriginTile() {
			t.Errorf("Слушатель получил тайл %v, у сетки %v", originTile, o.OriginTile())
		}
	})

	edges := []float64{247274.99999999994, -586825.00000000012, -2195925.0000000009}
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		n := rng.Int63n(600000) - 300000
		edges = append(edges, nudge(float64(n)*10-5, rng.Intn(7)-3))
	}

	for _, x := range edges {
		for _, p := range []mgl64.Vec3{{x, 0, 0}, {0, 0, x}, {x, 0, x}} {
			before := notified
			shifted := o.OnOriginChanged(p)

			if got := o.GetTileIndices(p); got != (TileIndex{}) {
				t.Fatalf("После OnOriginChanged(%v) индексы %v, ожидали (0,0)", p, got)
			}
			if shifted && notified != before+1 {
				t.Errorf("Сдвиг для %v не оповестил слушателей", p)
			}
			if !shifted && notified != before {
				t.Errorf("Слушатели оповещены без сдвига для %v", p)
			}
		}
	}

	// На свежей сетке та же граница обрабатывается с первого вызова
	fresh := newTestOcean()
	p := mgl64.Vec3{247274.99999999994, 0, 0}
	if !fresh.OnOriginChanged(p) {
		t.Fatalf("Ожидали сдвиг сетки для %v", p)
	}
	if got := fresh.GetTileIndices(p); got != (TileIndex{}) {
		t.Errorf("Индексы %v, ожидали (0,0)", got)
	}
	if dx := math.Abs(p.X() - fresh.Position().X()); dx > 5+1e-6 {
		t.Errorf("Центральный тайл дальше половины тайла от точки: %.9f", dx)
	}
}

func TestOcean_TileSizeAppliesOnRespawn(t *testing.T) {
	o := newTestOcean()
	p := mgl64.Vec3{26, 0, 0}

	o.SetTileSize(20, 0)
	if got := o.GetTileIndices(p); got != (TileIndex{X: 3}) {
		t.Errorf("До перестройки маршрутизация должна идти по старой сетке: %v", got)
	}
	if _, ok := o.Tile(TileIndex{X: 3}); !ok {
		t.Errorf("Тайл (3,0) старой сетки должен существовать до перестройки")
	}

	if !o.Flush() {
		t.Fatal("Ожидали перестройку после смены размера тайла")
	}
	if got := o.GetTileIndices(p); got != (TileIndex{X: 1}) {
		t.Errorf("После перестройки ожидали тайл (1,0), получили %v", got)
	}

	o.OnOriginChanged(p)
	if o.Position() != (mgl64.Vec3{20, 0, 0}) {
		t.Errorf("Сдвиг должен использовать новый размер тайла: %v", o.Position())
	}
}

func TestOcean_TryUpdateIsAtomic(t *testing.T) {
	o := newTestOcean()
	start := o.Config().WaveCount

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.TryUpdate(func(c *Config) error {
				c.WaveCount++
				return nil
			}); err != nil {
				t.Errorf("Неожиданная ошибка: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := o.Config().WaveCount; got != start+32 {
		t.Errorf("Часть изменений потеряна: ожидали %d волн, получили %d", start+32, got)
	}

	before := o.Config()
	if _, err := o.TryUpdate(func(c *Config) error {
		c.Damping = 2
		return nil
	}); err == nil {
		t.Error("Ожидали отказ для damping вне [0, 1]")
	}
	errDecode := errors.New("decode")
	current, err := o.TryUpdate(func(c *Config) error {
		c.Damping = 0.5
		return errDecode
	})
	if !errors.Is(err, errDecode) {
		t.Errorf("Ошибка fn должна возвращаться как есть, получено %v", err)
	}
	if current != before || o.Config() != before {
		t.Errorf("Отклоненное изменение не должно применяться")
	}
}

func TestOcean_RecenterNotifiesListeners(t *testing.T) {
	o := newTestOcean()

	var shifts []mgl64.Vec3
	var origin TileIndex
	o.AddOriginListener(func(shift mgl64.Vec3, originTile TileIndex) {
		shifts = append(shifts, shift)
		origin = originTile
	})

	if o.OnOriginChanged(mgl64.Vec3{4, 0, 4}) {
		t.Errorf("Позиция внутри центрального тайла не должна сдвигать сетку")
	}

	if !o.OnOriginChanged(mgl64.Vec3{26, 0, -12}) {
		t.Fatalf("Ожидали сдвиг сетки")
	}
	if len(shifts) != 1 || shifts[0] != (mgl64.Vec3{30, 0, -10}) {
		t.Errorf("Неверный сдвиг: %v", shifts)
	}
	if origin != (TileIndex{X: 3, Z: -1}) {
		t.Errorf("Неверный тайл начала координат: %v", origin)
	}
	if o.Position() != (mgl64.Vec3{30, 0, -10}) {
		t.Errorf("Неверная позиция сетки: %v", o.Position())
	}

	o.OnOriginChanged(mgl64.Vec3{44, 0, -12})
	if o.OriginTile() != (TileIndex{X: 4, Z: -1}) {
		t.Errorf("Абсолютный индекс не накопился: %v", o.OriginTile())
	}
}

func TestOcean_WaveFieldIsContinuousAcrossRecenter(t *testing.T) {
	o := newTestOcean()
	p := mgl64.Vec3{12, 0, 9}
	before := o.GetDisplacement(p)

	o.OnOriginChanged(mgl64.Vec3{10, 0, 0})
	after := o.GetDisplacement(p)

	if before != after {
		t.Errorf("Смещение в мировой точке изменилось после сдвига сетки: %v -> %v", before, after)
	}
}

func TestOcean_DriftSeaState(t *testing.T) {
	o := newTestOcean()
	before := o.WaveSet().Waves()

	index := o.DriftSeaState()
	after := o.WaveSet().Waves()

	if index < 0 || before[index] == after[index] {
		t.Errorf("DriftSeaState должен заменить волну %d", index)
	}
}
