package water

import (
	"errors"
	"io"
	"log"
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"x-ocean/backend/internal/mathx"
)

const eps = 1e-9

func testLogger() *log.Logger {
	return log.New(io.Discard, "[TEST] ", log.LstdFlags)
}

func stormConfig(n int) WaveSetConfig {
	return WaveSetConfig{
		NoWaves:           n,
		WavelengthAverage: 40,
		WavelengthStdDev:  25,
		AmplitudeAverage:  1.2,
		WindAngleAverage:  0.1,
		WindAngleStdDev:   2.0,
		WaterDepth:        60,
	}
}

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func singleWaveSet() *WaveSet {
	return NewWaveSet(WaveSetConfig{
		NoWaves:           1,
		WavelengthAverage: 10,
		WavelengthStdDev:  0,
		AmplitudeAverage:  0.5,
		WindAngleAverage:  0,
		WindAngleStdDev:   0,
		WaterDepth:        200,
	}, 7, testLogger())
}

func TestNewWave_DerivedFields(t *testing.T) {
	w := NewWave(10, 0.5, 0, 0, 200)

	k := 2 * math.Pi / 10
	if math.Abs(w.K-k) > eps || math.Abs(w.KX-k) > eps || math.Abs(w.KZ) > eps {
		t.Errorf("Неверный волновой вектор: k=%f kX=%f kZ=%f", w.K, w.KX, w.KZ)
	}

	omega := math.Sqrt(Gravity * k * math.Tanh(k*200))
	if math.Abs(w.AngularFrequency-omega) > eps {
		t.Errorf("ω = %f, ожидали %f", w.AngularFrequency, omega)
	}

	pX := 0.5 / math.Tanh(k*200)
	if math.Abs(w.ProductOperandX-pX) > eps {
		t.Errorf("productOperandX = %f, ожидали %f", w.ProductOperandX, pX)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Волна должна быть корректной: %v", err)
	}
}

func TestWave_Validate(t *testing.T) {
	steep := NewWave(2, 1, 0, 0, 50) // k·a = π
	if err := steep.Validate(); !errors.Is(err, ErrSteepness) {
		t.Errorf("Ожидали ErrSteepness, получили %v", err)
	}

	shallow := NewWave(10, 0.1, 0, 0, 0)
	if err := shallow.Validate(); !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("Ожидали ErrInvalidDepth, получили %v", err)
	}
}

func TestWaveSet_CountAfterConstructionAndConfigure(t *testing.T) {
	for _, n := range []int{0, 1, 5, 16} {
		ws := NewWaveSet(stormConfig(n), 1, testLogger())
		if ws.Len() != n {
			t.Errorf("После создания ожидали %d волн, получили %d", n, ws.Len())
		}

		cfg := stormConfig(n + 3)
		ws.Configure(cfg)
		if ws.Len() != n+3 {
			t.Errorf("После Configure ожидали %d волн, получили %d", n+3, ws.Len())
		}
	}
}

func TestWaveSet_NegativeCountIsClamped(t *testing.T) {
	ws := NewWaveSet(stormConfig(-4), 1, testLogger())
	if ws.Len() != 0 {
		t.Errorf("Отрицательное количество волн должно дать пустой набор, получили %d", ws.Len())
	}
}

func TestWaveSet_SampledRanges(t *testing.T) {
	cfg := stormConfig(64)
	ws := NewWaveSet(cfg, 42, testLogger())

	for i, w := range ws.Waves() {
		if w.Wavelength < cfg.WavelengthAverage/2 || w.Wavelength > cfg.WavelengthAverage*2 {
			t.Errorf("Волна %d: длина %f вне [%f, %f]", i, w.Wavelength, cfg.WavelengthAverage/2, cfg.WavelengthAverage*2)
		}
		if w.WindAngle < 0 || w.WindAngle >= 2*math.Pi {
			t.Errorf("Волна %d: угол %f вне [0, 2π)", i, w.WindAngle)
		}
		if d := math.Abs(mathx.AngleDelta(w.WindAngle, cfg.WindAngleAverage)); d > math.Pi/4+eps {
			t.Errorf("Волна %d: отклонение от ветра %f больше π/4", i, d)
		}
		ratio := w.Amplitude / w.Wavelength
		if math.Abs(ratio-cfg.AmplitudeAverage/cfg.WavelengthAverage) > eps {
			t.Errorf("Волна %d: отношение амплитуды к длине %f не постоянно", i, ratio)
		}
		want := float64(i) * 2 * math.Pi / float64(cfg.NoWaves)
		if math.Abs(w.PhaseShift-want) > eps {
			t.Errorf("Волна %d: фаза %f, ожидали %f", i, w.PhaseShift, want)
		}
	}
}

func TestWaveSet_DeterministicSeed(t *testing.T) {
	a := NewWaveSet(stormConfig(8), 99, testLogger()).Waves()
	b := NewWaveSet(stormConfig(8), 99, testLogger()).Waves()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Волна %d отличается при одинаковом seed", i)
		}
	}
}

func TestWaveSet_ConfigureKeepsWavesWhenCountUnchanged(t *testing.T) {
	ws := NewWaveSet(stormConfig(6), 3, testLogger())
	before := ws.Waves()

	cfg := stormConfig(6)
	cfg.WindAngleAverage = math.Pi
	cfg.AmplitudeAverage = 3
	ws.Configure(cfg)

	after := ws.Waves()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Волна %d изменилась без изменения количества волн", i)
		}
	}
	if ws.Config().WindAngleAverage != math.Pi {
		t.Errorf("Конфигурация не была заменена")
	}
}

func TestWaveSet_ResampleOnceReplacesExactlyOne(t *testing.T) {
	ws := NewWaveSet(stormConfig(10), 5, testLogger())
	before := ws.Waves()

	index := ws.ResampleOnce()
	after := ws.Waves()

	if index < 0 || index >= len(after) {
		t.Fatalf("Неверный индекс замены %d", index)
	}

	changed := 0
	for i := range before {
		if before[i] != after[i] {
			changed++
			if i != index {
				t.Errorf("Изменилась волна %d, хотя заменялась %d", i, index)
			}
		}
	}
	if changed != 1 {
		t.Errorf("Ожидали замену ровно одной волны, изменилось %d", changed)
	}
	if &before[0] == &after[0] {
		t.Errorf("Срез волн должен заменяться целиком, а не изменяться на месте")
	}
}

func TestWaveSet_ResampleOnceEmpty(t *testing.T) {
	ws := NewWaveSet(stormConfig(0), 5, testLogger())
	if got := ws.ResampleOnce(); got != -1 {
		t.Errorf("Для пустого набора ожидали -1, получили %d", got)
	}
}

func TestDisplacement_SingleWaveClosedForm(t *testing.T) {
	ws := singleWaveSet()
	waves := ws.Waves()
	w := waves[0]

	d0 := Displacement(waves, 0, 0, 0)
	if !vecNear(d0, mgl64.Vec3{0, w.Amplitude, 0}, eps) {
		t.Errorf("D(0,0,0) = %v, ожидали (0, %f, 0)", d0, w.Amplitude)
	}

	x := math.Pi / (2 * w.KX)
	dq := Displacement(waves, x, 0, 0)
	if !vecNear(dq, mgl64.Vec3{-w.ProductOperandX, 0, 0}, eps) {
		t.Errorf("D(π/2kX,0,0) = %v, ожидали (%f, 0, 0)", dq, -w.ProductOperandX)
	}
}

func TestDisplacement_EndToEnd(t *testing.T) {
	ws := singleWaveSet()
	d := Displacement(ws.Waves(), 0, 0, 0)

	if math.Abs(d.Y()-0.5) > eps || math.Abs(d.X()) > eps || math.Abs(d.Z()) > eps {
		t.Errorf("Ожидали (0, 0.5, 0), получили %v", d)
	}
}

func TestDisplacement_Empty(t *testing.T) {
	if d := Displacement(nil, 12, -3, 4); d != (mgl64.Vec3{}) {
		t.Errorf("Без волн смещение должно быть нулевым, получили %v", d)
	}
}

func TestNormal_FlatAndUnit(t *testing.T) {
	if n := Normal(nil, 1, 2, 3); n != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("Нормаль плоской воды = %v, ожидали (0,1,0)", n)
	}

	ws := NewWaveSet(stormConfig(12), 11, testLogger())
	for _, p := range [][3]float64{{0, 0, 0}, {13.5, -7, 2}, {-120, 44, 9.5}} {
		n := Normal(ws.Waves(), p[0], p[1], p[2])
		if math.Abs(n.Len()-1) > eps {
			t.Errorf("Нормаль в %v не единичная: |n|=%f", p, n.Len())
		}
		if n.Y() <= 0 {
			t.Errorf("Нормаль в %v смотрит вниз: %v", p, n)
		}
	}
}

func TestNormal_MatchesDisplacementGradient(t *testing.T) {
	ws := NewWaveSet(stormConfig(4), 17, testLogger())
	waves := ws.Waves()
	x, z, tm := 5.0, -3.0, 1.7
	h := 1e-5

	pos := func(x, z float64) mgl64.Vec3 {
		return mgl64.Vec3{x, 0, z}.Add(Displacement(waves, x, z, tm))
	}
	tx := pos(x+h, z).Sub(pos(x-h, z)).Mul(1 / (2 * h))
	tz := pos(x, z+h).Sub(pos(x, z-h)).Mul(1 / (2 * h))
	want := tz.Cross(tx).Normalize()

	got := Normal(waves, x, z, tm)
	if !vecNear(got, want, 1e-5) {
		t.Errorf("Аналитическая нормаль %v не совпадает с численной %v", got, want)
	}
}

func TestDisplacement_ConcurrentQueries(t *testing.T) {
	ws := NewWaveSet(stormConfig(8), 21, testLogger())
	waves := ws.Waves()
	want := Displacement(waves, 3, 4, 5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Displacement(waves, 3, 4, 5); got != want {
				t.Errorf("Параллельный запрос вернул %v, ожидали %v", got, want)
			}
		}()
	}
	wg.Wait()
}
