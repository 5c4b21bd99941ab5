package water

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"x-ocean/backend/internal/mathx"
)

// windCone допустимое отклонение направления волны от среднего ветра
const windCone = math.Pi / 4

// WaveSetConfig статистическое описание набора волн
type WaveSetConfig struct {
	NoWaves           int     `json:"no_waves"`
	WavelengthAverage float64 `json:"wavelength_average"`
	WavelengthStdDev  float64 `json:"wavelength_std_dev"`
	AmplitudeAverage  float64 `json:"amplitude_average"`
	WindAngleAverage  float64 `json:"wind_angle_average"`
	WindAngleStdDev   float64 `json:"wind_angle_std_dev"`
	WaterDepth        float64 `json:"water_depth"`
}

// Validate проверяет конфигурацию
func (c WaveSetConfig) Validate() error {
	if c.NoWaves < 0 {
		return fmt.Errorf("wave set: %w (got %d)", ErrNegativeWaveCount, c.NoWaves)
	}
	if c.WaterDepth <= 0 {
		return fmt.Errorf("wave set: %w (got %.3f)", ErrInvalidDepth, c.WaterDepth)
	}
	if c.WavelengthAverage <= 0 {
		return fmt.Errorf("wave set: wavelength average must be positive (got %.3f)", c.WavelengthAverage)
	}
	return nil
}

// WaveSet ограниченный набор волн, выбранных из статистической конфигурации.
// Срез волн заменяется целиком при любом изменении, поэтому срез,
// полученный через Waves, можно читать без блокировок.
type WaveSet struct {
	config WaveSetConfig
	waves  []Wave
	rng    *rand.Rand
	mu     sync.RWMutex
	logger *log.Logger
}

// NewWaveSet создает набор и сразу выбирает все волны.
// seed == 0 означает инициализацию генератора текущим временем.
func NewWaveSet(config WaveSetConfig, seed int64, logger *log.Logger) *WaveSet {
	if logger == nil {
		logger = log.Default()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ws := &WaveSet{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
	ws.config = ws.sanitize(config)
	ws.waves = ws.sampleAll()
	return ws
}

// Config возвращает текущую конфигурацию
func (ws *WaveSet) Config() WaveSetConfig {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.config
}

// Waves возвращает текущий срез волн. Срез не изменяется после публикации.
func (ws *WaveSet) Waves() []Wave {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.waves
}

// Len количество волн в наборе
func (ws *WaveSet) Len() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.waves)
}

// Configure заменяет конфигурацию. Полная перевыборка происходит только
// при изменении количества волн; иначе волны остаются на месте до явного
// ResampleOnce или SampleAll, чтобы поверхность не менялась скачком.
func (ws *WaveSet) Configure(config WaveSetConfig) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.config = ws.sanitize(config)
	if len(ws.waves) != ws.config.NoWaves {
		ws.waves = ws.sampleAll()
		ws.logger.Printf("[WaveSet] resampled %d waves after wave count change", len(ws.waves))
	}
}

// SampleAll перевыбирает все волны
func (ws *WaveSet) SampleAll() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.waves = ws.sampleAll()
}

// ResampleOnce заменяет ровно одну случайно выбранную волну.
// Возвращает индекс замененной волны или -1 для пустого набора.
func (ws *WaveSet) ResampleOnce() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if len(ws.waves) == 0 {
		return -1
	}

	index := ws.rng.Intn(len(ws.waves))
	next := make([]Wave, len(ws.waves))
	copy(next, ws.waves)
	next[index] = ws.sampleWave(index)
	ws.waves = next
	return index
}

// SampleWave выбирает волну для позиции index по текущей конфигурации
func (ws *WaveSet) SampleWave(index int) Wave {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.sampleWave(index)
}

func (ws *WaveSet) sampleAll() []Wave {
	waves := make([]Wave, ws.config.NoWaves)
	for i := range waves {
		waves[i] = ws.sampleWave(i)
	}
	return waves
}

func (ws *WaveSet) sampleWave(index int) Wave {
	c := ws.config

	wavelength := ws.rng.NormFloat64()*c.WavelengthStdDev + c.WavelengthAverage
	wavelength = mathx.Clamp(wavelength, c.WavelengthAverage/2, c.WavelengthAverage*2)

	// Отношение амплитуды к длине волны одинаково для всего набора
	amplitude := wavelength * (c.AmplitudeAverage / c.WavelengthAverage)

	windAngle := ws.rng.NormFloat64()*c.WindAngleStdDev + c.WindAngleAverage
	windAngle = clampToWindCone(windAngle, c.WindAngleAverage)

	// Равномерно распределенные фазы, чтобы гребни не совпадали
	phaseShift := 0.0
	if c.NoWaves > 0 {
		phaseShift = float64(index) * 2 * math.Pi / float64(c.NoWaves)
	}

	w := NewWave(wavelength, amplitude, windAngle, phaseShift, c.WaterDepth)
	if err := w.Validate(); err != nil {
		ws.logger.Printf("[WaveSet] invalid wave %d: %v", index, err)
	}
	return w
}

// clampToWindCone возвращает угол в [0, 2π), не дальше π/4 от среднего направления.
// Разница считается по кратчайшей дуге, поэтому переход через 0/2π не ломает ограничение.
func clampToWindCone(angle, average float64) float64 {
	delta := mathx.Clamp(mathx.AngleDelta(angle, average), -windCone, windCone)
	return mathx.WrapAngle(average + delta)
}

func (ws *WaveSet) sanitize(c WaveSetConfig) WaveSetConfig {
	if err := c.Validate(); err != nil {
		ws.logger.Printf("[WaveSet] invalid configuration: %v", err)
	}
	if c.NoWaves < 0 {
		c.NoWaves = 0
	}
	return c
}
