package ocean

import (
	"fmt"

	"x-ocean/backend/internal/water"
)

// Config настройки сетки тайлов и волнения.
// Изменения применяются на следующей отложенной перестройке.
type Config struct {
	// Сетка
	TileSize          float64 `json:"tile_size"`
	TileOverlap       float64 `json:"tile_overlap"`        // Нахлест меша, чтобы не было щелей между тайлами
	ViewDistanceTiles int     `json:"view_distance_tiles"` // Радиус сетки в тайлах
	LODDistance       float64 `json:"lod_distance"`        // Дальше этого расстояния тайлы плоские
	MaxSubdivisions   int     `json:"max_subdivisions"`
	MinSubdivisions   int     `json:"min_subdivisions"`
	LODLevels         int     `json:"lod_levels"`
	FlatTileSink      float64 `json:"flat_tile_sink"` // Опускание плоских тайлов против z-fighting
	SeaLevel          float64 `json:"sea_level"`

	// Волнение
	WaveCount         int     `json:"wave_count"`
	WavelengthAverage float64 `json:"wavelength_average"`
	WavelengthStdDev  float64 `json:"wavelength_std_dev"`
	AmplitudeAverage  float64 `json:"amplitude_average"`
	Intensity         float64 `json:"intensity"` // Множитель средней амплитуды
	WindAngle         float64 `json:"wind_angle"`
	WindAngleStdDev   float64 `json:"wind_angle_std_dev"`
	WaterDepth        float64 `json:"water_depth"`

	// Параметры поверхности, которые получают тайлы
	Damping      float64 `json:"damping"` // Ослабление смещения тайлом, [0, 1]
	DebugVisuals bool    `json:"debug_visuals"`

	Seed int64 `json:"seed"` // 0 - инициализация от времени
}

// DefaultConfig возвращает настройки открытого моря по умолчанию
func DefaultConfig() Config {
	return Config{
		TileSize:          64.0,
		TileOverlap:       0.05,
		ViewDistanceTiles: 6,
		LODDistance:       256.0,
		MaxSubdivisions:   128,
		MinSubdivisions:   8,
		LODLevels:         8,
		FlatTileSink:      0.25,
		SeaLevel:          0.0,

		WaveCount:         12,
		WavelengthAverage: 30.0,
		WavelengthStdDev:  12.0,
		AmplitudeAverage:  0.35,
		Intensity:         1.0,
		WindAngle:         0.0,
		WindAngleStdDev:   0.4,
		WaterDepth:        80.0,

		Damping:      0.0,
		DebugVisuals: false,
	}
}

// Validate проверяет настройки
func (c Config) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("tile size must be positive (got %.2f)", c.TileSize)
	}
	if c.ViewDistanceTiles < 0 {
		return fmt.Errorf("view distance must not be negative (got %d)", c.ViewDistanceTiles)
	}
	if c.MinSubdivisions > c.MaxSubdivisions {
		return fmt.Errorf("min subdivisions %d exceed max %d", c.MinSubdivisions, c.MaxSubdivisions)
	}
	if c.Damping < 0 || c.Damping > 1 {
		return fmt.Errorf("damping must be within [0, 1] (got %.2f)", c.Damping)
	}
	return c.WaveSetConfig().Validate()
}

// WaveSetConfig статистика волн, которую получает набор волн
func (c Config) WaveSetConfig() water.WaveSetConfig {
	return water.WaveSetConfig{
		NoWaves:           c.WaveCount,
		WavelengthAverage: c.WavelengthAverage,
		WavelengthStdDev:  c.WavelengthStdDev,
		AmplitudeAverage:  c.AmplitudeAverage * c.Intensity,
		WindAngleAverage:  c.WindAngle,
		WindAngleStdDev:   c.WindAngleStdDev,
		WaterDepth:        c.WaterDepth,
	}
}

// LOD строит кривую детализации для сетки
func (c Config) LOD() *LinearLOD {
	levels := c.LODLevels
	if levels < 1 {
		levels = 1
	}
	return NewLinearLOD(c.MaxSubdivisions, 0, c.MaxSubdivisions/levels, c.LODDistance)
}

// gridShape параметры, изменение которых требует пересоздания тайлов
type gridShape struct {
	tileSize        float64
	tileOverlap     float64
	viewDistance    int
	lodDistance     float64
	maxSubdivisions int
	minSubdivisions int
	lodLevels       int
	flatTileSink    float64
}

func (c Config) shape() gridShape {
	return gridShape{
		tileSize:        c.TileSize,
		tileOverlap:     c.TileOverlap,
		viewDistance:    c.ViewDistanceTiles,
		lodDistance:     c.LODDistance,
		maxSubdivisions: c.MaxSubdivisions,
		minSubdivisions: c.MinSubdivisions,
		lodLevels:       c.LODLevels,
		flatTileSink:    c.FlatTileSink,
	}
}
