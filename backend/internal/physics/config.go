package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// WorldPhysicsConfig содержит глобальные настройки физики мира
type WorldPhysicsConfig struct {
	// Гравитация
	Gravity mgl64.Vec3 `json:"gravity"`

	// Плотности сред, кг/м³
	WaterDensity float64 `json:"water_density"`
	AirDensity   float64 `json:"air_density"`

	// Количество подшагов физики на один тик
	Substeps int `json:"substeps"`
}

var (
	worldConfig WorldPhysicsConfig
	configMutex sync.RWMutex
)

// Инициализация конфигурации по умолчанию
func init() {
	worldConfig = DefaultWorldConfig()
}

// DefaultWorldConfig возвращает настройки Земли на уровне моря
func DefaultWorldConfig() WorldPhysicsConfig {
	return WorldPhysicsConfig{
		Gravity:      mgl64.Vec3{0, -9.81, 0},
		WaterDensity: 1000.0,
		AirDensity:   1.225,
		Substeps:     2,
	}
}

// GravityMagnitude модуль ускорения свободного падения
func (c WorldPhysicsConfig) GravityMagnitude() float64 {
	return c.Gravity.Len()
}

// GetWorldConfig возвращает текущую конфигурацию физики
func GetWorldConfig() WorldPhysicsConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return worldConfig
}

// SetWorldConfig устанавливает новую конфигурацию физики
func SetWorldConfig(config WorldPhysicsConfig) {
	configMutex.Lock()
	defer configMutex.Unlock()
	if config.Substeps < 1 {
		config.Substeps = 1
	}
	worldConfig = config
}

// BuoyancyConfig настройки плавучести и сопротивления одного тела
type BuoyancyConfig struct {
	// Габариты тела: X ширина, Y высота, Z длина
	Size mgl64.Vec3 `json:"size"`

	// Доля подавляемой силы Архимеда, [0, 1]
	BuoyancyDamping float64 `json:"buoyancy_damping"`

	// Коэффициенты квадратичного сопротивления Cd
	AirDragLinear    float64 `json:"air_drag_linear"`
	AirDragAngular   float64 `json:"air_drag_angular"`
	WaterDragLinear  float64 `json:"water_drag_linear"`
	WaterDragAngular float64 `json:"water_drag_angular"`

	// Постоянное затухание скоростей, 1/с
	ConstantDragLinear  float64 `json:"constant_drag_linear"`
	ConstantDragAngular float64 `json:"constant_drag_angular"`

	// Сдвиг доли погружения при смешивании воздух/вода
	SubmergedProportionOffset float64 `json:"submerged_proportion_offset"`

	BuoyancyEnabled     bool `json:"buoyancy_enabled"`
	DragEnabled         bool `json:"drag_enabled"`
	ConstantDragEnabled bool `json:"constant_drag_enabled"`
}

// DefaultBuoyancyConfig настройки небольшой лодки
func DefaultBuoyancyConfig() BuoyancyConfig {
	return BuoyancyConfig{
		Size:                      mgl64.Vec3{2.0, 1.0, 4.0},
		BuoyancyDamping:           0.0,
		AirDragLinear:             0.5,
		AirDragAngular:            0.5,
		WaterDragLinear:           1.0,
		WaterDragAngular:          2.0,
		ConstantDragLinear:        0.1,
		ConstantDragAngular:       0.5,
		SubmergedProportionOffset: 0.0,
		BuoyancyEnabled:           true,
		DragEnabled:               true,
		ConstantDragEnabled:       true,
	}
}

// HorizontalArea площадь горизонтального сечения X·Z
func (c BuoyancyConfig) HorizontalArea() float64 {
	return c.Size.X() * c.Size.Z()
}

// ForwardArea площадь, обращенная вперед (X·Y)
func (c BuoyancyConfig) ForwardArea() float64 {
	return c.Size.X() * c.Size.Y()
}

// SideArea площадь, обращенная вбок (Z·Y)
func (c BuoyancyConfig) SideArea() float64 {
	return c.Size.Z() * c.Size.Y()
}

// Height высота тела
func (c BuoyancyConfig) Height() float64 {
	return c.Size.Y()
}
