package game

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"x-ocean/backend/internal/ocean"
	"x-ocean/backend/internal/physics"
	"x-ocean/backend/internal/telemetry"
)

var (
	ErrDuplicateVessel = errors.New("vessel already exists")
	ErrUnknownVessel   = errors.New("vessel not found")
)

// Vessel плавучее тело сцены: твердое тело и его расчет плавучести
type Vessel struct {
	ID      string
	Body    *physics.RigidBody
	Buoyant *physics.BuoyantBody
}

// State снимок состояния судна
func (v *Vessel) State(tick uint64) telemetry.BodyState {
	position, rotation := v.Body.Transform()
	last := v.Buoyant.LastStep()
	return telemetry.BodyState{
		Tick:            tick,
		BodyID:          v.ID,
		Position:        position,
		Rotation:        [4]float64{rotation.W, rotation.V.X(), rotation.V.Y(), rotation.V.Z()},
		Velocity:        v.Body.LinearVelocity(),
		AngularVelocity: v.Body.AngularVelocity(),
		Speed:           v.Body.LinearVelocity().Len(),
		DepthInWater:    last.DepthInWater,
		SubmergedPoints: last.SubmergedPoints,
		BuoyantForce:    last.BuoyantForce,
	}
}

// Scene набор судов на общем океане. Тела изменяются только из цикла симуляции,
// снаружи доступны опубликованные снимки состояний.
type Scene struct {
	ocean *ocean.Ocean

	mu      sync.RWMutex
	vessels map[string]*Vessel
	order   []string
	tracked string
	states  []telemetry.BodyState

	logger *log.Logger
}

// NewScene создает пустую сцену над океаном
func NewScene(o *ocean.Ocean, logger *log.Logger) *Scene {
	if logger == nil {
		logger = log.Default()
	}
	return &Scene{
		ocean:   o,
		vessels: make(map[string]*Vessel),
		logger:  logger,
	}
}

// Ocean океан сцены
func (s *Scene) Ocean() *ocean.Ocean { return s.ocean }

// AddVessel добавляет судно-параллелепипед. Первое судно становится отслеживаемым
func (s *Scene) AddVessel(id string, mass float64, position mgl64.Vec3, config physics.BuoyancyConfig, markers []physics.Marker) (*Vessel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vessels[id]; exists {
		return nil, fmt.Errorf("add vessel %q: %w", id, ErrDuplicateVessel)
	}

	body := physics.NewBoxBody(id, mass, config.Size, position)
	vessel := &Vessel{
		ID:      id,
		Body:    body,
		Buoyant: physics.NewBuoyantBody(id, body, s.ocean, config, markers, s.logger),
	}

	s.vessels[id] = vessel
	s.order = append(s.order, id)
	if s.tracked == "" {
		s.tracked = id
	}

	s.logger.Printf("[Scene] Добавлено судно %s: масса %.1f, позиция (%.1f, %.1f, %.1f)",
		id, mass, position.X(), position.Y(), position.Z())
	return vessel, nil
}

// RemoveVessel удаляет судно
func (s *Scene) RemoveVessel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vessels[id]; !exists {
		return false
	}
	delete(s.vessels, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.tracked == id {
		s.tracked = ""
		if len(s.order) > 0 {
			s.tracked = s.order[0]
		}
	}

	s.logger.Printf("[Scene] Удалено судно %s", id)
	return true
}

// Vessel возвращает судно по идентификатору
func (s *Scene) Vessel(id string) (*Vessel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vessels[id]
	return v, ok
}

// Vessels суда в порядке добавления
func (s *Scene) Vessels() []*Vessel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Vessel, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.vessels[id])
	}
	return result
}

// Track выбирает судно, за которым следует начало координат сетки
func (s *Scene) Track(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vessels[id]; !exists {
		return fmt.Errorf("track %q: %w", id, ErrUnknownVessel)
	}
	s.tracked = id
	return nil
}

// Tracked отслеживаемое судно
func (s *Scene) Tracked() (*Vessel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vessels[s.tracked]
	return v, ok
}

// publish сохраняет снимки состояний для читателей вне цикла
func (s *Scene) publish(states []telemetry.BodyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = states
}

// States последние опубликованные состояния судов
func (s *Scene) States() []telemetry.BodyState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]telemetry.BodyState, len(s.states))
	copy(states, s.states)
	return states
}
