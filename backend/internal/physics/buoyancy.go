package physics

import (
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"x-ocean/backend/internal/mathx"
)

// Минимальная доля погружения при смешивании сопротивления воздуха и воды
const minSubmergedProportion = 0.001

// Скорость, ниже которой сопротивление не считается
const dragSpeedEpsilon = 1e-9

// WaterSurface поверхность, относительно которой считается погружение
type WaterSurface interface {
	GetDisplacement(world mgl64.Vec3) mgl64.Vec3
	SurfaceLevel() float64
}

// StepResult итог одного физического шага плавучести
type StepResult struct {
	SubmergedPoints int        `json:"submerged_points"`
	DepthInWater    float64    `json:"depth_in_water"`
	BuoyantForce    mgl64.Vec3 `json:"buoyant_force"`
	DragForce       mgl64.Vec3 `json:"drag_force"`
	DragTorque      mgl64.Vec3 `json:"drag_torque"`
	DragSkipped     bool       `json:"drag_skipped"`
}

// BuoyantBody считает силу Архимеда и сопротивление для тела по точкам контакта
type BuoyantBody struct {
	ID string

	body     FloatingBody
	surface  WaterSurface
	config   BuoyancyConfig
	contacts []mgl64.Vec3

	last StepResult

	logger          *log.Logger
	inconsistentLog rate.Sometimes
}

// NewBuoyantBody создает плавучее тело. Без маркеров используются DefaultContactPoints
func NewBuoyantBody(id string, body FloatingBody, surface WaterSurface, config BuoyancyConfig, markers []Marker, logger *log.Logger) *BuoyantBody {
	if logger == nil {
		logger = log.Default()
	}

	var contacts []mgl64.Vec3
	if len(markers) == 0 {
		contacts = DefaultContactPoints(config.Size)
	} else {
		contacts = contactPoints(id, markers, logger)
	}
	if len(contacts) == 0 {
		logger.Printf("[BuoyantBody] %s: no water contact points, body will sink", id)
	}
	if config.Height() <= 0 {
		logger.Printf("[BuoyantBody] %s: non-positive height %.3f, buoyancy disabled", id, config.Height())
		config.BuoyancyEnabled = false
	}
	config.BuoyancyDamping = mathx.Clamp(config.BuoyancyDamping, 0, 1)

	return &BuoyantBody{
		ID:              id,
		body:            body,
		surface:         surface,
		config:          config,
		contacts:        contacts,
		logger:          logger,
		inconsistentLog: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
}

func (b *BuoyantBody) Body() FloatingBody              { return b.body }
func (b *BuoyantBody) Config() BuoyancyConfig          { return b.config }
func (b *BuoyantBody) ContactPoints() []mgl64.Vec3     { return append([]mgl64.Vec3(nil), b.contacts...) }
func (b *BuoyantBody) LastStep() StepResult            { return b.last }
func (b *BuoyantBody) SetSurface(surface WaterSurface) { b.surface = surface }

// DepthInWater средняя глубина погруженных точек на прошлом шаге
func (b *BuoyantBody) DepthInWater() float64 { return b.last.DepthInWater }

type submergedPoint struct {
	offset mgl64.Vec3
	depth  float64
}

// Step прикладывает к телу силы одного физического подшага длительностью dt секунд
func (b *BuoyantBody) Step(dt float64) StepResult {
	world := GetWorldConfig()
	result := StepResult{}

	submerged := b.submergedPoints()
	result.SubmergedPoints = len(submerged)

	if len(submerged) > 0 {
		total := 0.0
		for _, p := range submerged {
			total += p.depth
		}
		result.DepthInWater = total / float64(len(submerged))
	}

	if b.config.BuoyancyEnabled && len(submerged) > 0 {
		result.BuoyantForce = b.applyBuoyancy(world, submerged)
	}

	if b.config.DragEnabled {
		if !b.config.BuoyancyEnabled {
			b.inconsistentLog.Do(func() {
				b.logger.Printf("[BuoyantBody] %s: drag enabled without buoyancy, drag skipped", b.ID)
			})
			result.DragSkipped = true
		} else {
			result.DragForce, result.DragTorque = b.applyDrag(world, result.DepthInWater, dt)
		}
	}

	if b.config.ConstantDragEnabled {
		b.applyConstantDrag(dt)
	}

	b.last = result
	return result
}

func (b *BuoyantBody) submergedPoints() []submergedPoint {
	if b.surface == nil {
		return nil
	}

	position, rotation := b.body.Transform()
	level := b.surface.SurfaceLevel()

	points := make([]submergedPoint, 0, len(b.contacts))
	for _, local := range b.contacts {
		offset := rotation.Rotate(local)
		world := position.Add(offset)
		displacement := b.surface.GetDisplacement(world)

		depth := level + displacement.Y() - world.Y()
		if depth > 0 {
			points = append(points, submergedPoint{offset: offset, depth: depth})
		}
	}
	return points
}

// applyBuoyancy делит вес вытесненного объема поровну между погруженными точками
func (b *BuoyantBody) applyBuoyancy(world WorldPhysicsConfig, submerged []submergedPoint) mgl64.Vec3 {
	g := world.GravityMagnitude()
	if g == 0 {
		return mgl64.Vec3{}
	}
	up := world.Gravity.Mul(-1 / g)

	area := b.config.HorizontalArea()
	height := b.config.Height()
	share := (1 - b.config.BuoyancyDamping) / float64(len(submerged))

	total := mgl64.Vec3{}
	for _, p := range submerged {
		volume := area * min(p.depth, height)
		force := up.Mul(world.WaterDensity * g * volume * share)
		b.body.ApplyForce(force, p.offset)
		total = total.Add(force)
	}
	return total
}

// applyDrag квадратичное сопротивление, смешанное между воздухом и водой по доле погружения
func (b *BuoyantBody) applyDrag(world WorldPhysicsConfig, depthInWater, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	proportion := mathx.Clamp(depthInWater/b.config.Height()+b.config.SubmergedProportionOffset, minSubmergedProportion, 1)

	blend := func(area, airCd, waterCd, speed float64) float64 {
		air := 0.5 * world.AirDensity * area * airCd * speed * speed
		water := 0.5 * world.WaterDensity * area * waterCd * speed * speed
		return air + (water-air)*proportion
	}

	var force, torque mgl64.Vec3

	velocity := b.body.LinearVelocity()
	if speed := velocity.Len(); speed > dragSpeedEpsilon {
		magnitude := blend(b.config.ForwardArea(), b.config.AirDragLinear, b.config.WaterDragLinear, speed)
		force = velocity.Mul(-magnitude * dt / speed)
		b.body.ApplyCentralForce(force)
	}

	angular := b.body.AngularVelocity()
	if speed := angular.Len(); speed > dragSpeedEpsilon {
		magnitude := blend(b.config.SideArea(), b.config.AirDragAngular, b.config.WaterDragAngular, speed)
		torque = angular.Mul(-magnitude * dt / speed)
		b.body.ApplyTorque(torque)
	}

	return force, torque
}

func (b *BuoyantBody) applyConstantDrag(dt float64) {
	linear := 1 - mathx.Clamp(b.config.ConstantDragLinear*dt, 0, 1)
	angular := 1 - mathx.Clamp(b.config.ConstantDragAngular*dt, 0, 1)
	b.body.SetLinearVelocity(b.body.LinearVelocity().Mul(linear))
	b.body.SetAngularVelocity(b.body.AngularVelocity().Mul(angular))
}
