package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// FloatingBody контракт твердого тела, на которое действуют силы воды
type FloatingBody interface {
	Mass() float64
	Transform() (position mgl64.Vec3, rotation mgl64.Quat)
	LinearVelocity() mgl64.Vec3
	AngularVelocity() mgl64.Vec3
	SetLinearVelocity(v mgl64.Vec3)
	SetAngularVelocity(w mgl64.Vec3)
	// ApplyForce прикладывает силу в точке, заданной смещением от центра масс в мировых осях
	ApplyForce(force, offset mgl64.Vec3)
	ApplyCentralForce(force mgl64.Vec3)
	ApplyTorque(torque mgl64.Vec3)
}

// RigidBody твердое тело-параллелепипед с накоплением сил и
// полунеявным интегрированием Эйлера
type RigidBody struct {
	ID string

	mass           float64
	size           mgl64.Vec3
	invInertiaBody mgl64.Mat3

	position        mgl64.Vec3
	rotation        mgl64.Quat
	velocity        mgl64.Vec3
	angularVelocity mgl64.Vec3

	force  mgl64.Vec3
	torque mgl64.Vec3
}

// NewBoxBody создает тело-параллелепипед с тензором инерции однородного бруса
func NewBoxBody(id string, mass float64, size, position mgl64.Vec3) *RigidBody {
	x2, y2, z2 := size.X()*size.X(), size.Y()*size.Y(), size.Z()*size.Z()
	inertia := mgl64.Vec3{
		mass / 12 * (y2 + z2),
		mass / 12 * (x2 + z2),
		mass / 12 * (x2 + y2),
	}

	var inv mgl64.Vec3
	for i := range inertia {
		if inertia[i] > 0 {
			inv[i] = 1 / inertia[i]
		}
	}

	return &RigidBody{
		ID:             id,
		mass:           mass,
		size:           size,
		invInertiaBody: mgl64.Diag3(inv),
		position:       position,
		rotation:       mgl64.QuatIdent(),
	}
}

func (b *RigidBody) Mass() float64    { return b.mass }
func (b *RigidBody) Size() mgl64.Vec3 { return b.size }

func (b *RigidBody) Transform() (mgl64.Vec3, mgl64.Quat) {
	return b.position, b.rotation
}

func (b *RigidBody) Position() mgl64.Vec3 { return b.position }
func (b *RigidBody) Rotation() mgl64.Quat { return b.rotation }

// SetTransform телепортирует тело; поворот нормализуется
func (b *RigidBody) SetTransform(position mgl64.Vec3, rotation mgl64.Quat) {
	b.position = position
	b.rotation = rotation.Normalize()
}

func (b *RigidBody) LinearVelocity() mgl64.Vec3      { return b.velocity }
func (b *RigidBody) AngularVelocity() mgl64.Vec3     { return b.angularVelocity }
func (b *RigidBody) SetLinearVelocity(v mgl64.Vec3)  { b.velocity = v }
func (b *RigidBody) SetAngularVelocity(w mgl64.Vec3) { b.angularVelocity = w }

func (b *RigidBody) ApplyForce(force, offset mgl64.Vec3) {
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(offset.Cross(force))
}

func (b *RigidBody) ApplyCentralForce(force mgl64.Vec3) {
	b.force = b.force.Add(force)
}

func (b *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	b.torque = b.torque.Add(torque)
}

// AccumulatedForce сумма сил, накопленных с прошлого Integrate
func (b *RigidBody) AccumulatedForce() mgl64.Vec3 { return b.force }

// AccumulatedTorque сумма моментов, накопленных с прошлого Integrate
func (b *RigidBody) AccumulatedTorque() mgl64.Vec3 { return b.torque }

// Integrate продвигает тело на dt и сбрасывает накопленные силы
func (b *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	defer func() {
		b.force = mgl64.Vec3{}
		b.torque = mgl64.Vec3{}
	}()

	if b.mass <= 0 || dt <= 0 {
		return
	}

	acceleration := b.force.Mul(1 / b.mass).Add(gravity)
	b.velocity = b.velocity.Add(acceleration.Mul(dt))

	// I⁻¹ в мировых осях: R·I⁻¹·Rᵀ
	r := b.rotation.Mat4().Mat3()
	invInertia := r.Mul3(b.invInertiaBody).Mul3(r.Transpose())
	b.angularVelocity = b.angularVelocity.Add(invInertia.Mul3x1(b.torque).Mul(dt))

	b.position = b.position.Add(b.velocity.Mul(dt))

	if b.angularVelocity.Len() > 0 {
		spin := mgl64.Quat{W: 0, V: b.angularVelocity.Mul(0.5 * dt)}
		b.rotation = b.rotation.Add(spin.Mul(b.rotation)).Normalize()
	}
}
