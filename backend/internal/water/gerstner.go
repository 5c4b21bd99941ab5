package water

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Соглашение о координатах: X и Z горизонтальные, Y вертикальная ось.
// Функции ниже чистые и безопасны для параллельного вызова.

func phase(w *Wave, x, z, t float64) float64 {
	return w.KX*x + w.KZ*z - w.AngularFrequency*t - w.PhaseShift
}

// Displacement возвращает смещение поверхности в точке (x, z) в момент t
func Displacement(waves []Wave, x, z, t float64) mgl64.Vec3 {
	var d mgl64.Vec3
	for i := range waves {
		w := &waves[i]
		sin, cos := math.Sincos(phase(w, x, z, t))
		d[0] -= w.ProductOperandX * sin
		d[1] += w.Amplitude * cos
		d[2] -= w.ProductOperandZ * sin
	}
	return d
}

// Normal возвращает нормаль к смещенной поверхности.
// Касательные берутся как частные производные смещенной позиции
// (x + Dx, Dy, z + Dz) по исходным x и z, нормаль = tangentZ × tangentX.
func Normal(waves []Wave, x, z, t float64) mgl64.Vec3 {
	return ScaledNormal(waves, x, z, t, 1)
}

// ScaledNormal нормаль поверхности, смещение которой умножено на scale
func ScaledNormal(waves []Wave, x, z, t, scale float64) mgl64.Vec3 {
	tangentX := mgl64.Vec3{1, 0, 0}
	tangentZ := mgl64.Vec3{0, 0, 1}

	for i := range waves {
		w := &waves[i]
		sin, cos := math.Sincos(phase(w, x, z, t))
		sin, cos = sin*scale, cos*scale

		// d(-pX·sinθ)/dx = -pX·cosθ·kX, d(a·cosθ)/dx = -a·sinθ·kX
		tangentX[0] -= w.ProductOperandX * cos * w.KX
		tangentX[1] -= w.Amplitude * sin * w.KX
		tangentX[2] -= w.ProductOperandZ * cos * w.KX

		tangentZ[0] -= w.ProductOperandX * cos * w.KZ
		tangentZ[1] -= w.Amplitude * sin * w.KZ
		tangentZ[2] -= w.ProductOperandZ * cos * w.KZ
	}

	n := tangentZ.Cross(tangentX)
	if n.Len() == 0 {
		return mgl64.Vec3{0, 1, 0}
	}
	return n.Normalize()
}
