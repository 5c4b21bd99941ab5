package water

import (
	"errors"
	"fmt"
	"math"
)

// Gravity ускорение свободного падения для дисперсионного соотношения
const Gravity = 9.81

var (
	ErrInvalidDepth      = errors.New("water depth must be positive")
	ErrSteepness         = errors.New("wave steepness k*amplitude must be below 1")
	ErrNegativeWaveCount = errors.New("wave count must not be negative")
)

// Wave описывает одну бегущую волну Герстнера.
// Производные поля вычисляются один раз в NewWave и дальше не меняются.
type Wave struct {
	Wavelength float64
	Amplitude  float64
	WindAngle  float64
	PhaseShift float64
	WaterDepth float64

	KX               float64
	KZ               float64
	K                float64 // |(KX, KZ)|
	AngularFrequency float64 // ω = sqrt(g·k·tanh(k·h))

	// Горизонтальные множители смещения: (kX/k)·(a/tanh(k·h))
	ProductOperandX float64
	ProductOperandZ float64
}

// NewWave строит волну и выводит волновой вектор и частоту из дисперсионного соотношения.
// Нарушение ограничений не фатально: волна создается, а Validate сообщает о проблеме.
func NewWave(wavelength, amplitude, windAngle, phaseShift, waterDepth float64) Wave {
	k := 2 * math.Pi / wavelength
	kh := math.Tanh(k * waterDepth)

	w := Wave{
		Wavelength:       wavelength,
		Amplitude:        amplitude,
		WindAngle:        windAngle,
		PhaseShift:       phaseShift,
		WaterDepth:       waterDepth,
		KX:               k * math.Cos(windAngle),
		KZ:               k * math.Sin(windAngle),
		K:                k,
		AngularFrequency: math.Sqrt(Gravity * k * kh),
	}

	w.ProductOperandX = (w.KX / k) * (amplitude / kh)
	w.ProductOperandZ = (w.KZ / k) * (amplitude / kh)

	return w
}

// Steepness возвращает k·a
func (w Wave) Steepness() float64 {
	return w.K * w.Amplitude
}

// Validate проверяет физическую корректность волны
func (w Wave) Validate() error {
	if w.WaterDepth <= 0 {
		return fmt.Errorf("wave λ=%.2f: %w (got %.3f)", w.Wavelength, ErrInvalidDepth, w.WaterDepth)
	}
	if w.Steepness() >= 1 {
		return fmt.Errorf("wave λ=%.2f a=%.3f: %w (got %.3f)", w.Wavelength, w.Amplitude, ErrSteepness, w.Steepness())
	}
	return nil
}
