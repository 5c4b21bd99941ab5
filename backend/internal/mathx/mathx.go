package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Number любые числовые типы, с которыми работает симуляция
type Number interface {
	constraints.Integer | constraints.Float
}

// Clamp ограничивает значение диапазоном [lo, hi]
func Clamp[T Number](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WrapAngle приводит угол к диапазону [0, 2π)
func WrapAngle(angle float64) float64 {
	wrapped := math.Mod(angle, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	// Mod может вернуть ровно 2π после сложения для очень малых отрицательных углов
	if wrapped >= 2*math.Pi {
		wrapped = 0
	}
	return wrapped
}

// AngleDelta возвращает знаковую разницу углов a-b в диапазоне [-π, π)
func AngleDelta(a, b float64) float64 {
	d := WrapAngle(a-b+math.Pi) - math.Pi
	return d
}

// FloorToStep округляет v вниз до ближайшего кратного step
func FloorToStep(v float64, step int) int {
	if step <= 1 {
		return int(math.Floor(v))
	}
	return int(math.Floor(v/float64(step))) * step
}
