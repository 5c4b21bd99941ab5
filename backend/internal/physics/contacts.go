package physics

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
)

// MarkerKind тип маркера, прикрепленного к телу
type MarkerKind int

const (
	MarkerWaterContact MarkerKind = iota
	MarkerCollision
	MarkerVisual
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerWaterContact:
		return "water_contact"
	case MarkerCollision:
		return "collision"
	case MarkerVisual:
		return "visual"
	default:
		return "unknown"
	}
}

// Marker точка в локальных осях тела
type Marker struct {
	Name  string
	Kind  MarkerKind
	Local mgl64.Vec3
}

// WaterContact создает маркер точки контакта с водой
func WaterContact(name string, local mgl64.Vec3) Marker {
	return Marker{Name: name, Kind: MarkerWaterContact, Local: local}
}

// DefaultContactPoints восемь углов габарита: четыре на уровне киля и четыре на уровне палубы
func DefaultContactPoints(size mgl64.Vec3) []mgl64.Vec3 {
	hx, hy, hz := size.X()/2, size.Y()/2, size.Z()/2
	points := make([]mgl64.Vec3, 0, 8)
	for _, y := range []float64{-hy, hy} {
		points = append(points,
			mgl64.Vec3{-hx, y, -hz},
			mgl64.Vec3{hx, y, -hz},
			mgl64.Vec3{-hx, y, hz},
			mgl64.Vec3{hx, y, hz},
		)
	}
	return points
}

// contactPoints оставляет только маркеры контакта с водой, остальные пропускаются с записью в лог
func contactPoints(bodyID string, markers []Marker, logger *log.Logger) []mgl64.Vec3 {
	points := make([]mgl64.Vec3, 0, len(markers))
	for _, m := range markers {
		if m.Kind != MarkerWaterContact {
			logger.Printf("[BuoyantBody] %s: marker %q has kind %s, expected %s; skipped",
				bodyID, m.Name, m.Kind, MarkerWaterContact)
			continue
		}
		points = append(points, m.Local)
	}
	return points
}
