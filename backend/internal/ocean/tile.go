package ocean

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"x-ocean/backend/internal/water"
)

// TileIndex целочисленные координаты тайла относительно плавающего начала координат
type TileIndex struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Name детерминированное имя тайла по его индексам
func (i TileIndex) Name() string {
	return fmt.Sprintf("WaterTile_%d_%d", i.X, i.Z)
}

// Add покомпонентная сумма индексов
func (i TileIndex) Add(o TileIndex) TileIndex {
	return TileIndex{X: i.X + o.X, Z: i.Z + o.Z}
}

// Tile один квадрат поверхности. Форма (подразбиение, положение) задается
// только при создании; reconfigure меняет лишь общие параметры поверхности.
type Tile struct {
	index          TileIndex
	name           string
	subdivisions   int
	noDisplacement bool
	localOrigin    mgl64.Vec3 // Центр тайла относительно позиции сетки
	meshSize       float64

	waveSet      *water.WaveSet
	damping      float64
	debugVisuals bool
}

func newTile(index TileIndex, subdivisions int, noDisplacement bool, localOrigin mgl64.Vec3, meshSize float64) *Tile {
	return &Tile{
		index:          index,
		name:           index.Name(),
		subdivisions:   subdivisions,
		noDisplacement: noDisplacement,
		localOrigin:    localOrigin,
		meshSize:       meshSize,
	}
}

// reconfigure передает тайлу текущие параметры поверхности без пересоздания меша
func (t *Tile) reconfigure(waveSet *water.WaveSet, damping float64, debugVisuals bool) {
	t.waveSet = waveSet
	t.damping = damping
	t.debugVisuals = debugVisuals
}

// Displacement смещение поверхности тайла в мировой точке (x, z)
func (t *Tile) Displacement(x, z, waveTime float64) mgl64.Vec3 {
	if t.noDisplacement || t.waveSet == nil {
		return mgl64.Vec3{}
	}
	return water.Displacement(t.waveSet.Waves(), x, z, waveTime).Mul(1 - t.damping)
}

// Normal нормаль поверхности тайла в мировой точке (x, z)
func (t *Tile) Normal(x, z, waveTime float64) mgl64.Vec3 {
	if t.noDisplacement || t.waveSet == nil || t.damping >= 1 {
		return mgl64.Vec3{0, 1, 0}
	}
	return water.ScaledNormal(t.waveSet.Waves(), x, z, waveTime, 1-t.damping)
}

// Index индексы тайла
func (t *Tile) Index() TileIndex { return t.index }

// Name имя тайла
func (t *Tile) Name() string { return t.name }

// Subdivisions количество подразбиений меша
func (t *Tile) Subdivisions() int { return t.subdivisions }

// NoDisplacement true для плоских дальних тайлов
func (t *Tile) NoDisplacement() bool { return t.noDisplacement }

// TileSnapshot неизменяемое описание тайла для клиентов и отладки
type TileSnapshot struct {
	Index          TileIndex  `json:"index"`
	Name           string     `json:"name"`
	Subdivisions   int        `json:"subdivisions"`
	NoDisplacement bool       `json:"no_displacement"`
	Origin         mgl64.Vec3 `json:"origin"`
	MeshSize       float64    `json:"mesh_size"`
	DebugVisuals   bool       `json:"debug_visuals"`
}

func (t *Tile) snapshot(gridPosition mgl64.Vec3) TileSnapshot {
	return TileSnapshot{
		Index:          t.index,
		Name:           t.name,
		Subdivisions:   t.subdivisions,
		NoDisplacement: t.noDisplacement,
		Origin:         gridPosition.Add(t.localOrigin),
		MeshSize:       t.meshSize,
		DebugVisuals:   t.debugVisuals,
	}
}
