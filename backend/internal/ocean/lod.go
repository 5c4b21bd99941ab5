package ocean

import (
	"sync"

	"x-ocean/backend/internal/mathx"
)

// LinearLOD линейная кривая расстояние -> уровень подразбиения с кэшем.
// Расстояния до тайлов повторяются по кольцам, поэтому ключом кэша служит само расстояние.
type LinearLOD struct {
	startValue  int
	endValue    int
	step        int
	maxDistance float64

	mu     sync.Mutex
	cache  map[float64]int
	hits   uint64
	misses uint64
}

// NewLinearLOD создает кривую LOD
func NewLinearLOD(startValue, endValue, step int, maxDistance float64) *LinearLOD {
	if step < 1 {
		step = 1
	}
	return &LinearLOD{
		startValue:  startValue,
		endValue:    endValue,
		step:        step,
		maxDistance: maxDistance,
		cache:       make(map[float64]int),
	}
}

// ComputeLOD возвращает уровень для расстояния:
// start·(1 - clamp(d/max, 0, 1)), округленный вниз до кратного step, но не ниже end.
func (l *LinearLOD) ComputeLOD(distance float64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level, ok := l.cache[distance]; ok {
		l.hits++
		return level
	}
	l.misses++

	ratio := 1.0
	if l.maxDistance > 0 {
		ratio = mathx.Clamp(distance/l.maxDistance, 0, 1)
	}

	level := mathx.FloorToStep(float64(l.startValue)*(1-ratio), l.step)
	if level < l.endValue {
		level = l.endValue
	}

	l.cache[distance] = level
	return level
}

// CacheHits количество попаданий в кэш
func (l *LinearLOD) CacheHits() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits
}

// CacheMisses количество вычислений без кэша
func (l *LinearLOD) CacheMisses() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.misses
}
