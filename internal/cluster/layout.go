package cluster

import (
	"math"

	"geomap/internal/geom"
)

// LayoutConfig holds spiderfy distances in micro-pixels.
type LayoutConfig struct {
	CircleRadius      float64
	SpiralStartRadius float64
	SpiralIncrement   float64
	// CircleSwitchover is the largest member count laid out on a circle.
	CircleSwitchover int
}

func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		CircleRadius:      40,
		SpiralStartRadius: 30,
		SpiralIncrement:   12,
		CircleSwitchover:  8,
	}
}

// Slot is one member's polar position around the anchor.
type Slot struct {
	Angle  float64
	Radius float64
}

// Offset converts the slot to a screen offset (y grows downwards).
func (s Slot) Offset() geom.Pixel {
	return geom.Pixel{X: s.Radius * math.Cos(s.Angle), Y: s.Radius * math.Sin(s.Angle)}
}

// CalculateLayout returns n slots. Up to CircleSwitchover members sit evenly
// on a circle starting at the top; larger groups follow a spiral with eight
// points per turn.
func CalculateLayout(n int, cfg LayoutConfig) []Slot {
	if n <= 0 {
		return nil
	}
	slots := make([]Slot, n)
	if n <= cfg.CircleSwitchover {
		step := 2 * math.Pi / float64(n)
		for i := range slots {
			slots[i] = Slot{Angle: float64(i)*step - math.Pi/2, Radius: cfg.CircleRadius}
		}
		return slots
	}
	angle, radius := 0.0, cfg.SpiralStartRadius
	for i := range slots {
		slots[i] = Slot{Angle: angle, Radius: radius}
		angle += 2 * math.Pi / 8
		radius += cfg.SpiralIncrement
	}
	return slots
}
