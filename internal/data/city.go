package data

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/flockcity/sim/internal/geom"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Skyscraper is one box obstacle. PosY is the box centre height; when
// omitted the box stands on the ground (PosY = Height/2).
type Skyscraper struct {
	PosX   float64  `yaml:"pos_x"`
	PosY   *float64 `yaml:"pos_y,omitempty"`
	PosZ   float64  `yaml:"pos_z"`
	Width  float64  `yaml:"width"`
	Length float64  `yaml:"length"`
	Height float64  `yaml:"height"`
}

// Bounds returns the obstacle box.
func (s Skyscraper) Bounds() geom.Bounds {
	if s.PosY == nil {
		return world.Footprint(s.PosX, s.PosZ, s.Width, s.Length, s.Height)
	}
	return geom.NewBounds(mgl64.Vec3{s.PosX, *s.PosY, s.PosZ}, mgl64.Vec3{s.Width, s.Height, s.Length})
}

// CityLayout is the obstacle file: YAML, or the equivalent JSON document
// with a top-level "skyscrapers" array.
type CityLayout struct {
	Skyscrapers []Skyscraper `yaml:"skyscrapers"`
}

// Obstacles returns every skyscraper box in file order.
func (l *CityLayout) Obstacles() []geom.Bounds {
	out := make([]geom.Bounds, len(l.Skyscrapers))
	for i, s := range l.Skyscrapers {
		out[i] = s.Bounds()
	}
	return out
}

// Count returns the number of skyscrapers.
func (l *CityLayout) Count() int {
	return len(l.Skyscrapers)
}

// --- YAML loading ---

// LoadCity reads a city layout from path.
func LoadCity(path string) (*CityLayout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("city: read %s: %w", path, err)
	}
	l, err := ParseCity(raw)
	if err != nil {
		return nil, fmt.Errorf("city: %s: %w", path, err)
	}
	return l, nil
}

// ParseCity decodes and validates a city layout.
func ParseCity(raw []byte) (*CityLayout, error) {
	var l CityLayout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	for i, s := range l.Skyscrapers {
		if !(s.Width > 0) || !(s.Length > 0) || !(s.Height > 0) {
			return nil, fmt.Errorf("skyscraper %d: dimensions must be positive, got %vx%vx%v", i, s.Width, s.Length, s.Height)
		}
		if math.IsNaN(s.PosX) || math.IsNaN(s.PosZ) {
			return nil, fmt.Errorf("skyscraper %d: position is not a number", i)
		}
	}
	return &l, nil
}

// GenerateCity lays count towers on a jittered grid across the floor of
// area, leaving a clear band around the edges. Heights span the lower
// two thirds of the area so flocks can pass over the roofs.
func GenerateCity(count int, seed int64, area geom.Bounds) *CityLayout {
	l := &CityLayout{}
	if count <= 0 {
		return l
	}
	rng := rand.New(rand.NewSource(seed))

	cols := int(math.Ceil(math.Sqrt(float64(count))))
	rows := (count + cols - 1) / cols
	inner := area.Size.Mul(0.7)
	cellX := inner[0] / float64(cols)
	cellZ := inner[2] / float64(rows)

	for i := 0; i < count; i++ {
		col, row := i%cols, i/cols
		w := cellX * (0.35 + 0.3*rng.Float64())
		d := cellZ * (0.35 + 0.3*rng.Float64())
		h := area.Size[1] * (0.2 + 0.45*rng.Float64())
		jx := (cellX - w) * 0.5 * geom.RandomBinomial(rng)
		jz := (cellZ - d) * 0.5 * geom.RandomBinomial(rng)
		l.Skyscrapers = append(l.Skyscrapers, Skyscraper{
			PosX:   area.Center[0] - inner[0]/2 + cellX*(float64(col)+0.5) + jx,
			PosZ:   area.Center[2] - inner[2]/2 + cellZ*(float64(row)+0.5) + jz,
			Width:  w,
			Length: d,
			Height: h,
		})
	}
	return l
}

// Marshal encodes the layout as YAML.
func (l *CityLayout) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}
