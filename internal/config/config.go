package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Boids      BoidsConfig      `toml:"boids"`
	Steering   SteeringConfig   `toml:"steering"`
	Projectile ProjectileConfig `toml:"projectile"`
	Camera     CameraConfig     `toml:"camera"`
	City       CityConfig       `toml:"city"`
	Script     ScriptConfig     `toml:"script"`
	Journal    JournalConfig    `toml:"journal"`
	Viewer     ViewerConfig     `toml:"viewer"`
	Logging    LoggingConfig    `toml:"logging"`
}

type SimulationConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	MaxTicks uint64        `toml:"max_ticks"` // 0 = run until signalled
	Seed     int64         `toml:"seed"`      // 0 = time based
	Realtime bool          `toml:"realtime"`  // false = step as fast as possible
}

type BoidsConfig struct {
	InitialCount           int        `toml:"initial_count"`
	Flocks                 int        `toml:"flocks"`
	MinSpeed               float64    `toml:"min_speed"`
	MaxSpeed               float64    `toml:"max_speed"`
	AccelerationMultiplier float64    `toml:"acceleration_multiplier"`
	Radius                 float64    `toml:"radius"`
	CellSize               float64    `toml:"cell_size"`
	BoundsSize             [3]float64 `toml:"bounds_size"`
	MinHeightFactor        float64    `toml:"min_height_factor"` // spawn never below this fraction of the vertical extent
	SteeringInterval       float64    `toml:"steering_interval"` // seconds between steering recomputes
	IntervalIncrement      float64    `toml:"interval_increment"`
	IntervalDecrement      float64    `toml:"interval_decrement"`
	SpawnIncrement         int        `toml:"spawn_increment"`
	DespawnDecrement       int        `toml:"despawn_decrement"`
}

type SteeringConfig struct {
	VisionRadius     float64 `toml:"vision_radius"`
	VisionHalfAngle  float64 `toml:"vision_half_angle"` // degrees
	BoundsMargin     float64 `toml:"bounds_margin"`
	CameraRadius     float64 `toml:"camera_radius"`
	ProjectileRadius float64 `toml:"projectile_radius"`
	ObstacleDistance float64 `toml:"obstacle_distance"`
	BoundsWeight     float64 `toml:"bounds_weight"`
	CameraWeight     float64 `toml:"camera_weight"`
	ProjectileWeight float64 `toml:"projectile_weight"`
	ObstacleWeight   float64 `toml:"obstacle_weight"`
	CohesionWeight   float64 `toml:"cohesion_weight"`
	AlignmentWeight  float64 `toml:"alignment_weight"`
	SeparationWeight float64 `toml:"separation_weight"`
}

type ProjectileConfig struct {
	Radius       float64 `toml:"radius"`
	Speed        float64 `toml:"speed"`
	Drag         float64 `toml:"drag"`
	Energy       float64 `toml:"energy"`
	PursueRadius float64 `toml:"pursue_radius"`
	Acceleration float64 `toml:"acceleration"`
	MaxConsumed  int     `toml:"max_consumed"`
}

type CameraConfig struct {
	Position   [3]float64 `toml:"position"`
	Direction  [3]float64 `toml:"direction"`
	OrbitSpeed float64    `toml:"orbit_speed"` // rad/s around the bounds centre, 0 = static
}

type CityConfig struct {
	Path          string `toml:"path"` // yaml or json; empty = generate
	GenerateCount int    `toml:"generate_count"`
	Seed          int64  `toml:"seed"`
}

type ScriptConfig struct {
	Path string `toml:"path"` // empty = no scenario
}

type JournalConfig struct {
	Driver      string `toml:"driver"` // "postgres", "sqlite", "" = disabled
	DSN         string `toml:"dsn"`
	SampleEvery int    `toml:"sample_every"` // ticks between samples
	BatchSize   int    `toml:"batch_size"`   // samples per insert transaction
}

type ViewerConfig struct {
	BindAddress  string `toml:"bind_address"` // empty = no websocket feed
	RecordPath   string `toml:"record_path"`  // empty = no recording
	Every        int    `toml:"every"`        // ticks between snapshots
	OutQueueSize int    `toml:"out_queue_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads the TOML file at path over the defaults. When optional is set
// a missing file yields the defaults instead of an error.
func Load(path string, optional bool) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

// Validate rejects configurations the simulation treats as contract
// violations.
func (c *Config) Validate() error {
	b := c.Boids
	switch {
	case b.Flocks < 1 || b.Flocks > 256:
		return fmt.Errorf("boids.flocks must be in [1, 256], got %d", b.Flocks)
	case b.MinSpeed < 0 || b.MinSpeed > b.MaxSpeed:
		return fmt.Errorf("boids speed band [%v, %v] is invalid", b.MinSpeed, b.MaxSpeed)
	case b.CellSize <= 0:
		return fmt.Errorf("boids.cell_size must be positive, got %v", b.CellSize)
	case b.BoundsSize[0] <= 0 || b.BoundsSize[1] <= 0 || b.BoundsSize[2] <= 0:
		return fmt.Errorf("boids.bounds_size must be positive, got %v", b.BoundsSize)
	case b.InitialCount < 0:
		return fmt.Errorf("boids.initial_count must not be negative")
	case b.SteeringInterval < 0:
		return fmt.Errorf("boids.steering_interval must not be negative")
	}
	s := c.Steering
	if s.BoundsMargin <= 0 || s.VisionRadius <= 0 || s.CameraRadius <= 0 ||
		s.ProjectileRadius <= 0 || s.ObstacleDistance <= 0 {
		return fmt.Errorf("steering radii and margins must be positive")
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive")
	}
	switch c.Journal.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("journal.driver %q is not supported", c.Journal.Driver)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate: 16 * time.Millisecond,
			Realtime: true,
		},
		Boids: BoidsConfig{
			InitialCount:           1000,
			Flocks:                 2,
			MinSpeed:               6.5,
			MaxSpeed:               10.5,
			AccelerationMultiplier: 50,
			Radius:                 0.6,
			CellSize:               6,
			BoundsSize:             [3]float64{45, 35, 45},
			MinHeightFactor:        0.5,
			SteeringInterval:       0,
			IntervalIncrement:      0.015,
			IntervalDecrement:      0.0075,
			SpawnIncrement:         500,
			DespawnDecrement:       250,
		},
		Steering: SteeringConfig{
			VisionRadius:     3,
			VisionHalfAngle:  130,
			BoundsMargin:     5,
			CameraRadius:     5,
			ProjectileRadius: 10,
			ObstacleDistance: 2.5,
			BoundsWeight:     3,
			CameraWeight:     2,
			ProjectileWeight: 2.2,
			ObstacleWeight:   4,
			CohesionWeight:   1.75,
			AlignmentWeight:  1,
			SeparationWeight: 1.2,
		},
		Projectile: ProjectileConfig{
			Radius:       1,
			Speed:        65,
			Drag:         2,
			Energy:       5,
			PursueRadius: 10,
			Acceleration: 30,
			MaxConsumed:  10,
		},
		Camera: CameraConfig{
			Position:  [3]float64{0, 17, -40.5},
			Direction: [3]float64{0, 0, 1},
		},
		City: CityConfig{
			GenerateCount: 12,
			Seed:          1,
		},
		Journal: JournalConfig{
			SampleEvery: 60,
			BatchSize:   16,
		},
		Viewer: ViewerConfig{
			Every:        2,
			OutQueueSize: 32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
