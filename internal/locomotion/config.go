// Package locomotion classifies whether the user is walking from the per-tick head position.
package locomotion

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned when a Config cannot drive a classifier.
var ErrInvalidConfig = errors.New("invalid locomotion config")

// SpeedMode selects how the walking speed is estimated.
type SpeedMode string

const (
	// SpeedWindowed averages the horizontal movement buffer over the sampling interval.
	SpeedWindowed SpeedMode = "windowed"
	// SpeedInstantaneous divides the current frame's horizontal displacement by dt.
	SpeedInstantaneous SpeedMode = "instantaneous"
)

// Config holds the tunable parameters of the locomotion classifier.
// Distances are in tracking-space meters, durations in seconds.
type Config struct {
	// HorizontalThreshold is the minimum smoothed ground-plane movement per tick.
	HorizontalThreshold float64 `json:"horizontal_threshold" yaml:"horizontal_threshold"`
	// VerticalThreshold scales the vertical pattern score.
	VerticalThreshold float64 `json:"vertical_threshold" yaml:"vertical_threshold"`
	// PatternWindow is the length of history used for periodicity analysis.
	PatternWindow float64 `json:"pattern_window" yaml:"pattern_window"`
	// BufferInterval is the fixed cadence at which smoothed values enter the buffers.
	BufferInterval float64 `json:"buffer_interval" yaml:"buffer_interval"`
	// MinWalkingSpeed is the lowest speed (m/s) counted as walking.
	MinWalkingSpeed float64 `json:"min_walking_speed" yaml:"min_walking_speed"`
	// SmoothingFactor is the EMA weight of the previous value (0 disables smoothing).
	SmoothingFactor float64 `json:"smoothing_factor" yaml:"smoothing_factor"`
	// PatternThreshold is the minimum vertical pattern score for the walking gate.
	PatternThreshold float64 `json:"pattern_threshold" yaml:"pattern_threshold"`
	// DirectionThreshold is the minimum direction stability for the walking gate.
	DirectionThreshold float64 `json:"direction_threshold" yaml:"direction_threshold"`
	// StepsPerSecond is the expected gait cadence used to score peak counts.
	StepsPerSecond float64 `json:"steps_per_second" yaml:"steps_per_second"`

	SpeedMode SpeedMode `json:"speed_mode" yaml:"speed_mode"`

	// Persist keeps IsWalking true for WalkingStateDuration after the gate last fired.
	Persist              bool    `json:"persist" yaml:"persist"`
	WalkingStateDuration float64 `json:"walking_state_duration" yaml:"walking_state_duration"`
}

// DefaultConfig returns the thresholds used in the motion study.
func DefaultConfig() Config {
	return Config{
		HorizontalThreshold:  0.001,
		VerticalThreshold:    0.0005,
		PatternWindow:        1.0,
		BufferInterval:       0.05,
		MinWalkingSpeed:      0.2,
		SmoothingFactor:      0.2,
		PatternThreshold:     0.7,
		DirectionThreshold:   0.9,
		StepsPerSecond:       2,
		SpeedMode:            SpeedWindowed,
		Persist:              true,
		WalkingStateDuration: 1.0,
	}
}

// BufferCapacity returns ceil(PatternWindow / BufferInterval).
func (c Config) BufferCapacity() int {
	if c.BufferInterval <= 0 {
		return 0
	}
	// Shave rounding noise so 1.0/0.05 stays 20 rather than 21.
	return int(math.Ceil(c.PatternWindow/c.BufferInterval - 1e-9))
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.PatternWindow <= 0:
		return fmt.Errorf("%w: pattern_window must be positive", ErrInvalidConfig)
	case c.BufferInterval <= 0:
		return fmt.Errorf("%w: buffer_interval must be positive", ErrInvalidConfig)
	case c.BufferCapacity() < 1:
		return fmt.Errorf("%w: pattern_window shorter than buffer_interval", ErrInvalidConfig)
	case c.HorizontalThreshold < 0 || c.VerticalThreshold < 0:
		return fmt.Errorf("%w: movement thresholds must not be negative", ErrInvalidConfig)
	case c.MinWalkingSpeed < 0:
		return fmt.Errorf("%w: min_walking_speed must not be negative", ErrInvalidConfig)
	case c.SmoothingFactor < 0 || c.SmoothingFactor >= 1:
		return fmt.Errorf("%w: smoothing_factor must be in [0, 1)", ErrInvalidConfig)
	case c.StepsPerSecond <= 0:
		return fmt.Errorf("%w: steps_per_second must be positive", ErrInvalidConfig)
	case c.Persist && c.WalkingStateDuration < 0:
		return fmt.Errorf("%w: walking_state_duration must not be negative", ErrInvalidConfig)
	}

	switch c.SpeedMode {
	case SpeedWindowed, SpeedInstantaneous:
	default:
		return fmt.Errorf("%w: unknown speed_mode %q", ErrInvalidConfig, c.SpeedMode)
	}
	return nil
}
