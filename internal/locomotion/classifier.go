package locomotion

import (
	"math"

	"github.com/ayusman/gaitgrip/internal/pose"
)

// State is the immutable output of one classifier step.
type State struct {
	IsWalking bool `json:"is_walking"`
	// Gate is the unpersisted walking decision for this tick.
	Gate bool `json:"gate"`

	SmoothedHorizontal     float64   `json:"smoothed_horizontal"`
	SmoothedVertical       float64   `json:"smoothed_vertical"`
	DirectionStability     float64   `json:"direction_stability"`
	VerticalPatternScore   float64   `json:"vertical_pattern_score"`
	HorizontalPatternScore float64   `json:"horizontal_pattern_score"`
	AverageHorizontalSpeed float64   `json:"average_horizontal_speed"`
	RawFrameMovement       pose.Vec3 `json:"raw_frame_movement"`
	// TimeSinceLastWalking is +Inf until the gate has fired once.
	TimeSinceLastWalking float64 `json:"-"`
}

// Classifier turns head position deltas into a walking state.
// It is not safe for concurrent use; one goroutine owns it and calls Step once per tick.
type Classifier struct {
	cfg Config

	vertical   *MovementBuffer
	horizontal *MovementBuffer

	prevHead    pose.Vec3
	initialized bool

	sinceBufferPush    float64
	smoothedHorizontal float64
	smoothedVertical   float64
	directionStability float64
	prevDirection      pose.Vec2
	walkingTimer       float64
	sinceWalking       float64

	state State
}

// New creates a Classifier for cfg.
func New(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capacity := cfg.BufferCapacity()
	return &Classifier{
		cfg:          cfg,
		vertical:     NewMovementBuffer(capacity),
		horizontal:   NewMovementBuffer(capacity),
		sinceWalking: math.Inf(1),
		state:        State{TimeSinceLastWalking: math.Inf(1)},
	}, nil
}

// Config returns the configuration the classifier was built with.
func (c *Classifier) Config() Config {
	return c.cfg
}

// State returns the output of the most recent step.
func (c *Classifier) State() State {
	return c.state
}

// Step consumes the head position for one tick of dt seconds.
//
// A tick with dt <= 0 is treated as a tick without movement: the head anchor is
// re-latched, the buffers do not advance and speed outputs read 0.
func (c *Classifier) Step(dt float64, head pose.Vec3) State {
	validTick := dt > 0

	if !c.initialized {
		c.prevHead = head
		c.initialized = true
	}

	var movement pose.Vec3
	if validTick {
		movement = head.Sub(c.prevHead)
	}
	c.prevHead = head

	horizontal := movement.Horizontal()
	horizontalLen := horizontal.Len()
	verticalLen := math.Abs(movement.Y)

	a := c.cfg.SmoothingFactor
	c.smoothedHorizontal = a*c.smoothedHorizontal + (1-a)*horizontalLen
	c.smoothedVertical = a*c.smoothedVertical + (1-a)*verticalLen

	if validTick {
		c.advanceBuffers(dt)
	}

	// A degenerate direction on either side leaves the stability score alone.
	direction := horizontal.Normalized()
	if horizontalLen > c.cfg.HorizontalThreshold && c.prevDirection.Len() > 0.1 {
		similarity := clamp01(direction.Dot(c.prevDirection))
		c.directionStability = a*c.directionStability + (1-a)*similarity
	}
	if validTick {
		c.prevDirection = direction
	}

	verticalScore := PatternScore(c.vertical.Values(), c.cfg.VerticalThreshold, c.cfg.PatternWindow, c.cfg.StepsPerSecond)
	horizontalScore := PatternScore(c.horizontal.Values(), c.cfg.HorizontalThreshold, c.cfg.PatternWindow, c.cfg.StepsPerSecond)

	speed := 0.0
	if validTick {
		speed = c.speed(dt, horizontalLen)
	}

	gate := c.smoothedHorizontal >= c.cfg.HorizontalThreshold &&
		verticalScore >= c.cfg.PatternThreshold &&
		c.directionStability >= c.cfg.DirectionThreshold &&
		speed >= c.cfg.MinWalkingSpeed

	step := math.Max(dt, 0)
	if gate {
		c.walkingTimer = c.cfg.WalkingStateDuration
		c.sinceWalking = 0
	} else {
		c.walkingTimer = math.Max(0, c.walkingTimer-step)
		c.sinceWalking += step
	}

	isWalking := gate
	if c.cfg.Persist {
		isWalking = gate || c.walkingTimer > 0
	}

	c.state = State{
		IsWalking:              isWalking,
		Gate:                   gate,
		SmoothedHorizontal:     c.smoothedHorizontal,
		SmoothedVertical:       c.smoothedVertical,
		DirectionStability:     c.directionStability,
		VerticalPatternScore:   verticalScore,
		HorizontalPatternScore: horizontalScore,
		AverageHorizontalSpeed: speed,
		RawFrameMovement:       movement,
		TimeSinceLastWalking:   c.sinceWalking,
	}
	return c.state
}

// advanceBuffers pushes the smoothed magnitudes on the fixed buffer cadence,
// independent of how long each tick took. A long stall pushes at most one
// buffer's worth of samples.
func (c *Classifier) advanceBuffers(dt float64) {
	c.sinceBufferPush += dt
	interval := c.cfg.BufferInterval
	pushes := 0
	for c.sinceBufferPush >= interval {
		if pushes < c.vertical.Len() {
			c.vertical.Push(c.smoothedVertical)
			c.horizontal.Push(c.smoothedHorizontal)
			pushes++
		}
		c.sinceBufferPush -= interval
		if pushes >= c.vertical.Len() {
			c.sinceBufferPush = math.Mod(c.sinceBufferPush, interval)
		}
	}
}

// speed estimates the horizontal speed in m/s for a valid tick.
func (c *Classifier) speed(dt, horizontalLen float64) float64 {
	switch c.cfg.SpeedMode {
	case SpeedInstantaneous:
		return horizontalLen / dt
	default:
		window := c.cfg.BufferInterval * float64(c.horizontal.Len())
		if window <= 0 {
			return 0
		}
		return c.horizontal.Sum() / window
	}
}

// Reset returns the classifier to its freshly constructed state.
func (c *Classifier) Reset() {
	c.vertical.Reset()
	c.horizontal.Reset()
	c.initialized = false
	c.prevHead = pose.Vec3{}
	c.sinceBufferPush = 0
	c.smoothedHorizontal = 0
	c.smoothedVertical = 0
	c.directionStability = 0
	c.prevDirection = pose.Vec2{}
	c.walkingTimer = 0
	c.sinceWalking = math.Inf(1)
	c.state = State{TimeSinceLastWalking: math.Inf(1)}
}
