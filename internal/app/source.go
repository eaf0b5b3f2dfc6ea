package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/ayusman/gaitgrip/internal/config"
	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/pose"
)

// SourceMode selects where pose samples come from.
type SourceMode string

const (
	// SourceStream takes samples pushed to /api/pose.
	SourceStream SourceMode = "stream"
	// SourceSynthetic plays the scripted walk-then-hold session.
	SourceSynthetic SourceMode = "synthetic"
	// SourceReplay plays a JSON-lines recording.
	SourceReplay SourceMode = "replay"
)

// ErrUnknownSource is returned by OpenSource for an unsupported mode.
var ErrUnknownSource = errors.New("unknown pose source")

// OpenSource builds the pose source for mode. A nil source with a nil error
// means the stream source, which New creates itself.
//
// Scripted and recorded sources advance a fixed step per tick, so OpenSource
// switches cfg to fixed-step ticking for them.
func OpenSource(cfg *config.Config, mode SourceMode, replayPath string, loop bool) (pose.Source, error) {
	switch mode {
	case SourceStream, "":
		return nil, nil

	case SourceSynthetic:
		cfg.Engine.FixedStep = true
		step := cfg.Engine.TickInterval.Seconds()
		log.Info("using synthetic pose source", "step", step, "loop", loop)
		return pose.NewSynthetic(step, loop, pose.WalkThenHold()...), nil

	case SourceReplay:
		if replayPath == "" {
			return nil, fmt.Errorf("%s source needs a recording path", mode)
		}
		f, err := os.Open(replayPath)
		if err != nil {
			return nil, fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()

		samples, err := pose.ReadRecording(f)
		if err != nil {
			return nil, fmt.Errorf("read recording %s: %w", replayPath, err)
		}
		cfg.Engine.FixedStep = true
		log.Info("replaying pose recording", "path", replayPath, "samples", len(samples), "loop", loop)
		return pose.NewReplay(samples, loop), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, mode)
	}
}
