package animation

import (
	"github.com/smazurov/glownode/internal/led"
)

// Renderer draws one frame of an animation and returns the frame to draw
// on the next tick. A returned 0 marks the restart point where the
// scheduler may switch to another animation.
type Renderer func(p led.Peripheral, frame, progress int) (next int, err error)

// Cycle lengths in frames.
const (
	pulseFrames    = 128
	startedFrames  = 96
	progressFrames = 64
	failedFrames   = 128
)

// Full arm brightness for the start sweep.
const armLevel = 32

// failedLevel is the red blink brightness.
const failedLevel = 128

// Progress thresholds, strictly greater than.
var progressTiers = []struct {
	colour    led.Colour
	threshold int
}{
	{led.Blue, 20},
	{led.Green, 40},
	{led.Yellow, 60},
	{led.Orange, 80},
	{led.Red, 99},
}

// Renderers returns the dispatch table used by the scheduler. None has no
// renderer.
func Renderers() map[Kind]Renderer {
	return map[Kind]Renderer{
		PrinterConnected: Pulse(led.White),
		PrintStarted:     RenderPrintStarted,
		PrintProgress:    RenderPrintProgress,
		PrintDone:        Pulse(led.Green),
		PrintFailed:      RenderPrintFailed,
	}
}

// CycleLength is the number of frames an animation draws before it
// returns to frame 0.
func CycleLength(k Kind) int {
	switch k {
	case PrinterConnected, PrintDone:
		return pulseFrames
	case PrintStarted:
		return startedFrames + 1
	case PrintProgress:
		return progressFrames
	case PrintFailed:
		return failedFrames
	default:
		return 0
	}
}

// advance returns the frame after frame in a cycle of n frames.
func advance(frame, n int) int {
	if frame+1 >= n {
		return 0
	}
	return frame + 1
}

// Pulse fades one colour up over 64 frames and back down over the next 64.
func Pulse(colour led.Colour) Renderer {
	return func(p led.Peripheral, frame, _ int) (int, error) {
		var level int
		switch {
		case frame >= pulseFrames:
			return 0, nil
		case frame < 64:
			level = frame
		default:
			level = 64 - (frame - 64)
		}

		if err := p.SetColour(colour, clampLevel(level)); err != nil {
			return frame, err
		}
		return advance(frame, pulseFrames), nil
	}
}

// RenderPrintStarted sweeps a full-brightness arm round the board. Only
// one arm is lit at a time.
func RenderPrintStarted(p led.Peripheral, frame, _ int) (int, error) {
	var err error
	switch {
	case frame < 32:
		err = p.SetArm(led.Arm1, armLevel)
	case frame < 64:
		if err = p.SetArm(led.Arm1, 0); err == nil {
			err = p.SetArm(led.Arm2, armLevel)
		}
	case frame < startedFrames:
		if err = p.SetArm(led.Arm2, 0); err == nil {
			err = p.SetArm(led.Arm3, armLevel)
		}
	default:
		if err = p.SetArm(led.Arm3, 0); err == nil {
			return 0, nil
		}
	}
	if err != nil {
		return frame, err
	}
	return frame + 1, nil
}

// RenderPrintProgress breathes white and adds one colour per 20% step.
// Colours at or below their threshold are left untouched.
func RenderPrintProgress(p led.Peripheral, frame, progress int) (int, error) {
	var level int
	switch {
	case frame >= progressFrames:
		return 0, nil
	case frame < 32:
		level = frame
	default:
		level = 32 - (frame - 32)
	}

	v := clampLevel(level)
	if err := p.SetColour(led.White, v); err != nil {
		return frame, err
	}
	for _, tier := range progressTiers {
		if progress <= tier.threshold {
			continue
		}
		if err := p.SetColour(tier.colour, v); err != nil {
			return frame, err
		}
	}
	return advance(frame, progressFrames), nil
}

// RenderPrintFailed blinks red twice then pauses.
func RenderPrintFailed(p led.Peripheral, frame, _ int) (int, error) {
	if frame >= failedFrames {
		return 0, nil
	}

	var level uint8
	if (frame >= 0 && frame < 16) || (frame >= 32 && frame < 48) {
		level = failedLevel
	}
	if err := p.SetColour(led.Red, level); err != nil {
		return frame, err
	}
	return advance(frame, failedFrames), nil
}

// clampLevel keeps out-of-range frames from wrapping round the byte scale.
func clampLevel(level int) uint8 {
	switch {
	case level < 0:
		return 0
	case level > 255:
		return 255
	default:
		return uint8(level)
	}
}
