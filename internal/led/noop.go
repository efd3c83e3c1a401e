package led

import "log/slog"

// noop implements Peripheral for hosts without LED hardware.
type noop struct {
	logger *slog.Logger
	closed bool
}

// NewNoop returns a peripheral that only logs writes at debug level.
func NewNoop(logger *slog.Logger) Peripheral {
	return &noop{
		logger: logger,
	}
}

func (n *noop) SetColour(c Colour, level uint8) error {
	if n.closed {
		return ErrClosed
	}
	n.logger.Debug("LED write skipped (no-op)", "colour", c.String(), "level", level)
	return nil
}

func (n *noop) SetArm(a Arm, level uint8) error {
	if n.closed {
		return ErrClosed
	}
	n.logger.Debug("LED write skipped (no-op)", "arm", int(a), "level", level)
	return nil
}

func (n *noop) AllOff() error {
	if n.closed {
		return ErrClosed
	}
	n.logger.Debug("LED all-off skipped (no-op)")
	return nil
}

func (n *noop) Close() error {
	n.closed = true
	return nil
}
