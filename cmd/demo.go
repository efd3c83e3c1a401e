package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/glownode/internal/animation"
	"github.com/smazurov/glownode/internal/config"
	"github.com/smazurov/glownode/internal/led"
	"github.com/smazurov/glownode/internal/logging"
)

// CreateDemoCmd creates the demo command.
func CreateDemoCmd() *cobra.Command {
	var (
		driver   string
		bus      string
		scale    int
		sysfsMap string
		tick     string
		progress int
		only     []string
		logJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play every animation once on the LEDs",
		Long: `Opens the configured LED peripheral and plays each animation for one full cycle, ` +
			`without the service, API or printer pollers. Useful to check the wiring of a new board.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("demo")

			period, err := config.ParseDuration(tick, config.DefaultTick)
			if err != nil {
				logger.Error("Invalid tick", "error", err)
				os.Exit(1)
			}

			kinds, err := demoKinds(only)
			if err != nil {
				logger.Error("Invalid animation", "error", err)
				os.Exit(1)
			}

			p, err := led.New(led.Options{Driver: driver, I2CBus: bus, Scale: scale, SysfsMap: sysfsMap}, logging.GetLogger("led"))
			if err != nil {
				logger.Error("Failed to open LED peripheral", "error", err)
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runErr := Play(ctx, p, kinds, progress, period, logger)
			if closeErr := p.Close(); closeErr != nil {
				logger.Warn("Error closing LED peripheral", "error", closeErr)
			}
			if runErr != nil {
				logger.Error("Demo failed", "error", runErr)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&driver, "driver", led.DriverAuto, "LED driver (auto, piglow, sysfs, noop)")
	cmd.Flags().StringVar(&bus, "i2c-bus", "", "I2C bus name, empty for the first bus")
	cmd.Flags().IntVar(&scale, "scale", 100, "Brightness scale in percent")
	cmd.Flags().StringVar(&sysfsMap, "sysfs-map", "", "Sysfs LED mapping, e.g. white=ACT,red=PWR")
	cmd.Flags().StringVar(&tick, "tick", "100ms", "Frame period")
	cmd.Flags().IntVar(&progress, "progress", 100, "Progress shown by the progress animation")
	cmd.Flags().StringSliceVar(&only, "animation", nil, "Play only these animations")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// demoKinds returns the animations named in names, or all of them.
func demoKinds(names []string) ([]animation.Kind, error) {
	if len(names) == 0 {
		var kinds []animation.Kind
		for _, k := range animation.Kinds() {
			if k != animation.None {
				kinds = append(kinds, k)
			}
		}
		return kinds, nil
	}

	kinds := make([]animation.Kind, 0, len(names))
	for _, name := range names {
		k, err := animation.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if k == animation.None {
			return nil, fmt.Errorf("%q has nothing to play", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Play renders one cycle of each kind at period per frame, clearing the
// LEDs between animations.
func Play(ctx context.Context, p led.Peripheral, kinds []animation.Kind, progress int, period time.Duration, logger *slog.Logger) error {
	renderers := animation.Renderers()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for _, kind := range kinds {
		render, ok := renderers[kind]
		if !ok {
			continue
		}
		if err := p.AllOff(); err != nil {
			return err
		}
		logger.Info("Playing animation", "animation", kind.String(), "frames", animation.CycleLength(kind))

		frame := 0
		for {
			next, err := render(p, frame, progress)
			if err != nil {
				return fmt.Errorf("%s frame %d: %w", kind, frame, err)
			}

			select {
			case <-ctx.Done():
				logger.Info("Demo interrupted")
				return p.AllOff()
			case <-ticker.C:
			}

			if next == 0 {
				break
			}
			frame = next
		}
	}

	return p.AllOff()
}
