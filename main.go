package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/glownode/cmd"
	"github.com/smazurov/glownode/internal/api"
	"github.com/smazurov/glownode/internal/config"
	"github.com/smazurov/glownode/internal/events"
	"github.com/smazurov/glownode/internal/led"
	"github.com/smazurov/glownode/internal/lifecycle"
	"github.com/smazurov/glownode/internal/logging"
	"github.com/smazurov/glownode/internal/metrics"
	"github.com/smazurov/glownode/internal/nats"
	"github.com/smazurov/glownode/internal/printer"
	"github.com/smazurov/glownode/internal/scheduler"
	"github.com/smazurov/glownode/internal/state"
	"github.com/smazurov/glownode/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"glownode.toml"`

	// Server settings
	Port           string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	MetricsEnabled bool   `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"server.metrics" env:"SERVER_METRICS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password, empty disables auth" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// LED settings
	LedDriver   string `help:"LED driver (auto, piglow, sysfs, noop)" default:"auto" toml:"led.driver" env:"LED_DRIVER"`
	LedBus      string `help:"I2C bus name, empty for the first bus" default:"" toml:"led.i2c_bus" env:"LED_I2C_BUS"`
	LedScale    int    `help:"Brightness scale in percent (1-100)" default:"100" toml:"led.brightness_scale" env:"LED_BRIGHTNESS_SCALE"`
	LedSysfsMap string `help:"Sysfs LED mapping, e.g. white=ACT,red=PWR" default:"" toml:"led.sysfs_map" env:"LED_SYSFS_MAP"`

	// Scheduler settings
	SchedulerTick        string `help:"Frame period (Go duration or milliseconds)" default:"100ms" toml:"scheduler.tick" env:"SCHEDULER_TICK"`
	SchedulerExitOnFault bool   `help:"Exit when an LED write fails" default:"true" toml:"scheduler.exit_on_fault" env:"SCHEDULER_EXIT_ON_FAULT"`

	// NATS settings
	NatsEnabled  bool   `help:"Enable the NATS bridge" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NatsURL      string `help:"NATS server URL" default:"nats://127.0.0.1:4222" toml:"nats.url" env:"NATS_URL"`
	NatsEmbedded bool   `help:"Run an embedded NATS server" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`
	NatsPrefix   string `help:"NATS subject prefix" default:"glownode" toml:"nats.subject_prefix" env:"NATS_SUBJECT_PREFIX"`

	// Printer settings
	PrinterKind     string `help:"Printer host to poll (none, prusalink, octoprint)" default:"none" toml:"printer.kind" env:"PRINTER_KIND"`
	PrinterHost     string `help:"Printer host address" default:"" toml:"printer.host" env:"PRINTER_HOST"`
	PrinterKey      string `help:"Printer API key" default:"" toml:"printer.api_key" env:"PRINTER_API_KEY"`
	PrinterInterval string `help:"Printer poll interval" default:"2s" toml:"printer.poll_interval" env:"PRINTER_POLL_INTERVAL"`
	PrinterRetries  int    `help:"Retries per printer request" default:"2" toml:"printer.retries" env:"PRINTER_RETRIES"`

	// systemd settings
	SystemdNotify bool `help:"Send sd_notify readiness and watchdog pings" default:"true" toml:"systemd.notify" env:"SYSTEMD_NOTIFY"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingScheduler string `help:"Scheduler logging level" default:"info" toml:"logging.scheduler" env:"LOGGING_SCHEDULER"`
	LoggingLifecycle string `help:"Lifecycle logging level" default:"info" toml:"logging.lifecycle" env:"LOGGING_LIFECYCLE"`
	LoggingLed       string `help:"LED driver logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingNats      string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
	LoggingPrinter   string `help:"Printer poller logging level" default:"info" toml:"logging.printer" env:"LOGGING_PRINTER"`
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"scheduler": opts.LoggingScheduler,
				"lifecycle": opts.LoggingLifecycle,
				"led":       opts.LoggingLed,
				"api":       opts.LoggingAPI,
				"nats":      opts.LoggingNats,
				"printer":   opts.LoggingPrinter,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.LogEntryEvent(entry))
		})

		tick, err := config.ParseDuration(opts.SchedulerTick, config.DefaultTick)
		if err != nil {
			logger.Warn("Invalid scheduler tick, using default", "error", err, "tick", config.DefaultTick)
		}

		peripheral, err := led.New(led.Options{
			Driver:   opts.LedDriver,
			I2CBus:   opts.LedBus,
			Scale:    opts.LedScale,
			SysfsMap: opts.LedSysfsMap,
		}, logging.GetLogger("led"))
		if err != nil {
			logger.Error("Failed to open LED peripheral", "error", err)
			os.Exit(1)
		}
		leds := led.NewMirror(peripheral)

		store := state.New()
		handler := lifecycle.NewHandler(store, eventBus, logging.GetLogger("lifecycle"))

		sched := scheduler.New(store, leds,
			scheduler.WithPeriod(tick),
			scheduler.WithBus(eventBus),
			scheduler.WithLogger(logging.GetLogger("scheduler")),
			scheduler.WithCloseOnExit(),
		)

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Sink:         handler.Source("api"),
			Store:        store,
			Scheduler:    sched,
			LEDs:         leds,
			EventBus:     eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = metrics.Handler()
		}
		server := api.NewServer(apiOpts)

		natsLogger := logging.GetLogger("nats")
		var natsServer *nats.Server
		var bridge *nats.Bridge
		if opts.NatsEnabled {
			if opts.NatsEmbedded {
				natsServer = nats.NewServer(nats.ServerOptions{
					Port:   opts.NatsPort,
					Debug:  opts.LoggingNats == "debug",
					Logger: natsLogger,
				})
			}
			bridge = nats.NewBridge(opts.NatsURL, opts.NatsPrefix, handler.Source("nats"), eventBus, natsLogger)
		}

		var poller *printer.Poller
		printerLogger := logging.GetLogger("printer")
		interval, err := config.ParseDuration(opts.PrinterInterval, printer.DefaultInterval)
		if err != nil {
			logger.Warn("Invalid printer poll interval, using default", "error", err)
		}
		client, err := printer.New(printer.Config{
			Kind:    opts.PrinterKind,
			Host:    opts.PrinterHost,
			APIKey:  opts.PrinterKey,
			Retries: opts.PrinterRetries,
		}, printerLogger)
		if err != nil {
			logger.Error("Invalid printer configuration", "error", err)
			os.Exit(1)
		}
		if client != nil {
			poller = printer.NewPoller(client, handler.Source(opts.PrinterKind), printer.PollerOptions{
				Kind:     opts.PrinterKind,
				Interval: interval,
				Logger:   printerLogger,
			})
		}

		notifier := systemd.NewNotifier(opts.SystemdNotify, logger)
		eventBus.Subscribe(func(e events.AnimationChangedEvent) {
			notifier.Status("Rendering " + e.To)
		})

		// Reload the tick and log levels when the config file changes
		watcher := config.NewConfigWatcher(opts.Config, config.LoadRuntime, logging.GetLogger("config"))
		watcher.OnReload(func(rt config.Runtime) {
			sched.SetPeriod(rt.Tick)
			logging.SetLevels(rt.Logging)
		})

		ctx, cancel := context.WithCancel(context.Background())

		var stopOnce sync.Once
		shutdown := func() {
			stopOnce.Do(func() {
				logger.Info("Shutting down")
				notifier.Stopping()

				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
				cancel()

				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
				if bridge != nil {
					bridge.Stop()
				}
				if natsServer != nil {
					natsServer.Stop()
				}
				handler.Stop()

				// The loop closes the peripheral itself on exit.
				select {
				case <-sched.Done():
				case <-time.After(2 * time.Second):
					logger.Warn("Animation loop did not stop in time, leaving LED peripheral open")
				}
				logger.Info("Shutdown complete")
			})
		}

		hooks.OnStart(func() {
			logger.Info("Starting glownode", "tick", sched.Period(), "led_driver", opts.LedDriver)

			handler.Start()

			if bridge != nil {
				var natsURL string
				if natsServer != nil {
					if startErr := natsServer.Start(); startErr != nil {
						logger.Error("Failed to start embedded NATS server", "error", startErr)
						os.Exit(1)
					}
					// The port is only known once a random one is bound.
					natsURL = natsServer.ClientURL()
				}
				// The service keeps running without NATS.
				if startErr := bridge.StartAt(natsURL); startErr != nil {
					logger.Warn("NATS bridge unavailable", "error", startErr)
				}
			}

			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Config reload disabled", "error", startErr)
			}

			schedErr := make(chan error, 1)
			go func() { schedErr <- sched.Run(ctx) }()

			if poller != nil {
				go poller.Run(ctx)
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "port", opts.Port)
				serverErr <- server.Start(opts.Port)
			}()

			notifier.Ready()
			go notifier.Watchdog(ctx, func() bool { return sched.Status().Running })

			exitCode := 0
			select {
			case startErr := <-serverErr:
				if startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
					logger.Error("Failed to start HTTP server", "error", startErr)
					exitCode = 1
				}

			case runErr := <-schedErr:
				var fault *scheduler.FaultError
				if errors.As(runErr, &fault) && opts.SchedulerExitOnFault {
					logger.Error("Exiting after LED fault", "error", runErr)
					exitCode = 1
					break
				}
				// Keep the API up so the fault can be inspected.
				if startErr := <-serverErr; startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
					logger.Error("HTTP server failed", "error", startErr)
					exitCode = 1
				}
			}

			shutdown()
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		})

		hooks.OnStop(shutdown)
	})

	cli.Root().Use = "glownode"
	cli.Root().Short = "PiGlow status lights for 3D printers"

	cli.Root().AddCommand(cmd.CreateDemoCmd())
	cli.Root().AddCommand(cmd.CreateSendCmd())

	// Run the CLI
	cli.Run()
}
