package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/glownode/internal/lifecycle"
	"github.com/smazurov/glownode/internal/logging"
	"github.com/smazurov/glownode/internal/nats"
)

// CreateSendCmd creates the send command.
func CreateSendCmd() *cobra.Command {
	var url string
	var prefix string
	var source string

	cmd := &cobra.Command{
		Use:   "send <event> | send progress <percent>",
		Short: "Publish a printer event over NATS",
		Long: `Publishes a lifecycle event (connected, disconnected, print_started, print_done, ` +
			`print_failed, print_cancelled) or a progress update to a running glownode through NATS.`,
		Example: "  glownode send print_started\n  glownode send progress 42",
		Args:    cobra.RangeArgs(1, 2),
		Run: func(_ *cobra.Command, args []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("send")

			msg, err := parseSendArgs(args)
			if err != nil {
				logger.Error("Invalid arguments", "error", err)
				os.Exit(2)
			}

			pub, err := nats.NewPublisher(url, prefix, source, logging.GetLogger("nats"))
			if err != nil {
				logger.Error("Failed to connect to NATS", "error", err, "url", url)
				os.Exit(1)
			}
			defer pub.Close()

			if msg.progress {
				err = pub.Progress(msg.value)
			} else {
				err = pub.Event(msg.event)
			}
			if err != nil {
				logger.Error("Failed to publish", "error", err)
				pub.Close()
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&url, "url", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.Flags().StringVar(&prefix, "prefix", nats.DefaultPrefix, "Subject prefix")
	cmd.Flags().StringVar(&source, "source", "cli", "Source recorded with the message")

	return cmd
}

type sendMessage struct {
	event    string
	progress bool
	value    int
}

func parseSendArgs(args []string) (sendMessage, error) {
	if strings.EqualFold(args[0], "progress") {
		if len(args) != 2 {
			return sendMessage{}, fmt.Errorf("progress needs a percentage")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return sendMessage{}, fmt.Errorf("invalid progress %q: %w", args[1], err)
		}
		return sendMessage{progress: true, value: v}, nil
	}

	if len(args) != 1 {
		return sendMessage{}, fmt.Errorf("unexpected argument %q", args[1])
	}
	if _, ok := lifecycle.KindForEvent(args[0]); !ok {
		return sendMessage{}, fmt.Errorf("unknown event %q", args[0])
	}
	return sendMessage{event: args[0]}, nil
}
