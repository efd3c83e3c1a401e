package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/glownode/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	if s.eventBus == nil {
		s.logger.Debug("No event bus, skipping SSE routes")
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events/stream",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of requested state changes, animation changes and peripheral faults. The current state is sent first.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"state-changed":     events.StateChangedEvent{},
		"animation-changed": events.AnimationChangedEvent{},
		"peripheral-fault":  events.PeripheralFaultEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		stream := events.NewStream(16)
		events.Listen[events.StateChangedEvent](stream, s.eventBus)
		events.Listen[events.AnimationChangedEvent](stream, s.eventBus)
		events.Listen[events.PeripheralFaultEvent](stream, s.eventBus)
		defer s.closeStream(stream, "events")

		current := s.stateData()
		if err := send.Data(events.StateChangedEvent{
			Animation: current.Requested.Animation,
			Progress:  current.Requested.Progress,
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-stream.C():
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func (s *Server) closeStream(stream *events.Stream, name string) {
	stream.Close()
	if n := stream.Dropped(); n > 0 {
		s.logger.Debug("SSE client fell behind", "stream", name, "dropped", n)
	}
}
