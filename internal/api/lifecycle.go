package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/glownode/internal/animation"
	"github.com/smazurov/glownode/internal/api/models"
	"github.com/smazurov/glownode/internal/lifecycle"
)

// registerLifecycleRoutes registers the event intake and state endpoints.
func (s *Server) registerLifecycleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "post-event",
		Method:        http.MethodPost,
		Path:          "/api/events",
		Summary:       "Post Lifecycle Event",
		Description:   "Request the animation for a print lifecycle event. The change is drawn once the current animation reaches its restart point.",
		Tags:          []string{"lifecycle"},
		DefaultStatus: http.StatusAccepted,
		Security:      withAuth(),
		Errors:        []int{401, 422},
	}, func(_ context.Context, input *models.EventRequest) (*models.AcceptedResponse, error) {
		kind, ok := lifecycle.KindForEvent(input.Body.Event)
		if !ok {
			return nil, huma.Error422UnprocessableEntity("Unknown lifecycle event: " + input.Body.Event)
		}

		s.options.Sink.OnEvent(input.Body.Event)

		return &models.AcceptedResponse{
			Body: models.AcceptedData{
				Animation: kind.String(),
				Message:   "Queued for the next animation boundary",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "post-progress",
		Method:        http.MethodPost,
		Path:          "/api/progress",
		Summary:       "Post Print Progress",
		Description:   "Record print progress and request the progress animation",
		Tags:          []string{"lifecycle"},
		DefaultStatus: http.StatusAccepted,
		Security:      withAuth(),
		Errors:        []int{401, 422},
	}, func(_ context.Context, input *models.ProgressRequest) (*models.AcceptedResponse, error) {
		s.options.Sink.OnProgress(input.Body.Progress)

		return &models.AcceptedResponse{
			Body: models.AcceptedData{
				Animation: animation.PrintProgress.String(),
				Message:   "Queued for the next animation boundary",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/api/state",
		Summary:     "Get State",
		Description: "Get the requested animation and what the scheduler is currently drawing",
		Tags:        []string{"lifecycle"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StateResponse, error) {
		return &models.StateResponse{Body: s.stateData()}, nil
	})
}

func (s *Server) stateData() models.StateData {
	var data models.StateData

	if s.options.Store != nil {
		snap := s.options.Store.Snapshot()
		data.Requested = models.RequestedState{
			Animation: snap.Active.String(),
			Progress:  snap.Progress,
		}
	}

	if s.options.Scheduler != nil {
		st := s.options.Scheduler.Status()
		data.Rendering = models.RenderState{
			Animation: st.Effective.String(),
			Progress:  st.Progress,
			Frame:     st.Frame,
			PeriodMs:  st.Period.Milliseconds(),
			Running:   st.Running,
			Fault:     st.Fault,
		}
	} else {
		data.Rendering.Animation = animation.None.String()
	}

	return data
}
