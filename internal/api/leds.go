package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/glownode/internal/animation"
	"github.com/smazurov/glownode/internal/api/models"
	"github.com/smazurov/glownode/internal/led"
)

// registerLEDRoutes registers the LED picture and animation catalogue.
func (s *Server) registerLEDRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "Get LED Levels",
		Description: "Get the last brightness written to each of the 18 LEDs",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.LEDResponse, error) {
		if s.options.LEDs == nil {
			return nil, huma.Error503ServiceUnavailable("LED levels are not being recorded")
		}
		return &models.LEDResponse{Body: ledData(s.options.LEDs.Levels())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-animations",
		Method:      http.MethodGet,
		Path:        "/api/animations",
		Summary:     "List Animations",
		Description: "List the animations and their cycle lengths in frames",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.AnimationListResponse, error) {
		kinds := animation.Kinds()
		list := make([]models.AnimationInfo, 0, len(kinds))
		for _, k := range kinds {
			list = append(list, models.AnimationInfo{
				Name:   k.String(),
				Frames: animation.CycleLength(k),
			})
		}
		return &models.AnimationListResponse{
			Body: models.AnimationListData{
				Animations: list,
				Count:      len(list),
			},
		}, nil
	})
}

func ledData(levels led.Levels) models.LEDData {
	arms := make([]models.ArmLevels, 0, led.NumArms)
	for i, row := range levels {
		byColour := make(map[string]uint8, led.NumColours)
		for _, c := range led.Colours() {
			byColour[c.String()] = row[c]
		}
		arms = append(arms, models.ArmLevels{Arm: i + 1, Levels: byColour})
	}
	return models.LEDData{Arms: arms}
}
