package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// LEDSetBody selects an LED and the state to drive it to.
type LEDSetBody struct {
	Type    string  `json:"type" example:"user" doc:"Logical LED name from the capabilities list"`
	Enabled bool    `json:"enabled" example:"true" doc:"Target on/off state"`
	Pattern *string `json:"pattern,omitempty" example:"solid" doc:"Pattern to apply; omit to leave the trigger unchanged"`
}

// LEDSetInput is the request for the control-led operation.
type LEDSetInput struct {
	Body LEDSetBody
}

// LEDCapabilitiesData lists what the board's LEDs can do.
type LEDCapabilitiesData struct {
	AvailableTypes    []string `json:"available_types" doc:"Logical LED names this board exposes"`
	AvailablePatterns []string `json:"available_patterns" doc:"Patterns the controller accepts"`
}

// LEDCapabilitiesResponse is the response for get-led-capabilities.
type LEDCapabilitiesResponse struct {
	Body LEDCapabilitiesData
}

// registerLEDRoutes registers LED control endpoints. The automatic
// LED manager owns the system LED; these routes give operators manual
// access to the rest (and override the system LED until the next
// camera state change).
func (s *Server) registerLEDRoutes() {
	if s.options.LEDController == nil {
		s.logger.Debug("LED controller not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "control-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Control LED",
		Description: "Drive a board LED by logical name. Names and patterns vary per board; see the capabilities endpoint.",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *LEDSetInput) (*struct{}, error) {
		var pattern string
		if input.Body.Pattern != nil {
			pattern = *input.Body.Pattern
		}
		if err := s.options.LEDController.Set(input.Body.Type, input.Body.Enabled, pattern); err != nil {
			return nil, huma.Error400BadRequest("LED update rejected", err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-led-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/leds/capabilities",
		Summary:     "Get LED Capabilities",
		Description: "List the LED names and patterns this board supports",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*LEDCapabilitiesResponse, error) {
		return &LEDCapabilitiesResponse{
			Body: LEDCapabilitiesData{
				AvailableTypes:    s.options.LEDController.Available(),
				AvailablePatterns: s.options.LEDController.Patterns(),
			},
		}, nil
	})
}
