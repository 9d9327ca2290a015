package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camnode/camnode/internal/api/models"
)

// registerPoolRoutes registers the frame pool inspection and trim
// endpoints. One pool backs every camera, so these are process-wide.
func (s *Server) registerPoolRoutes() {
	// Report pool occupancy and counters
	huma.Register(s.api, huma.Operation{
		OperationID: "get-pool-stats",
		Method:      http.MethodGet,
		Path:        "/api/pool",
		Summary:     "Pool Stats",
		Description: "Report the shared frame pool's buffer counts, byte totals, and lifetime counters",
		Tags:        []string{"pool"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.PoolStatsResponse, error) {
		stats := s.options.Manager.PoolStats()
		return &models.PoolStatsResponse{
			Body: models.PoolStatsData{
				Free:         stats.Free,
				InUse:        stats.InUse,
				FreeBytes:    stats.FreeBytes,
				InUseBytes:   stats.InUseBytes,
				Acquires:     stats.Acquires,
				Reuses:       stats.Reuses,
				Allocs:       stats.Allocs,
				Recycles:     stats.Recycles,
				Trims:        stats.Trims,
				OverReleases: stats.OverReleases,
			},
		}, nil
	})

	// Release the free list
	huma.Register(s.api, huma.Operation{
		OperationID: "trim-pool",
		Method:      http.MethodPost,
		Path:        "/api/pool/trim",
		Summary:     "Trim Pool",
		Description: "Release the pool's free buffers to bound idle memory. Buffers held by consumers are untouched.",
		Tags:        []string{"pool"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.PoolTrimResponse, error) {
		freed := s.options.Manager.TrimPool()
		return &models.PoolTrimResponse{
			Body: models.PoolTrimData{
				Freed:   freed,
				Message: "Pool trimmed",
			},
		}, nil
	})
}
