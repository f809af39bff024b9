package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/server/middleware"
)

type SeedOutput struct {
	Body struct {
		Loaded map[string]int `json:"loaded" doc:"Records loaded per collection"`
	}
}

// RegisterSeedRoutes exposes the demo data loader. Only registered in demo mode.
func RegisterSeedRoutes(api huma.API, seeder Seeder) {
	huma.Register(api, huma.Operation{
		OperationID: "seed-demo-data",
		Method:      http.MethodPost,
		Path:        "/seed",
		Summary:     "Load the demo data set",
		Tags:        []string{"Demo"},
	}, func(ctx context.Context, _ *struct{}) (*SeedOutput, error) {
		if err := middleware.AuthorizeHR(ctx); err != nil {
			return nil, huma.Error403Forbidden("hr role required")
		}

		loaded, err := seeder.Seed(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load demo data", err)
		}
		log.Info().Interface("loaded", loaded).Msg("seed: demo data loaded")

		out := &SeedOutput{}
		out.Body.Loaded = loaded
		return out, nil
	})
}
