package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/hrdesk/internal/api/v1"
	"github.com/gosuda/hrdesk/internal/api/ws"
)

func registerAPIRoutes(api huma.API, deps Deps, demoMode bool) {
	v1.RegisterChatRoutes(api, deps.Chat, deps.Signer)
	v1.RegisterEmployeeRoutes(api, deps.Store)
	v1.RegisterRecordRoutes(api, deps.Store)
	if demoMode && deps.Seeder != nil {
		v1.RegisterSeedRoutes(api, deps.Seeder)
	}
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/chat/*", hub.ServeChat)
}
