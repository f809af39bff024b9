package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/domain"
)

const unavailableMessage = "the assistant is unavailable, try again later"

// storeError maps a repository error to a problem response.
func storeError(err error, notFound, failed string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound(notFound)
	}
	if errors.Is(err, domain.ErrForbidden) {
		return huma.Error403Forbidden("access denied")
	}
	return huma.Error500InternalServerError(failed, err)
}

// chatError maps a chat or signing failure to a problem response. Engine
// failures are reported with a generic message; the cause is only logged.
func chatError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found", err)
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("conversation was modified concurrently, retry the turn")
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, agent.ErrParameterMismatch):
		return huma.Error403Forbidden("access denied")
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, agent.ErrUnknownAction),
		errors.Is(err, chat.ErrInvalidSignature):
		return huma.Error400BadRequest(err.Error())
	}

	log.Error().Err(err).Msg("chat: turn failed")
	return huma.Error502BadGateway(unavailableMessage)
}
