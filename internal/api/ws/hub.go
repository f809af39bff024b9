// Package ws relays conversation events published to Redis to WebSocket
// clients.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/assistant"
	"github.com/gosuda/hrdesk/internal/domain"
	"github.com/gosuda/hrdesk/internal/server/middleware"
	redisstore "github.com/gosuda/hrdesk/internal/store/redis"
)

// Subscriber is the subset of the Redis pub/sub the hub needs.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	subscriber    Subscriber
	conversations domain.ConversationRepository
}

// NewHub creates a new WebSocket hub.
func NewHub(subscriber Subscriber, conversations domain.ConversationRepository) *Hub {
	return &Hub{subscriber: subscriber, conversations: conversations}
}

// ServeChat streams turn.chunk and turn.completed events of one
// conversation. The conversation id is the route's trailing wildcard since
// ids contain slashes.
func (h *Hub) ServeChat(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.Trim(chi.URLParam(r, "*"), "/")
	if conversationID == "" {
		http.Error(w, "missing conversation id", http.StatusBadRequest)
		return
	}

	if err := h.authorize(r.Context(), conversationID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrForbidden) {
			status = http.StatusForbidden
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Client messages are ignored; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.subscriber.Subscribe(ctx, redisstore.ChatChannel(conversationID))
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// authorize checks the caller against the employee bound to the
// conversation. A conversation that does not exist yet must follow the
// caller's default id scheme.
func (h *Hub) authorize(ctx context.Context, conversationID string) error {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok || p.IsHR() {
		return nil
	}

	conv, err := h.conversations.Get(ctx, conversationID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if strings.HasPrefix(conversationID, "hr/"+domain.EmployeeID(p.EmployeeID)+"/") {
			return nil
		}
		return fmt.Errorf("ws.Hub.authorize(%q): %w", conversationID, domain.ErrForbidden)
	case err != nil:
		return fmt.Errorf("ws.Hub.authorize(%q): %w", conversationID, err)
	}

	//nolint:wrapcheck // already wrapped
	return middleware.AuthorizeEmployee(ctx, conv.Parameters[assistant.ParamEmployeeID])
}
