package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/server/middleware"
)

// SSE event names. Chunks are sent as unnamed events.
const (
	sseEventFinal = "final"
	sseEventError = "error"
)

func registerChatStream(api huma.API, svc ChatService) {
	huma.Register(api, huma.Operation{
		OperationID: "chat-stream",
		Method:      http.MethodPost,
		Path:        "/chat/stream",
		Summary:     "Run one chat turn, streaming the answer as server-sent events",
		Tags:        []string{"Chat"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Answer chunks as unnamed data events, then a final event with the chat response",
				Content:     map[string]*huma.MediaType{"text/event-stream": {}},
			},
		},
	}, func(ctx context.Context, input *ChatInput) (*huma.StreamResponse, error) {
		if err := middleware.AuthorizeEmployee(ctx, input.Body.EmployeeID); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		req := input.Body.turnRequest()

		return &huma.StreamResponse{Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", "text/event-stream")
			hctx.SetHeader("Cache-Control", "no-cache")
			hctx.SetHeader("X-Accel-Buffering", "no")
			hctx.SetStatus(http.StatusOK)

			w := &sseWriter{w: hctx.BodyWriter()}
			reqCtx := hctx.Context()

			resp, err := svc.StreamTurn(reqCtx, req, func(_ context.Context, chunk string) error {
				return w.data(chunk)
			})
			if reqCtx.Err() != nil {
				log.Debug().Str("employee_id", req.EmployeeID).Msg("chat stream: client disconnected")
				return
			}
			if err != nil {
				msg := unavailableMessage
				var se huma.StatusError
				if errors.As(chatError(err), &se) && se.GetStatus() < http.StatusInternalServerError {
					msg = se.Error()
				}
				_ = w.event(sseEventError, map[string]string{"message": msg})
				return
			}

			if err := w.event(sseEventFinal, resp); err != nil {
				log.Debug().Err(err).Msg("chat stream: write final event")
			}
		}}, nil
	})
}

// sseWriter writes server-sent events, flushing after each one.
type sseWriter struct {
	w io.Writer
}

// lineBreaks maps every line end the event stream format accepts to "\n".
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n") //nolint:gochecknoglobals // immutable replacer

// data sends text as an unnamed event, one data line per line of text. The
// format treats CR, LF and CRLF alike, so readers see every line break as
// "\n"; the final event carries the exact answer.
func (s *sseWriter) data(text string) error {
	var b strings.Builder
	for line := range strings.SplitSeq(lineBreaks.Replace(text), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	return s.write(b.String())
}

func (s *sseWriter) event(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("v1.sseWriter.event(%q): %w", name, err)
	}
	return s.write("event: " + name + "\ndata: " + string(payload) + "\n\n")
}

func (s *sseWriter) write(frame string) error {
	if _, err := io.WriteString(s.w, frame); err != nil {
		return fmt.Errorf("v1.sseWriter.write: %w", err)
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
