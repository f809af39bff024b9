package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/domain"
)

// SweepExpired deletes expired conversations every interval until ctx is done.
func SweepExpired(ctx context.Context, conversations domain.ConversationRepository, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := conversations.DeleteExpired(ctx, now())
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("sweep expired conversations")
				}
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("expired conversations swept")
			}
		}
	}
}
