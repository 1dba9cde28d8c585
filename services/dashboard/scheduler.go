package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Run refreshes the session every interval until ctx is cancelled
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Starting periodic refresh")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Periodic refresh stopped")
			return
		case <-ticker.C:
			applied, err := s.Refresh(ctx)
			switch {
			case err != nil && ctx.Err() != nil:
				return
			case err != nil:
				log.Error().Err(err).Msg("Periodic refresh failed")
			case !applied:
				log.Debug().Msg("Periodic refresh skipped")
			}
		}
	}
}
