package sweeper

import (
	"time"

	"assistant-backend/internal/draft/repository"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically removes expired email drafts. Read paths already treat
// expired rows as absent; the sweep keeps the table from growing unbounded.
type Sweeper struct {
	drafts   repository.DraftRepository
	interval time.Duration
	stopChan chan struct{}
}

func New(drafts repository.DraftRepository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		drafts:   drafts,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop
func (s *Sweeper) Start() {
	log.Info().Dur("interval", s.interval).Msg("starting draft expiry sweeper")

	go func() {
		// Run immediately on start
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Info().Msg("draft expiry sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) sweep() {
	removed, err := s.drafts.DeleteExpired(time.Now())
	if err != nil {
		log.Error().Err(err).Msg("draft expiry sweep failed")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("swept expired drafts")
	}
}
