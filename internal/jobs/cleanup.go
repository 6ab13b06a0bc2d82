package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/auraflora/shopbot-server-go/internal/repository"
)

// CleanupJob periodically drops active-session pointers that have
// passed their TTL, so the next message from an idle sender starts a
// fresh session even before any traffic arrives.
type CleanupJob struct {
	senderRepo repository.SenderRepository
	sessionTTL time.Duration
	interval   time.Duration
	done       chan struct{}
}

func NewCleanupJob(
	senderRepo repository.SenderRepository,
	sessionTTL time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		senderRepo: senderRepo,
		sessionTTL: sessionTTL,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.sessionTTL)
	count, err := j.senderRepo.ClearExpiredSessions(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to expire idle sessions")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("expired idle sessions")
	}
}
