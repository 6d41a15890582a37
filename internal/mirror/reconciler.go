package mirror

import (
	"context"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/metrics"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

type Flusher interface {
	Sync(ctx context.Context, attendeeID uint) error
}

type ReconcileResult struct {
	Synced  int
	Failed  int
	Pending int64
}

// Reconciler retries mirror writes that failed in the request path.
type Reconciler struct {
	repo        repository.AttendeeRepository
	flusher     Flusher
	maxAttempts int
	batchSize   int
	now         func() time.Time
}

func NewReconciler(repo repository.AttendeeRepository, flusher Flusher, maxAttempts, batchSize int) *Reconciler {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{repo: repo, flusher: flusher, maxAttempts: maxAttempts, batchSize: batchSize, now: time.Now}
}

// RunOnce flushes every attendee whose backlog is due.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	ids, err := r.repo.FindMirrorBacklog(ctx, r.now(), r.maxAttempts, r.batchSize)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := r.flusher.Sync(ctx, id); err != nil {
			res.Failed++
			log.Warn().Err(err).Str("component", "reconciler").Uint("attendee_id", id).Msg("mirror retry failed")
			continue
		}
		res.Synced++
	}

	res.Pending, err = r.repo.CountMirrorBacklog(ctx)
	if err != nil {
		return res, err
	}
	metrics.MirrorPending.Set(float64(res.Pending))
	return res, nil
}

// Start runs RunOnce every interval until ctx is done.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			res, err := r.RunOnce(ctx)
			if err != nil {
				log.Error().Err(err).Str("component", "reconciler").Msg("reconcile run failed")
				return
			}
			if res.Synced > 0 || res.Failed > 0 {
				log.Info().Str("component", "reconciler").
					Int("synced", res.Synced).Int("failed", res.Failed).Int64("pending", res.Pending).
					Msg("reconciled audit mirror")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	log.Info().Str("component", "reconciler").Dur("interval", interval).Msg("starting mirror reconciler")
	scheduler.Start()
	<-ctx.Done()
	return scheduler.Shutdown()
}
