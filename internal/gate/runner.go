package gate

import (
	"context"
	"errors"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/service"
	"github.com/rs/zerolog/log"
)

// DefaultAction is recorded when a scan names none.
const DefaultAction = "Verified By Admin"

type Stats struct {
	Authorized int
	Rejected   int
	Failed     int
}

// Runner verifies every scan of one gate against the event it guards.
type Runner struct {
	source   Source
	verifier service.VerifyService
	event    string
	action   string
}

func NewRunner(source Source, verifier service.VerifyService, event, action string) *Runner {
	if action == "" {
		action = DefaultAction
	}
	return &Runner{source: source, verifier: verifier, event: event, action: action}
}

// Run consumes the source until it is exhausted or ctx is done.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	scans, err := r.source.Scans(ctx)
	if err != nil {
		return stats, err
	}

	for scan := range scans {
		action := scan.Action
		if action == "" {
			action = r.action
		}

		res, err := r.verifier.Scan(ctx, scan.Credential, r.event, action)
		logger := log.With().Str("component", "gate").Str("event", r.event).
			Str("qr_code_id", scan.Credential).Str("action", action).Logger()

		switch {
		case err == nil:
			stats.Authorized++
			logger.Info().Str("user", res.UserName).Msg("authorized")
		case errors.Is(err, service.ErrUnauthorized):
			stats.Rejected++
			logger.Warn().Msg("scammer detected")
		case errors.Is(err, service.ErrMirrorFailed):
			// recorded in the registry; the reconciler finishes the mirror
			stats.Authorized++
			logger.Warn().Err(err).Str("user", res.UserName).Msg("authorized, audit table pending")
		default:
			stats.Failed++
			logger.Error().Err(err).Msg("verification failed")
		}

		scan.Settle(requeue(err))
	}

	return stats, ctx.Err()
}

// requeue is true only when nothing was recorded and a retry could succeed.
func requeue(err error) bool {
	return err != nil &&
		!errors.Is(err, service.ErrUnauthorized) &&
		!errors.Is(err, service.ErrMirrorFailed) &&
		!errors.Is(err, service.ErrBlankAction)
}
