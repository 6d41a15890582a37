package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/audit"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/metrics"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 10 * time.Second
	baseBackoff    = 5 * time.Second
	maxBackoff     = 10 * time.Minute
)

// Table is the part of the audit log the syncer writes to.
type Table interface {
	EnsureRow(ctx context.Context, table string, r audit.IdentityRow) error
	AppendEntry(ctx context.Context, table, key, value string) (int, error)
	Trail(ctx context.Context, table, key string) ([]string, error)
}

// Syncer copies an attendee's unmirrored registry state into the audit
// table: the identity row first, then pending status entries in id order.
// The registry is never modified except for the outbox bookkeeping columns.
type Syncer struct {
	repo    repository.AttendeeRepository
	table   Table
	locker  audit.Locker
	timeout time.Duration
	now     func() time.Time
}

func NewSyncer(repo repository.AttendeeRepository, table Table, locker audit.Locker, timeout time.Duration) *Syncer {
	if locker == nil {
		locker = audit.NewLocalLocker()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Syncer{repo: repo, table: table, locker: locker, timeout: timeout, now: time.Now}
}

// Sync flushes everything pending for one attendee. It stops at the first
// failure so later entries never overtake an earlier one in the table.
func (s *Syncer) Sync(ctx context.Context, attendeeID uint) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("attendee:%d", attendeeID))
	if err != nil {
		return fmt.Errorf("lock attendee %d: %w", attendeeID, err)
	}
	defer unlock()

	a, err := s.repo.FindByID(ctx, attendeeID)
	if err != nil {
		return fmt.Errorf("load attendee %d: %w", attendeeID, err)
	}

	if !a.Mirrored() {
		err := s.table.EnsureRow(ctx, a.MirrorTable, audit.IdentityRow{
			Key:          a.CredentialID,
			Fields:       a.FormData,
			Status:       models.StatusRegistered,
			RegisteredAt: a.CreatedAt,
		})
		metrics.MirrorWrites.WithLabelValues("ensure_row", metrics.Result(err)).Inc()
		if err != nil {
			s.bookkeep(ctx, func(ctx context.Context) error {
				return s.repo.RecordAttendeeMirrorFailure(ctx, a.ID, err.Error(), s.nextAttempt(a.MirrorAttempts+1))
			})
			return fmt.Errorf("mirror row %s: %w", a.CredentialID, err)
		}
		if err := s.repo.MarkAttendeeMirrored(ctx, a.ID, s.now()); err != nil {
			return fmt.Errorf("mark attendee %d mirrored: %w", a.ID, err)
		}
	}

	entries, err := s.repo.FindUnmirroredEntries(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load pending entries of attendee %d: %w", a.ID, err)
	}

	for i, e := range entries {
		if i == 0 {
			if ordinal, ok := s.headWritten(ctx, a, e); ok {
				if err := s.repo.MarkEntryMirrored(ctx, e.ID, ordinal, s.now()); err != nil {
					return fmt.Errorf("mark entry %d mirrored: %w", e.ID, err)
				}
				continue
			}
		}

		ordinal, err := s.table.AppendEntry(ctx, a.MirrorTable, a.CredentialID, e.Action)
		metrics.MirrorWrites.WithLabelValues("append_entry", metrics.Result(err)).Inc()
		if err != nil {
			s.bookkeep(ctx, func(ctx context.Context) error {
				return s.repo.RecordEntryMirrorFailure(ctx, e.ID, err.Error(), s.nextAttempt(e.MirrorAttempts+1))
			})
			return fmt.Errorf("mirror %q for %s: %w", e.Action, a.CredentialID, err)
		}
		if err := s.repo.MarkEntryMirrored(ctx, e.ID, ordinal, s.now()); err != nil {
			// the cell is written; headWritten picks it up on the next sync
			return fmt.Errorf("mark entry %d mirrored: %w", e.ID, err)
		}
	}
	return nil
}

// headWritten reports whether the oldest pending entry already sits in the
// column it would have been appended to. That happens when marking it
// mirrored failed after the cell write. Column 1 holds the registration
// status, so the head belongs right after the entries already mirrored.
func (s *Syncer) headWritten(ctx context.Context, a *models.Attendee, head models.StatusEntry) (int, bool) {
	ordinal := 2
	for _, e := range a.StatusHistory {
		if e.MirroredAt != nil {
			ordinal++
		}
	}

	trail, err := s.table.Trail(ctx, a.MirrorTable, a.CredentialID)
	if err != nil {
		// AppendEntry surfaces the same fault with failure bookkeeping
		return 0, false
	}
	if len(trail) >= ordinal && trail[ordinal-1] == head.Action {
		log.Info().Str("component", "mirror").Str("qr_code_id", a.CredentialID).Int("column", ordinal).
			Msg("pending entry already in audit table")
		return ordinal, true
	}
	return 0, false
}

// bookkeep records a failure even when ctx already expired.
func (s *Syncer) bookkeep(ctx context.Context, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("component", "mirror").Msg("failed to record mirror failure")
	}
}

func (s *Syncer) nextAttempt(attempts int) time.Time {
	return s.now().Add(Backoff(attempts))
}

// Backoff doubles from 5s per failed attempt, capped at 10 minutes.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
