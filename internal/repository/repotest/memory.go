// Package repotest provides in-memory repositories for tests that need real
// registry state rather than per-call stubs.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository"
	"gorm.io/gorm"
)

var (
	_ repository.EventRepository    = (*Events)(nil)
	_ repository.AttendeeRepository = (*Attendees)(nil)
)

// Events implements repository.EventRepository.
type Events struct {
	mu     sync.Mutex
	nextID uint
	ByID   map[uint]*models.Event
}

func NewEvents() *Events {
	return &Events{ByID: map[uint]*models.Event{}}
}

func (r *Events) Create(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.ByID {
		if e.Name == event.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	event.ID = r.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	cp := *event
	r.ByID[event.ID] = &cp
	return nil
}

func (r *Events) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ByID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *Events) FindByName(ctx context.Context, name string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.ByID {
		if e.Name == name {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Events) FindAll(ctx context.Context) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, 0, len(r.ByID))
	for _, e := range r.ByID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Events) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ByID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.ByID, id)
	return nil
}

// Attendees implements repository.AttendeeRepository. Tests may inspect and
// adjust Rows and Entries directly while no other goroutine is running.
type Attendees struct {
	mu        sync.Mutex
	nextID    uint
	nextEntry uint
	Rows      map[uint]*models.Attendee
	Entries   map[uint]*models.StatusEntry
}

func NewAttendees() *Attendees {
	return &Attendees{Rows: map[uint]*models.Attendee{}, Entries: map[uint]*models.StatusEntry{}}
}

func (r *Attendees) Create(ctx context.Context, a *models.Attendee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Rows {
		if existing.CredentialID == a.CredentialID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	a.ID = r.nextID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	cp.StatusHistory = nil
	r.Rows[a.ID] = &cp
	return nil
}

// load copies a row with its history; callers hold mu.
func (r *Attendees) load(a *models.Attendee) *models.Attendee {
	cp := *a
	cp.StatusHistory = nil
	for _, e := range r.sortedEntries(func(e *models.StatusEntry) bool { return e.AttendeeID == a.ID }) {
		cp.StatusHistory = append(cp.StatusHistory, e)
	}
	return &cp
}

func (r *Attendees) sortedEntries(keep func(*models.StatusEntry) bool) []models.StatusEntry {
	var out []models.StatusEntry
	for _, e := range r.Entries {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Attendees) FindByID(ctx context.Context, id uint) (*models.Attendee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.load(a), nil
}

func (r *Attendees) FindByCredential(ctx context.Context, credentialID string) (*models.Attendee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.Rows {
		if a.CredentialID == credentialID {
			return r.load(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Attendees) AppendStatus(ctx context.Context, a *models.Attendee, e *models.StatusEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.Rows[a.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.nextEntry++
	e.ID = r.nextEntry
	e.AttendeeID = a.ID
	cp := *e
	r.Entries[e.ID] = &cp
	stored.CurrentStatus = e.Action

	a.CurrentStatus = e.Action
	a.StatusHistory = append(a.StatusHistory, *e)
	return nil
}

func (r *Attendees) FindUnmirroredEntries(ctx context.Context, attendeeID uint) ([]models.StatusEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedEntries(func(e *models.StatusEntry) bool {
		return e.AttendeeID == attendeeID && e.MirroredAt == nil
	}), nil
}

func (r *Attendees) MarkAttendeeMirrored(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.MirroredAt = &at
	a.MirrorError = nil
	return nil
}

func (r *Attendees) MarkEntryMirrored(ctx context.Context, entryID uint, column int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.Entries[entryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.MirroredAt = &at
	e.MirrorColumn = column
	e.MirrorError = nil
	return nil
}

func (r *Attendees) RecordAttendeeMirrorFailure(ctx context.Context, id uint, reason string, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.MirrorAttempts++
	a.MirrorError = &reason
	a.NextMirrorAt = &next
	return nil
}

func (r *Attendees) RecordEntryMirrorFailure(ctx context.Context, entryID uint, reason string, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.Entries[entryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.MirrorAttempts++
	e.MirrorError = &reason
	e.NextMirrorAt = &next
	return nil
}

func due(mirroredAt, next *time.Time, attempts int, now time.Time, maxAttempts int) bool {
	return mirroredAt == nil && attempts < maxAttempts && (next == nil || !next.After(now))
}

// FindMirrorBacklog applies the same head-of-queue rule as the gorm
// repository: an unmirrored identity row decides for its attendee, otherwise
// the lowest-id unmirrored entry does.
func (r *Attendees) FindMirrorBacklog(ctx context.Context, now time.Time, maxAttempts, limit int) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	heads := map[uint]*models.StatusEntry{}
	for _, e := range r.Entries {
		if e.MirroredAt != nil {
			continue
		}
		if h, ok := heads[e.AttendeeID]; !ok || e.ID < h.ID {
			heads[e.AttendeeID] = e
		}
	}

	ids := []uint{}
	for id, a := range r.Rows {
		if a.MirroredAt == nil {
			if due(a.MirroredAt, a.NextMirrorAt, a.MirrorAttempts, now, maxAttempts) {
				ids = append(ids, id)
			}
			continue
		}
		if h, ok := heads[id]; ok && due(h.MirroredAt, h.NextMirrorAt, h.MirrorAttempts, now, maxAttempts) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *Attendees) ListMirrorBacklog(ctx context.Context, limit int) ([]models.Attendee, []models.StatusEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []models.Attendee
	for _, a := range r.Rows {
		if a.MirroredAt == nil {
			rows = append(rows, *a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	entries := r.sortedEntries(func(e *models.StatusEntry) bool { return e.MirroredAt == nil })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return rows, entries, nil
}

func (r *Attendees) CountMirrorBacklog(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.Rows {
		if a.MirroredAt == nil {
			n++
		}
	}
	for _, e := range r.Entries {
		if e.MirroredAt == nil {
			n++
		}
	}
	return n, nil
}
