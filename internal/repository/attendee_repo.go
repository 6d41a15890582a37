package repository

import (
	"context"
	"slices"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
	"gorm.io/gorm"
)

type AttendeeRepository interface {
	Create(ctx context.Context, attendee *models.Attendee) error
	FindByID(ctx context.Context, id uint) (*models.Attendee, error)
	FindByCredential(ctx context.Context, credentialID string) (*models.Attendee, error)
	AppendStatus(ctx context.Context, attendee *models.Attendee, entry *models.StatusEntry) error

	FindUnmirroredEntries(ctx context.Context, attendeeID uint) ([]models.StatusEntry, error)
	MarkAttendeeMirrored(ctx context.Context, id uint, at time.Time) error
	MarkEntryMirrored(ctx context.Context, entryID uint, column int, at time.Time) error
	RecordAttendeeMirrorFailure(ctx context.Context, id uint, reason string, next time.Time) error
	RecordEntryMirrorFailure(ctx context.Context, entryID uint, reason string, next time.Time) error
	FindMirrorBacklog(ctx context.Context, now time.Time, maxAttempts, limit int) ([]uint, error)
	ListMirrorBacklog(ctx context.Context, limit int) ([]models.Attendee, []models.StatusEntry, error)
	CountMirrorBacklog(ctx context.Context) (int64, error)
}

type attendeeRepository struct {
	db *gorm.DB
}

func NewAttendeeRepository(db *gorm.DB) AttendeeRepository {
	return &attendeeRepository{db: db}
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func (r *attendeeRepository) Create(ctx context.Context, attendee *models.Attendee) error {
	return r.db.WithContext(ctx).Create(attendee).Error
}

func (r *attendeeRepository) FindByID(ctx context.Context, id uint) (*models.Attendee, error) {
	var attendee models.Attendee
	if err := withHistory(r.db.WithContext(ctx)).First(&attendee, id).Error; err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (r *attendeeRepository) FindByCredential(ctx context.Context, credentialID string) (*models.Attendee, error) {
	var attendee models.Attendee
	err := withHistory(r.db.WithContext(ctx)).
		Where("credential_id = ?", credentialID).
		First(&attendee).Error
	if err != nil {
		return nil, err
	}
	return &attendee, nil
}

// AppendStatus inserts the entry and moves current_status in one transaction.
func (r *attendeeRepository) AppendStatus(ctx context.Context, attendee *models.Attendee, entry *models.StatusEntry) error {
	entry.AttendeeID = attendee.ID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Attendee{}).
			Where("id = ?", attendee.ID).
			Update("current_status", entry.Action).Error
	})
	if err != nil {
		return err
	}

	attendee.CurrentStatus = entry.Action
	attendee.StatusHistory = append(attendee.StatusHistory, *entry)
	return nil
}

func (r *attendeeRepository) FindUnmirroredEntries(ctx context.Context, attendeeID uint) ([]models.StatusEntry, error) {
	var entries []models.StatusEntry
	err := r.db.WithContext(ctx).
		Where("attendee_id = ? AND mirrored_at IS NULL", attendeeID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *attendeeRepository) MarkAttendeeMirrored(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Attendee{}).Where("id = ?", id).Updates(map[string]any{
		"mirrored_at":  at,
		"mirror_error": nil,
	}).Error
}

func (r *attendeeRepository) MarkEntryMirrored(ctx context.Context, entryID uint, column int, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.StatusEntry{}).Where("id = ?", entryID).Updates(map[string]any{
		"mirrored_at":   at,
		"mirror_column": column,
		"mirror_error":  nil,
	}).Error
}

func (r *attendeeRepository) RecordAttendeeMirrorFailure(ctx context.Context, id uint, reason string, next time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Attendee{}).Where("id = ?", id).Updates(map[string]any{
		"mirror_attempts": gorm.Expr("mirror_attempts + 1"),
		"mirror_error":    reason,
		"next_mirror_at":  next,
	}).Error
}

func (r *attendeeRepository) RecordEntryMirrorFailure(ctx context.Context, entryID uint, reason string, next time.Time) error {
	return r.db.WithContext(ctx).Model(&models.StatusEntry{}).Where("id = ?", entryID).Updates(map[string]any{
		"mirror_attempts": gorm.Expr("mirror_attempts + 1"),
		"mirror_error":    reason,
		"next_mirror_at":  next,
	}).Error
}

const backlogDue = "mirrored_at IS NULL AND mirror_attempts < ? AND (next_mirror_at IS NULL OR next_mirror_at <= ?)"

// headEntry restricts status_entries to the oldest unmirrored entry of an
// attendee whose identity row is already mirrored.
const headEntry = `status_entries.id = (
	SELECT MIN(pending.id) FROM status_entries pending
	WHERE pending.attendee_id = status_entries.attendee_id AND pending.mirrored_at IS NULL
) AND EXISTS (
	SELECT 1 FROM attendees owner
	WHERE owner.id = status_entries.attendee_id AND owner.mirrored_at IS NOT NULL
)`

// FindMirrorBacklog returns ids of attendees due for another mirror attempt,
// oldest first. Only the head of an attendee's queue decides: its identity
// row while unmirrored, otherwise its oldest unmirrored entry. Items queued
// behind a failing head never bypass the head's backoff or attempt limit.
func (r *attendeeRepository) FindMirrorBacklog(ctx context.Context, now time.Time, maxAttempts, limit int) ([]uint, error) {
	db := r.db.WithContext(ctx)

	var rowOwners []uint
	if err := db.Model(&models.Attendee{}).
		Where(backlogDue, maxAttempts, now).
		Order("id ASC").Limit(limit).
		Pluck("id", &rowOwners).Error; err != nil {
		return nil, err
	}

	var entryOwners []uint
	if err := db.Model(&models.StatusEntry{}).
		Where(headEntry).
		Where(backlogDue, maxAttempts, now).
		Order("attendee_id ASC").Limit(limit).
		Pluck("attendee_id", &entryOwners).Error; err != nil {
		return nil, err
	}

	ids := append(rowOwners, entryOwners...)
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ListMirrorBacklog returns everything not yet mirrored, including rows that
// exhausted their attempts.
func (r *attendeeRepository) ListMirrorBacklog(ctx context.Context, limit int) ([]models.Attendee, []models.StatusEntry, error) {
	db := r.db.WithContext(ctx)

	var attendees []models.Attendee
	if err := db.Where("mirrored_at IS NULL").Order("id ASC").Limit(limit).Find(&attendees).Error; err != nil {
		return nil, nil, err
	}
	var entries []models.StatusEntry
	if err := db.Where("mirrored_at IS NULL").Order("id ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}
	return attendees, entries, nil
}

func (r *attendeeRepository) CountMirrorBacklog(ctx context.Context) (int64, error) {
	db := r.db.WithContext(ctx)

	var rows, entries int64
	if err := db.Model(&models.Attendee{}).Where("mirrored_at IS NULL").Count(&rows).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&models.StatusEntry{}).Where("mirrored_at IS NULL").Count(&entries).Error; err != nil {
		return 0, err
	}
	return rows + entries, nil
}
