package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/audit"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Mock EventRepository ---

type mockEventRepo struct {
	createFn     func(ctx context.Context, event *models.Event) error
	findByIDFn   func(ctx context.Context, id uint) (*models.Event, error)
	findByNameFn func(ctx context.Context, name string) (*models.Event, error)
	findAllFn    func(ctx context.Context) ([]models.Event, error)
	deleteFn     func(ctx context.Context, id uint) error
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	return m.createFn(ctx, event)
}
func (m *mockEventRepo) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockEventRepo) FindByName(ctx context.Context, name string) (*models.Event, error) {
	if m.findByNameFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.findByNameFn(ctx, name)
}
func (m *mockEventRepo) FindAll(ctx context.Context) ([]models.Event, error) {
	return m.findAllFn(ctx)
}
func (m *mockEventRepo) Delete(ctx context.Context, id uint) error {
	return m.deleteFn(ctx, id)
}

// --- Mock TableCreator ---

type mockTables struct {
	createFn func(ctx context.Context, table string, fields []string) error
}

func (m *mockTables) CreateTable(ctx context.Context, table string, fields []string) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, table, fields)
}

// --- Mock Publisher ---

type published struct {
	key     string
	payload any
}

type mockPublisher struct {
	sent []published
	err  error
}

func (m *mockPublisher) Publish(routingKey string, payload any) error {
	m.sent = append(m.sent, published{routingKey, payload})
	return m.err
}

// --- Tests ---

func TestCreateEvent_Success(t *testing.T) {
	var tableName string
	var tableFields []string
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, event *models.Event) error {
			event.ID = 1
			return nil
		},
	}
	tables := &mockTables{createFn: func(ctx context.Context, table string, fields []string) error {
		tableName, tableFields = table, fields
		return nil
	}}
	pub := &mockPublisher{}

	svc := NewEventService(repo, tables, pub)
	event, err := svc.CreateEvent(context.Background(), "  Gala  ", []string{"Name", " Phone "})

	require.NoError(t, err)
	assert.Equal(t, uint(1), event.ID)
	assert.Equal(t, "Gala", event.Name)
	assert.Equal(t, []string{"Name", "Phone"}, event.Fields)
	assert.Equal(t, "Gala", tableName)
	assert.Equal(t, []string{"Name", "Phone"}, tableFields)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "event.created", pub.sent[0].key)
}

func TestCreateEvent_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		event  string
		fields []string
	}{
		{"blank name", "   ", []string{"Name"}},
		{"no fields", "Gala", nil},
		{"blank field", "Gala", []string{"Name", " "}},
		{"duplicate field", "Gala", []string{"Name", "Name"}},
		{"credential column", "Gala", []string{"QR_ID"}},
		{"timestamp column", "Gala", []string{"Timestamp"}},
		{"status prefix", "Gala", []string{"Status of payment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewEventService(&mockEventRepo{}, &mockTables{}, nil)
			_, err := svc.CreateEvent(context.Background(), tt.event, tt.fields)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestCreateEvent_NameExistsInCatalog(t *testing.T) {
	repo := &mockEventRepo{
		findByNameFn: func(ctx context.Context, name string) (*models.Event, error) {
			return &models.Event{ID: 3, Name: name}, nil
		},
	}
	tables := &mockTables{createFn: func(ctx context.Context, table string, fields []string) error {
		t.Fatal("table must not be created")
		return nil
	}}

	_, err := NewEventService(repo, tables, nil).CreateEvent(context.Background(), "Gala", []string{"Name"})
	assert.ErrorIs(t, err, ErrEventExists)
}

func TestCreateEvent_TableLeftFromDeletedEvent(t *testing.T) {
	repo := &mockEventRepo{}
	tables := &mockTables{createFn: func(ctx context.Context, table string, fields []string) error {
		return audit.ErrTableExists
	}}

	_, err := NewEventService(repo, tables, nil).CreateEvent(context.Background(), "Gala", []string{"Name"})
	assert.ErrorIs(t, err, ErrEventExists)
}

func TestCreateEvent_TableFailureSavesNothing(t *testing.T) {
	saved := false
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, event *models.Event) error {
			saved = true
			return nil
		},
	}
	tables := &mockTables{createFn: func(ctx context.Context, table string, fields []string) error {
		return errors.New("invalid credentials")
	}}

	_, err := NewEventService(repo, tables, nil).CreateEvent(context.Background(), "Gala", []string{"Name"})

	assert.ErrorIs(t, err, ErrMirrorFailed)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.False(t, saved)
}

func TestCreateEvent_RepoError(t *testing.T) {
	repo := &mockEventRepo{
		findByNameFn: func(ctx context.Context, name string) (*models.Event, error) {
			return nil, errors.New("db connection failed")
		},
	}

	_, err := NewEventService(repo, &mockTables{}, nil).CreateEvent(context.Background(), "Gala", []string{"Name"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db connection failed")
}

func TestCreateEvent_PublishFailureIgnored(t *testing.T) {
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, event *models.Event) error { return nil },
	}
	pub := &mockPublisher{err: errors.New("channel closed")}

	_, err := NewEventService(repo, &mockTables{}, pub).CreateEvent(context.Background(), "Gala", []string{"Name"})
	assert.NoError(t, err)
}

func TestGetEvent_NotFound(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Event, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}

	event, err := NewEventService(repo, &mockTables{}, nil).GetEvent(context.Background(), 999)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Nil(t, event)
}

func TestListEvents_Success(t *testing.T) {
	repo := &mockEventRepo{
		findAllFn: func(ctx context.Context) ([]models.Event, error) {
			return []models.Event{{ID: 2, Name: "Concert"}, {ID: 1, Name: "Gala"}}, nil
		},
	}

	events, err := NewEventService(repo, &mockTables{}, nil).ListEvents(context.Background())
	assert.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestDeleteEvent(t *testing.T) {
	pub := &mockPublisher{}
	repo := &mockEventRepo{
		deleteFn: func(ctx context.Context, id uint) error {
			if id == 1 {
				return nil
			}
			return gorm.ErrRecordNotFound
		},
	}
	svc := NewEventService(repo, &mockTables{}, pub)

	assert.NoError(t, svc.DeleteEvent(context.Background(), 1))
	assert.ErrorIs(t, svc.DeleteEvent(context.Background(), 2), ErrEventNotFound)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "event.deleted", pub.sent[0].key)
}
