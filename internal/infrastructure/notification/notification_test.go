package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/dispatcher"
	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/event"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

type mockNotificationRepo struct {
	mu       sync.Mutex
	triggers []*entity.NotificationTrigger

	createFunc func(ctx context.Context, trigger *entity.NotificationTrigger) error
	listErr    error
}

func (m *mockNotificationRepo) Create(ctx context.Context, trigger *entity.NotificationTrigger) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, trigger)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.triggers {
		if t.EventID == trigger.EventID {
			return port.ErrDuplicateEntry
		}
	}
	trigger.ID = int64(len(m.triggers) + 1)
	m.triggers = append(m.triggers, trigger)
	return nil
}

func (m *mockNotificationRepo) ListPending(ctx context.Context, limit int) ([]*entity.NotificationTrigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*entity.NotificationTrigger
	for _, t := range m.triggers {
		if t.Status == entity.NotificationStatusPending && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}

func TestNotifier_StatusChangedReachesOutbox(t *testing.T) {
	repo := &mockNotificationRepo{}
	d := dispatcher.NewDispatcher()
	NewOutbox(repo, zap.NewNop()).Register(d)
	notifier := NewDispatchNotifier(d, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	notifier.StatusChanged(ctx, port.StatusChange{
		Domain:        workflow.DomainClearance,
		ApplicationID: 42,
		OldStatus:     "pending",
		NewStatus:     "under_review",
		RecipientID:   7,
		ActorID:       "staff-1",
		CorrelationID: "req-1",
	})
	// delivery must survive the caller's context ending
	cancel()

	require.NoError(t, d.Close())
	require.Equal(t, 1, repo.count())

	trigger := repo.triggers[0]
	assert.Equal(t, "clearance", trigger.Domain)
	assert.Equal(t, int64(42), trigger.ApplicationID)
	assert.Equal(t, "pending", trigger.OldStatus)
	assert.Equal(t, "under_review", trigger.NewStatus)
	assert.Equal(t, int64(7), trigger.RecipientID)
	assert.Equal(t, entity.NotificationStatusPending, trigger.Status)
	assert.NotEmpty(t, trigger.EventID)
}

func TestOutbox_RedeliveryIsIgnored(t *testing.T) {
	repo := &mockNotificationRepo{}
	outbox := NewOutbox(repo, zap.NewNop())

	evt := event.NewEvent(event.TypeApplicationStatusChanged, "housing_beneficiary", 3, map[string]interface{}{
		event.KeyOldStatus:   "verified",
		event.KeyNewStatus:   "approved",
		event.KeyRecipientID: int64(9),
	})

	require.NoError(t, outbox.HandleStatusChanged(context.Background(), evt))
	require.NoError(t, outbox.HandleStatusChanged(context.Background(), evt))
	assert.Equal(t, 1, repo.count())
}

func TestOutbox_Errors(t *testing.T) {
	repo := &mockNotificationRepo{
		createFunc: func(ctx context.Context, trigger *entity.NotificationTrigger) error {
			return errors.New("database is locked")
		},
	}
	outbox := NewOutbox(repo, zap.NewNop())

	evt := event.NewEvent(event.TypeApplicationStatusChanged, "clearance", 1, nil)
	assert.Error(t, outbox.HandleStatusChanged(context.Background(), evt))

	wrong := event.NewEvent(event.TypeWaitlistRanked, "", 0, nil)
	assert.Error(t, outbox.HandleStatusChanged(context.Background(), wrong))
}

func TestOutbox_Pending(t *testing.T) {
	repo := &mockNotificationRepo{}
	outbox := NewOutbox(repo, zap.NewNop())

	for i, status := range []string{"under_review", "verified", "approved"} {
		evt := event.NewEvent(event.TypeApplicationStatusChanged, "housing_beneficiary", int64(i+1), map[string]interface{}{
			event.KeyNewStatus: status,
		})
		require.NoError(t, outbox.HandleStatusChanged(context.Background(), evt))
	}

	pending, err := outbox.Pending(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "under_review", pending[0].NewStatus)

	repo.listErr = errors.New("database is locked")
	_, err = outbox.Pending(context.Background(), 2)
	assert.ErrorContains(t, err, "pending notifications")
}

func TestNotifier_WaitlistRanked(t *testing.T) {
	d := dispatcher.NewDispatcher()

	var (
		mu       sync.Mutex
		received *event.Event
	)
	d.Subscribe(event.TypeWaitlistRanked, "capture", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = evt
		return nil
	})

	NewDispatchNotifier(d, zap.NewNop()).WaitlistRanked(context.Background(), "prog-1", 25)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received != nil
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "prog-1", received.GetPayloadString(event.KeyProgramID))
	assert.Equal(t, int64(25), received.GetPayloadInt(event.KeyEntryCount))
}
