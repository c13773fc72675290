package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	created   []*notification.Notification
	batches   int
	direct    int
	batchErr  error
	markedIDs []string
	markedAll []string
	stored    []*notification.Notification
	unread    int
}

func (r *fakeRepo) Create(ctx context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct++
	r.created = append(r.created, n)
	return nil
}

func (r *fakeRepo) CreateBatch(ctx context.Context, ns []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchErr != nil {
		return r.batchErr
	}
	r.batches++
	r.created = append(r.created, ns...)
	return nil
}

func (r *fakeRepo) GetByUserID(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) ([]*notification.Notification, int, error) {
	return r.stored, len(r.stored), nil
}

func (r *fakeRepo) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return r.unread, nil
}

func (r *fakeRepo) MarkAsRead(ctx context.Context, ids []string, userID string) error {
	r.markedIDs = append(r.markedIDs, ids...)
	return nil
}

func (r *fakeRepo) MarkAllAsRead(ctx context.Context, userID string) error {
	r.markedAll = append(r.markedAll, userID)
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

func request(userID string) notification.CreateNotificationRequest {
	id := "req-1"
	return notification.CreateNotificationRequest{
		UserID:         userID,
		LeaveRequestID: &id,
		Type:           notification.TypeLeaveApproved,
		Title:          "Leave request approved",
		Message:        "Your annual leave was approved.",
	}
}

func TestService_BatchesAndPublishes(t *testing.T) {
	repo := &fakeRepo{}
	hub := sse.NewHub(4)
	svc := NewNotificationService(repo, hub, Config{BatchSize: 2, FlushInterval: time.Hour, WorkerCount: 1})
	defer svc.Stop()

	events, cleanup := svc.Subscribe(context.Background(), "user-1")
	defer cleanup()

	require.NoError(t, svc.QueueNotification(context.Background(), request("user-1")))
	require.NoError(t, svc.QueueNotification(context.Background(), request("user-1")))

	require.Eventually(t, func() bool { return repo.count() == 2 }, time.Second, 10*time.Millisecond)

	select {
	case ev := <-events:
		assert.Equal(t, "notification", ev.Event)
		assert.Equal(t, notification.TypeLeaveApproved, ev.Data.Type)
		require.NotNil(t, ev.Data.LeaveRequestID)
		assert.Equal(t, "req-1", *ev.Data.LeaveRequestID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestService_StopFlushesQueuedNotifications(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(repo, sse.NewHub(0), Config{BatchSize: 100, FlushInterval: time.Hour, WorkerCount: 2})

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.QueueNotification(context.Background(), request("user-1")))
	}
	svc.Stop()
	svc.Stop()

	assert.Equal(t, 5, repo.count())
	assert.ErrorIs(t, svc.QueueNotification(context.Background(), request("user-1")), notification.ErrServiceStopped)
}

func TestService_StopRacingWithProducersLosesNothing(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(repo, sse.NewHub(0), Config{BatchSize: 1000, FlushInterval: time.Hour, WorkerCount: 2})

	var accepted atomic.Int64
	var producers sync.WaitGroup
	for i := 0; i < 20; i++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for j := 0; j < 50; j++ {
				if err := svc.QueueNotification(context.Background(), request("user-1")); err == nil {
					accepted.Add(1)
				} else {
					assert.ErrorIs(t, err, notification.ErrServiceStopped)
				}
			}
		}()
	}

	svc.Stop()
	producers.Wait()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, int(accepted.Load()), len(repo.created))
}

func TestService_FullQueueFallsBackToDirectInsert(t *testing.T) {
	repo := &fakeRepo{}
	s := &service{
		repo:   repo,
		hub:    sse.NewHub(0),
		config: Config{BatchSize: 1, QueueSize: 1},
		now:    time.Now,
		queue:  make(chan notification.CreateNotificationRequest, 1),
		stopCh: make(chan struct{}),
	}

	// No workers are running, so the second request finds the queue full
	require.NoError(t, s.QueueNotification(context.Background(), request("user-1")))
	require.NoError(t, s.QueueNotification(context.Background(), request("user-2")))

	assert.Equal(t, 1, repo.direct)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "user-2", repo.created[0].UserID)
}

func TestService_BatchFailureIsLogged(t *testing.T) {
	repo := &fakeRepo{batchErr: errors.New("db down")}
	svc := NewNotificationService(repo, sse.NewHub(0), Config{BatchSize: 1, FlushInterval: time.Hour, WorkerCount: 1})

	require.NoError(t, svc.QueueNotification(context.Background(), request("user-1")))
	svc.Stop()

	assert.Zero(t, repo.count())
}

func TestService_ReadOperations(t *testing.T) {
	created := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		stored: []*notification.Notification{
			{ID: "n-1", UserID: "user-1", Type: notification.TypeLeaveRequest, Title: "New leave request", CreatedAt: created},
		},
		unread: 1,
	}
	svc := NewNotificationService(repo, sse.NewHub(0), Config{WorkerCount: 1})
	defer svc.Stop()
	ctx := context.Background()

	list, err := svc.GetNotifications(ctx, "user-1", 0, 500, false)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.PageSize)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.UnreadCount)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "n-1", list.Notifications[0].ID)

	count, err := svc.GetUnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkAsRead(ctx, "user-1", notification.MarkAsReadRequest{}))
	assert.Empty(t, repo.markedIDs)
	require.NoError(t, svc.MarkAsRead(ctx, "user-1", notification.MarkAsReadRequest{NotificationIDs: []string{"n-1"}}))
	assert.Equal(t, []string{"n-1"}, repo.markedIDs)

	require.NoError(t, svc.MarkAllAsRead(ctx, "user-1"))
	assert.Equal(t, []string{"user-1"}, repo.markedAll)
}

func TestService_SubscribeEndsWithContext(t *testing.T) {
	svc := NewNotificationService(&fakeRepo{}, sse.NewHub(0), Config{WorkerCount: 1})
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	events, cleanup := svc.Subscribe(ctx, "user-1")
	defer cleanup()

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream was not closed")
	}
}
