package application

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

func newTestService(api *apiStub) *NotificationService {
	return NewNotificationService(api, NewStore(nil), domain.NewFormatter(time.UTC, ""), nil, nil)
}

func TestNotificationService_FetchSortsNewestFirst(t *testing.T) {
	api := &apiStub{listFn: func(context.Context) ([]domain.Notification, error) {
		return []domain.Notification{
			record("1", "2025-01-01T10:00", domain.StatusUnread),
			record("2", "2025-01-02T09:00", domain.StatusUnread),
			record("3", "2024-12-31T23:59", domain.StatusRead),
		}, nil
	}}
	svc := newTestService(api)

	var rec recorder
	svc.Store().Subscribe(rec.listen)
	svc.Fetch(context.Background())

	snapshot := svc.Store().Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, domain.ID("2"), snapshot[0].ID)
	assert.Equal(t, domain.ID("1"), snapshot[1].ID)
	assert.Equal(t, domain.ID("3"), snapshot[2].ID)
	assert.Equal(t, "02 Jan 2025, 09:00 AM", snapshot[0].FormattedTime)
	assert.Equal(t, 2, rec.count())
}

func TestNotificationService_FetchKeepsOrderOfEqualTimestamps(t *testing.T) {
	api := &apiStub{listFn: func(context.Context) ([]domain.Notification, error) {
		return []domain.Notification{
			record("a", "2025-01-01T10:00", domain.StatusUnread),
			record("b", "2025-01-02T10:00", domain.StatusUnread),
			record("c", "2025-01-01T10:00", domain.StatusRead),
			record("d", "2025-01-01T10:00", domain.StatusUnread),
		}, nil
	}}
	svc := newTestService(api)
	svc.Fetch(context.Background())

	var ids []domain.ID
	for _, n := range svc.Store().Snapshot() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []domain.ID{"b", "a", "c", "d"}, ids)
}

func TestNotificationService_FetchOrdersNaiveAgainstZoned(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	api := &apiStub{listFn: func(context.Context) ([]domain.Notification, error) {
		return []domain.Notification{
			// 09:00 in Kolkata is 03:30 UTC.
			record("naive", "2025-01-02T09:00", domain.StatusUnread),
			record("zoned", "2025-01-02T05:00:00Z", domain.StatusUnread),
			record("earlier", "2025-01-02T03:00:00Z", domain.StatusUnread),
		}, nil
	}}
	svc := NewNotificationService(api, NewStore(nil), domain.NewFormatter(kolkata, ""), nil, nil)
	svc.Fetch(context.Background())

	snapshot := svc.Store().Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, domain.ID("zoned"), snapshot[0].ID)
	assert.Equal(t, "02 Jan 2025, 10:30 AM", snapshot[0].FormattedTime)
	assert.Equal(t, domain.ID("naive"), snapshot[1].ID)
	assert.Equal(t, "02 Jan 2025, 09:00 AM", snapshot[1].FormattedTime)
	assert.Equal(t, domain.ID("earlier"), snapshot[2].ID)
	assert.Equal(t, "2025-01-02T09:00", snapshot[1].Timestamp.Raw())
}

func TestNotificationService_FetchFailureKeepsCacheAndNotifies(t *testing.T) {
	api := &apiStub{listFn: func(context.Context) ([]domain.Notification, error) {
		return nil, errors.New("connection refused")
	}}
	svc := newTestService(api)
	cached := []domain.Notification{record("9", "2025-01-01T10:00", domain.StatusUnread)}
	svc.Store().Replace(cached)

	var rec recorder
	svc.Store().Subscribe(rec.listen)
	svc.Fetch(context.Background())

	assert.Equal(t, cached, svc.Store().Snapshot())
	assert.Equal(t, 2, rec.count())
}

func TestNotificationService_Ingest(t *testing.T) {
	svc := newTestService(&apiStub{})
	svc.Store().Replace([]domain.Notification{record("1", "2025-01-01T10:00", domain.StatusRead)})

	n, err := svc.Ingest([]byte(`{"id":2,"message":"Shift swap requested","timestamp":"2025-01-03T08:15","status":"unread"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ID("2"), n.ID)
	assert.Equal(t, "03 Jan 2025, 08:15 AM", n.FormattedTime)

	snapshot := svc.Store().Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, domain.ID("2"), snapshot[0].ID)

	_, err = svc.Ingest([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.Len(t, svc.Store().Snapshot(), 2)
}

func TestNotificationService_MarkAsReadRollsBackOnFailure(t *testing.T) {
	api := &apiStub{markFn: func(context.Context, domain.ID) error {
		return errors.New("500 internal server error")
	}}
	svc := newTestService(api)
	initial := []domain.Notification{
		record("1", "2025-01-02T10:00", domain.StatusUnread),
		record("2", "2025-01-01T10:00", domain.StatusRead),
	}
	svc.Store().Replace(initial)

	var rec recorder
	svc.Store().Subscribe(rec.listen)

	assert.True(t, svc.MarkAsRead("1"))
	svc.Wait()

	assert.Equal(t, initial, svc.Store().Snapshot())
	// initial delivery, optimistic change, rollback
	require.Equal(t, 3, rec.count())
	assert.Equal(t, domain.StatusRead, rec.snapshots[1][0].Status)
	assert.Equal(t, domain.StatusUnread, rec.snapshots[2][0].Status)
	assert.Equal(t, []domain.ID{"1"}, api.marks())
}

func TestNotificationService_MarkAsReadOptimisticBeforeNetwork(t *testing.T) {
	release := make(chan struct{})
	api := &apiStub{markFn: func(context.Context, domain.ID) error {
		<-release
		return nil
	}}
	svc := newTestService(api)
	svc.Store().Replace([]domain.Notification{record("1", "2025-01-02T10:00", domain.StatusUnread)})

	svc.MarkAsRead("1")

	n, _ := svc.Store().Find("1")
	assert.Equal(t, domain.StatusRead, n.Status)

	close(release)
	svc.Wait()
	n, _ = svc.Store().Find("1")
	assert.Equal(t, domain.StatusRead, n.Status)
}

func TestNotificationService_MarkAsReadUnknownIDIsNoop(t *testing.T) {
	api := &apiStub{}
	svc := newTestService(api)
	svc.Store().Replace([]domain.Notification{record("1", "2025-01-02T10:00", domain.StatusUnread)})

	var rec recorder
	svc.Store().Subscribe(rec.listen)

	assert.False(t, svc.MarkAsRead("404"))
	svc.Wait()

	assert.Empty(t, api.marks())
	assert.Equal(t, 1, rec.count())
}

func TestNotificationService_MarkAllAsRead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := &apiStub{}
		svc := newTestService(api)
		svc.Store().Replace([]domain.Notification{
			record("1", "2025-01-02T10:00", domain.StatusUnread),
			record("2", "2025-01-01T10:00", domain.StatusUnread),
		})

		svc.MarkAllAsRead()
		svc.Wait()

		assert.Equal(t, 0, domain.CountUnread(svc.Store().Snapshot()))
		assert.Equal(t, 1, api.markAllCall)
	})

	t.Run("failure rolls back every record", func(t *testing.T) {
		api := &apiStub{markAllFn: func(context.Context) error { return errors.New("timeout") }}
		svc := newTestService(api)
		initial := []domain.Notification{
			record("1", "2025-01-02T10:00", domain.StatusUnread),
			record("2", "2025-01-01T10:00", domain.StatusRead),
			record("3", "2024-12-01T10:00", domain.StatusUnread),
		}
		svc.Store().Replace(initial)

		var rec recorder
		svc.Store().Subscribe(rec.listen)
		svc.MarkAllAsRead()
		svc.Wait()

		assert.Equal(t, initial, svc.Store().Snapshot())
		assert.Equal(t, 3, rec.count())
	})

	t.Run("empty set still confirms", func(t *testing.T) {
		api := &apiStub{}
		svc := newTestService(api)
		svc.MarkAllAsRead()
		svc.Wait()
		assert.Equal(t, 1, api.markAllCall)
	})
}

func TestNotificationService_CloseCancelsBackgroundCalls(t *testing.T) {
	api := &apiStub{markFn: func(ctx context.Context, _ domain.ID) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	svc := newTestService(api)
	svc.Store().Replace([]domain.Notification{record("1", "2025-01-02T10:00", domain.StatusUnread)})

	svc.MarkAsRead("1")
	svc.Close()

	n, _ := svc.Store().Find("1")
	assert.Equal(t, domain.StatusUnread, n.Status)
}
