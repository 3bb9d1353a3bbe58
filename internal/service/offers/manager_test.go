package offers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/ports/dispatchtx"
	"delivery-dispatch/internal/ports/notify"
)

// fakeStore is an in-memory stand-in for the transactional repository. It
// mirrors the SQL guards: status transitions require the expected current
// status and SetOrderDriver only succeeds while the order is unassigned.
type fakeStore struct {
	mu          sync.Mutex
	orders      map[string]*domain.Order
	assignments map[int64]*domain.Assignment
	nextID      int64
	escalations map[string]bool // true = pending
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:      make(map[string]*domain.Order),
		assignments: make(map[int64]*domain.Assignment),
		escalations: make(map[string]bool),
		nextID:      1,
	}
}

func (f *fakeStore) addOrder(o domain.Order) { f.orders[o.ID] = &o }

func (f *fakeStore) addOffer(orderID string, driverID int64, expiresAt time.Time) int64 {
	id := f.nextID
	f.nextID++
	f.assignments[id] = &domain.Assignment{
		ID:        id,
		OrderID:   orderID,
		DriverID:  driverID,
		Status:    domain.StatusOffered,
		Wave:      1,
		OfferedAt: expiresAt.Add(-30 * time.Second),
		ExpiresAt: expiresAt,
	}
	return id
}

// WithTx runs fn against the store itself. The mutex stands in for the order
// row lock, which is good enough for single-threaded service tests.
func (f *fakeStore) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

func (f *fakeStore) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return f.GetOrder(ctx, orderID)
}

func (f *fakeStore) SetOrderDriver(_ context.Context, orderID string, driverID int64, at time.Time) error {
	o, ok := f.orders[orderID]
	if !ok || o.DriverID != nil {
		return fmt.Errorf("order %q already assigned", orderID)
	}
	o.DriverID = &driverID
	o.AssignedAt = &at
	return nil
}

func (f *fakeStore) GetAssignment(_ context.Context, id int64) (*domain.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetAcceptedByOrder(_ context.Context, orderID string) (*domain.Assignment, error) {
	for _, a := range f.assignments {
		if a.OrderID == orderID && a.Status == domain.StatusAccepted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertAssignment(_ context.Context, a *domain.Assignment) error {
	for _, existing := range f.assignments {
		if existing.OrderID == a.OrderID && existing.DriverID == a.DriverID {
			return fmt.Errorf("duplicate offer for order %q driver %d", a.OrderID, a.DriverID)
		}
	}
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeStore) mark(id int64, from, to domain.AssignmentStatus, now time.Time) error {
	a, ok := f.assignments[id]
	if !ok || a.Status != from {
		return fmt.Errorf("assignment %d not in status %s", id, from)
	}
	a.Status = to
	a.RespondedAt = &now
	return nil
}

func (f *fakeStore) MarkAccepted(_ context.Context, id int64, now time.Time) error {
	if err := f.mark(id, domain.StatusOffered, domain.StatusAccepted, now); err != nil {
		return err
	}
	f.assignments[id].AcceptedAt = &now
	return nil
}

func (f *fakeStore) MarkDeclined(_ context.Context, id int64, now time.Time, reason *string) error {
	if err := f.mark(id, domain.StatusOffered, domain.StatusDeclined, now); err != nil {
		return err
	}
	f.assignments[id].DeclineReason = reason
	return nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id int64, now time.Time) error {
	return f.mark(id, domain.StatusAccepted, domain.StatusCompleted, now)
}

func (f *fakeStore) ExpireOffered(_ context.Context, orderID string, exceptID int64, now time.Time) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range f.assignments {
		if a.OrderID == orderID && a.Status == domain.StatusOffered && a.ID != exceptID {
			a.Status = domain.StatusExpired
			a.RespondedAt = &now
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) AdjustActive(context.Context, int64, int) error { return nil }

func (f *fakeStore) MarkEscalationDone(_ context.Context, orderID string) error {
	f.escalations[orderID] = false
	return nil
}

type sentEvent struct {
	DriverID int64
	Event    string
	Payload  any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, driverID int64, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{DriverID: driverID, Event: event, Payload: payload})
	return r.err
}

func (r *recordingEmitter) byEvent(event string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// purgedStore loses the assignment row between the ownership read and the
// re-read under the order lock, the way a retention purge racing an accept
// would.
type purgedStore struct {
	*fakeStore
	reads int
}

func (p *purgedStore) WithTx(_ context.Context, fn func(tx dispatchtx.Repository) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p)
}

func (p *purgedStore) GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	p.reads++
	if p.reads > 1 {
		return nil, nil
	}
	return p.fakeStore.GetAssignment(ctx, id)
}

func newTestService(store txRunner, emitter notify.Emitter) *Service {
	svc := NewService(store, emitter, metrics.NewDispatch(), time.Second, logx.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateOffers(t *testing.T) {
	t.Parallel()

	t.Run("creates one offer per driver and notifies", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady, DriverEarning: 8.5})
		emitter := &recordingEmitter{}
		svc := newTestService(store, emitter)

		created, err := svc.CreateOffers(context.Background(), "ord-1", []int64{10, 11}, 30*time.Second, 1, 3)
		require.NoError(t, err)
		require.Len(t, created, 2)

		for _, a := range created {
			require.Equal(t, domain.StatusOffered, a.Status)
			require.Equal(t, a.OfferedAt.Add(30*time.Second), a.ExpiresAt)
		}

		offers := emitter.byEvent(notify.EventAssignmentOffer)
		require.Len(t, offers, 2)
		payload, ok := offers[0].Payload.(OfferPayload)
		require.True(t, ok)
		require.InDelta(t, 8.5, payload.Earning, 1e-9)
		require.InDelta(t, 3, payload.RadiusKm, 1e-9)
	})

	t.Run("zero drivers is a no-op", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})

		created, err := svc.CreateOffers(context.Background(), "ord-1", nil, 30*time.Second, 1, 3)
		require.NoError(t, err)
		require.Empty(t, created)
	})

	t.Run("zero drivers still checks the order", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderCancelled})
		winner := int64(99)
		store.addOrder(domain.Order{ID: "ord-2", Status: domain.OrderReady, DriverID: &winner})
		svc := newTestService(store, &recordingEmitter{})

		_, err := svc.CreateOffers(context.Background(), "ord-1", nil, 30*time.Second, 1, 3)
		require.ErrorIs(t, err, apperr.ErrConflict)

		_, err = svc.CreateOffers(context.Background(), "ord-2", nil, 30*time.Second, 1, 3)
		reason, ok := apperr.ReasonOf(err)
		require.True(t, ok)
		require.Equal(t, apperr.ReasonAlreadyAssigned, reason)

		_, err = svc.CreateOffers(context.Background(), "ord-404", nil, 30*time.Second, 1, 3)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("assigned order conflicts", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		winner := int64(99)
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady, DriverID: &winner})
		svc := newTestService(store, &recordingEmitter{})

		_, err := svc.CreateOffers(context.Background(), "ord-1", []int64{10}, 30*time.Second, 1, 3)
		require.ErrorIs(t, err, apperr.ErrConflict)
		reason, ok := apperr.ReasonOf(err)
		require.True(t, ok)
		require.Equal(t, apperr.ReasonAlreadyAssigned, reason)
	})

	t.Run("non-dispatchable order conflicts", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderCancelled})
		svc := newTestService(store, &recordingEmitter{})

		_, err := svc.CreateOffers(context.Background(), "ord-1", []int64{10}, 30*time.Second, 1, 3)
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("unknown order", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(newFakeStore(), &recordingEmitter{})

		_, err := svc.CreateOffers(context.Background(), "ord-404", []int64{10}, 30*time.Second, 1, 3)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(newFakeStore(), &recordingEmitter{})

		_, err := svc.CreateOffers(context.Background(), "  ", []int64{10}, 30*time.Second, 1, 3)
		require.ErrorIs(t, err, apperr.ErrInvalid)
		_, err = svc.CreateOffers(context.Background(), "ord-1", []int64{10}, 0, 1, 3)
		require.ErrorIs(t, err, apperr.ErrInvalid)
		_, err = svc.CreateOffers(context.Background(), "ord-1", []int64{10}, 30*time.Second, 0, 3)
		require.ErrorIs(t, err, apperr.ErrInvalid)
	})
}

func TestAccept(t *testing.T) {
	t.Parallel()

	t.Run("winner takes the order, siblings expire", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		emitter := &recordingEmitter{}
		svc := newTestService(store, emitter)

		expiry := svc.now().Add(30 * time.Second)
		winID := store.addOffer("ord-1", 10, expiry)
		loseID := store.addOffer("ord-1", 11, expiry)

		res, err := svc.Accept(context.Background(), winID, 10)
		require.NoError(t, err)
		require.Equal(t, domain.StatusAccepted, res.Assignment.Status)
		require.Len(t, res.Expired, 1)
		require.Equal(t, loseID, res.Expired[0].ID)

		order := store.orders["ord-1"]
		require.NotNil(t, order.DriverID)
		require.Equal(t, int64(10), *order.DriverID)

		statuses := emitter.byEvent(notify.EventAssignmentStatus)
		require.Len(t, statuses, 2, "one for the winner, one per expired sibling")
	})

	t.Run("concurrent accepts elect exactly one winner", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})

		expiry := svc.now().Add(30 * time.Second)
		offerByDriver := map[int64]int64{}
		for driverID := int64(10); driverID < 14; driverID++ {
			offerByDriver[driverID] = store.addOffer("ord-1", driverID, expiry)
		}

		type outcome struct {
			driverID int64
			err      error
		}
		results := make(chan outcome, len(offerByDriver))
		start := make(chan struct{})
		var wg sync.WaitGroup
		for driverID, id := range offerByDriver {
			wg.Add(1)
			go func(driverID, id int64) {
				defer wg.Done()
				<-start
				_, err := svc.Accept(context.Background(), id, driverID)
				results <- outcome{driverID: driverID, err: err}
			}(driverID, id)
		}
		close(start)
		wg.Wait()
		close(results)

		var winner int64
		wins := 0
		for r := range results {
			if r.err == nil {
				wins++
				winner = r.driverID
				continue
			}
			reason, ok := apperr.ReasonOf(r.err)
			require.True(t, ok, "driver %d: unexpected error: %v", r.driverID, r.err)
			require.Equal(t, apperr.ReasonAlreadyAssigned, reason)
		}
		require.Equal(t, 1, wins)

		order := store.orders["ord-1"]
		require.NotNil(t, order.DriverID)
		require.Equal(t, winner, *order.DriverID)
		require.Equal(t, domain.StatusAccepted, store.assignments[offerByDriver[winner]].Status)
		for driverID, id := range offerByDriver {
			if driverID == winner {
				continue
			}
			require.Equal(t, domain.StatusExpired, store.assignments[id].Status)
		}
	})

	t.Run("row purged between reads is not found", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(&purgedStore{fakeStore: store}, &recordingEmitter{})
		id := store.addOffer("ord-1", 10, svc.now().Add(30*time.Second))

		_, err := svc.Accept(context.Background(), id, 10)
		require.ErrorIs(t, err, apperr.ErrNotFound)
		require.Nil(t, store.orders["ord-1"].DriverID)
	})

	t.Run("second accept observes already_assigned", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})

		expiry := svc.now().Add(30 * time.Second)
		first := store.addOffer("ord-1", 10, expiry)
		second := store.addOffer("ord-1", 11, expiry)

		_, err := svc.Accept(context.Background(), first, 10)
		require.NoError(t, err)

		_, err = svc.Accept(context.Background(), second, 11)
		reason, ok := apperr.ReasonOf(err)
		require.True(t, ok)
		require.Equal(t, apperr.ReasonAlreadyAssigned, reason)
	})

	t.Run("foreign assignment is not owned", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})
		id := store.addOffer("ord-1", 10, svc.now().Add(30*time.Second))

		_, err := svc.Accept(context.Background(), id, 11)
		reason, ok := apperr.ReasonOf(err)
		require.True(t, ok)
		require.Equal(t, apperr.ReasonNotOwned, reason)
	})

	t.Run("expired offer cannot be accepted", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})
		id := store.addOffer("ord-1", 10, svc.now().Add(-time.Second))

		_, err := svc.Accept(context.Background(), id, 10)
		reason, ok := apperr.ReasonOf(err)
		require.True(t, ok)
		require.Equal(t, apperr.ReasonExpired, reason)

		require.Nil(t, store.orders["ord-1"].DriverID, "failed accept must not touch the order")
	})

	t.Run("unknown assignment", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		svc := newTestService(store, &recordingEmitter{})

		_, err := svc.Accept(context.Background(), 12345, 10)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("emitter failure does not fail the accept", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		emitter := &recordingEmitter{err: errors.New("broker down")}
		svc := newTestService(store, emitter)
		id := store.addOffer("ord-1", 10, svc.now().Add(30*time.Second))

		res, err := svc.Accept(context.Background(), id, 10)
		require.NoError(t, err)
		require.Equal(t, domain.StatusAccepted, res.Assignment.Status)
	})
}

func TestDecline(t *testing.T) {
	t.Parallel()

	t.Run("records reason and leaves order untouched", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		emitter := &recordingEmitter{}
		svc := newTestService(store, emitter)
		id := store.addOffer("ord-1", 10, svc.now().Add(30*time.Second))

		reason := "too far"
		declined, err := svc.Decline(context.Background(), id, 10, &reason)
		require.NoError(t, err)
		require.Equal(t, domain.StatusDeclined, declined.Status)
		require.Equal(t, &reason, declined.DeclineReason)
		require.Nil(t, store.orders["ord-1"].DriverID)

		statuses := emitter.byEvent(notify.EventAssignmentStatus)
		require.Len(t, statuses, 1)
	})

	t.Run("double decline conflicts", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})
		id := store.addOffer("ord-1", 10, svc.now().Add(30*time.Second))

		_, err := svc.Decline(context.Background(), id, 10, nil)
		require.NoError(t, err)

		_, err = svc.Decline(context.Background(), id, 10, nil)
		reason, ok := apperr.ReasonOf(err)
		require.True(t, ok)
		require.Equal(t, apperr.ReasonAlreadyResponded, reason)
	})

	t.Run("expired offer cannot be declined", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})
		id := store.addOffer("ord-1", 10, svc.now().Add(-time.Second))

		_, err := svc.Decline(context.Background(), id, 10, nil)
		reason, ok := apperr.ReasonOf(err)
		require.True(t, ok)
		require.Equal(t, apperr.ReasonExpired, reason)
	})
}

func TestComplete(t *testing.T) {
	t.Parallel()

	t.Run("closes the accepted assignment", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})
		id := store.addOffer("ord-1", 10, svc.now().Add(30*time.Second))
		_, err := svc.Accept(context.Background(), id, 10)
		require.NoError(t, err)

		require.NoError(t, svc.Complete(context.Background(), "ord-1"))
		require.Equal(t, domain.StatusCompleted, store.assignments[id].Status)
	})

	t.Run("idempotent without an accepted assignment", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
		svc := newTestService(store, &recordingEmitter{})

		require.NoError(t, svc.Complete(context.Background(), "ord-1"))
		require.NoError(t, svc.Complete(context.Background(), "ord-1"))
	})
}

func TestInvalidateOrder(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(domain.Order{ID: "ord-1", Status: domain.OrderReady})
	emitter := &recordingEmitter{}
	svc := newTestService(store, emitter)

	a := store.addOffer("ord-1", 10, svc.now().Add(30*time.Second))
	b := store.addOffer("ord-1", 11, svc.now().Add(30*time.Second))

	expired, err := svc.InvalidateOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Len(t, expired, 2)
	require.Equal(t, domain.StatusExpired, store.assignments[a].Status)
	require.Equal(t, domain.StatusExpired, store.assignments[b].Status)
	require.Len(t, emitter.byEvent(notify.EventAssignmentStatus), 2)
}
