package ledger

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/holiman/uint256"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/approval-ledger/internal/application/dispatcher"
	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/domain/entity"
	"github.com/garyjia/approval-ledger/internal/domain/event"
	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
	"github.com/garyjia/approval-ledger/internal/infrastructure/persistence/memory"
	redisstore "github.com/garyjia/approval-ledger/internal/infrastructure/persistence/redis"
)

func TestCreateWorkflow_RoundTrip(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id.Uint64(), "first id is 1")

	w, err := e.GetWorkflowState(ctx, id)
	require.NoError(t, err)
	assert.True(t, w.ID.Eq(id))
	assert.Equal(t, domainwf.StateDraft, w.CurrentState)
	assert.Equal(t, hashOf(1), w.TemplateHash)
	assert.Equal(t, hashOf(2), w.DataHash)
	assert.Equal(t, alice, w.Creator)
	assert.False(t, w.IsCompleted)
	assert.Equal(t, w.CreatedAt, w.UpdatedAt)

	history, err := e.GetWorkflowHistory(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestCreateWorkflow_SequentialIDs(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	const n = 50
	for i := 1; i <= n; i++ {
		id, err := e.CreateWorkflow(ctx, hashOf(byte(i)), hashOf(0))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id.Uint64())
	}

	count, err := e.GetWorkflowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), count.Uint64())
}

func TestCreateWorkflow_ConcurrentIDsAreDistinct(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	const workers, perWorker = 8, 25
	ids := make(chan uint64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
				if assert.NoError(t, err) {
					ids <- id.Uint64()
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, workers*perWorker)
	for i := uint64(1); i <= workers*perWorker; i++ {
		assert.True(t, seen[i], "gap at %d", i)
	}
	assert.Equal(t, 0, e.local.size(), "lock entries are released")
}

func TestCreateWorkflow_Overflow(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	max := new(uint256.Int).SetAllOne()
	require.NoError(t, e.counter.Seed(ctx, max))

	_, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	assert.ErrorIs(t, err, domainwf.ErrOverflow)
	assert.Equal(t, domainwf.CodeOverflow, domainwf.CodeOf(err))

	count, err := e.GetWorkflowCount(ctx)
	require.NoError(t, err)
	assert.True(t, count.Eq(max), "counter unchanged after overflow")
}

func TestTransition_EscalationScenario(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)

	require.NoError(t, e.TransitionState(ctx, id, domainwf.StatePendingReview, entity.RoleRequester, hashOf(0x10)))
	require.NoError(t, e.TransitionState(ctx, id, domainwf.StateEscalated, entity.RoleApprover, hashOf(0x11)))
	require.NoError(t, e.TransitionState(ctx, id, domainwf.StateApproved, entity.RoleSeniorApprover, hashOf(0x12)))

	w, err := e.GetWorkflowState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateApproved, w.CurrentState)
	assert.True(t, w.IsCompleted)
	assert.Greater(t, w.UpdatedAt, w.CreatedAt)

	history, err := e.GetWorkflowHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domainwf.StateDraft, history[0].FromState)
	assert.Equal(t, entity.RoleSeniorApprover, history[2].ActorRole)
	assert.Equal(t, hashOf(0x12), history[2].CommentHash)
	assert.Equal(t, alice, history[2].Actor)
	assert.Equal(t, w.UpdatedAt, history[2].Timestamp)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].ToState, history[i].FromState)
		assert.Greater(t, history[i].Timestamp, history[i-1].Timestamp)
	}

	err = e.TransitionState(ctx, id, domainwf.StateRejected, entity.RoleAdmin, hashOf(0))
	assert.ErrorIs(t, err, domainwf.ErrAlreadyCompleted)

	after, err := e.GetWorkflowHistory(ctx, id)
	require.NoError(t, err)
	assert.Len(t, after, 3)
}

func TestTransition_DraftToApprovedIsRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	before, err := e.GetWorkflowState(ctx, id)
	require.NoError(t, err)

	err = e.TransitionState(ctx, id, domainwf.StateApproved, entity.RoleAdmin, hashOf(3))
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
	assert.Equal(t, domainwf.CodeInvalidTransition, domainwf.CodeOf(err))

	w, err := e.GetWorkflowState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, *before, *w, "record untouched")

	history, err := e.GetWorkflowHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTransition_CompletedWorkflowIsFrozen(t *testing.T) {
	paths := map[string][]domainwf.State{
		"approved":           {domainwf.StatePendingReview, domainwf.StateApproved},
		"rejected":           {domainwf.StatePendingReview, domainwf.StateRejected},
		"escalated-rejected": {domainwf.StatePendingReview, domainwf.StateEscalated, domainwf.StateRejected},
		"cancelled":          {domainwf.StateCancelled},
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, nil)
			ctx := context.Background()

			id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
			require.NoError(t, err)
			for _, s := range path {
				require.NoError(t, e.TransitionState(ctx, id, s, entity.RoleApprover, hashOf(0)))
			}

			for to := 0; to < 256; to++ {
				err := e.TransitionState(ctx, id, domainwf.State(to), entity.RoleAdmin, hashOf(0))
				require.ErrorIs(t, err, domainwf.ErrAlreadyCompleted, "to=%d", to)
			}

			history, err := e.GetWorkflowHistory(ctx, id)
			require.NoError(t, err)
			assert.Len(t, history, len(path))
		})
	}
}

func TestTransition_AllPairsMatchAllowList(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	base, err := e.GetWorkflowState(ctx, id)
	require.NoError(t, err)

	for from := 0; from < 256; from++ {
		for to := 0; to < 256; to++ {
			f, s := domainwf.State(from), domainwf.State(to)

			seed := *base
			seed.CurrentState = f
			seed.IsCompleted = f.IsTerminal()
			require.NoError(t, e.workflows.put(ctx, &seed))

			err := e.TransitionState(ctx, id, s, entity.RoleApprover, hashOf(0))
			switch {
			case domainwf.IsValidTransition(f, s):
				require.NoError(t, err, "%s -> %s", f, s)
			case f.IsTerminal():
				require.ErrorIs(t, err, domainwf.ErrAlreadyCompleted, "%s -> %s", f, s)
			default:
				require.ErrorIs(t, err, domainwf.ErrInvalidTransition, "%s -> %s", f, s)
			}
		}
	}
}

func TestTransition_NotFound(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	err := e.TransitionState(ctx, uint256.NewInt(99), domainwf.StatePendingReview, entity.RoleRequester, hashOf(0))
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	_, err = e.GetWorkflowState(ctx, uint256.NewInt(99))
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	_, err = e.GetWorkflowHistory(ctx, uint256.NewInt(99))
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	err = e.TransitionState(ctx, nil, domainwf.StatePendingReview, entity.RoleRequester, hashOf(0))
	assert.ErrorIs(t, err, domainwf.ErrMissingArgument)
}

func TestTransition_RoleIsRecordedNotEnforced(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)

	odd := entity.Role(0)
	require.NoError(t, e.TransitionState(ctx, id, domainwf.StatePendingReview, odd, hashOf(0)))
	weird := entity.Role(1 << 63)
	require.NoError(t, e.TransitionState(ctx, id, domainwf.StateApproved, weird, hashOf(0)))

	history, err := e.GetWorkflowHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, odd, history[0].ActorRole)
	assert.Equal(t, weird, history[1].ActorRole)
}

func TestTransition_ActorIsCaller(t *testing.T) {
	store := memory.NewStore(nil)
	ctx := context.Background()
	clock := newStepClock(0)

	creatorEngine := NewEngine(store, clock, fixedIdentity{account: alice})
	approverEngine := NewEngine(store, clock, fixedIdentity{account: bob})

	id, err := creatorEngine.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	require.NoError(t, approverEngine.TransitionState(ctx, id, domainwf.StateCancelled, entity.RoleRequester, hashOf(0)))

	w, err := approverEngine.GetWorkflowState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, w.Creator)

	history, err := creatorEngine.GetWorkflowHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, bob, history[0].Actor)
}

func TestTransition_HistoryFoldsToCurrentState(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
		require.NoError(t, err)

		// Random walk that also throws in rejected moves.
		for step := 0; step < 6; step++ {
			w, err := e.GetWorkflowState(ctx, id)
			require.NoError(t, err)
			targets := domainwf.PermittedTargets(w.CurrentState)
			var to domainwf.State
			if len(targets) == 0 || rng.Intn(4) == 0 {
				to = domainwf.State(rng.Intn(256))
			} else {
				to = targets[rng.Intn(len(targets))]
			}
			_ = e.TransitionState(ctx, id, to, entity.RoleApprover, hashOf(0))
		}

		w, err := e.GetWorkflowState(ctx, id)
		require.NoError(t, err)
		history, err := e.GetWorkflowHistory(ctx, id)
		require.NoError(t, err)

		final, err := Replay(history)
		require.NoError(t, err)
		assert.Equal(t, w.CurrentState, final)
		assert.NoError(t, Verify(w, history))
	}
}

func TestTransition_ConcurrentWritersOnOneWorkflow(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	require.NoError(t, e.TransitionState(ctx, id, domainwf.StatePendingReview, entity.RoleRequester, hashOf(0)))

	// Racing approve and reject: exactly one wins.
	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		to := domainwf.StateApproved
		if i%2 == 1 {
			to = domainwf.StateRejected
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.TransitionState(ctx, id, to, entity.RoleApprover, hashOf(0))
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domainwf.ErrAlreadyCompleted)
	}
	assert.Equal(t, 1, wins)

	history, err := e.GetWorkflowHistory(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestTransition_FailedAppendLeavesNoPartialUpdate(t *testing.T) {
	store := newFaultyStore()
	e := newTestEngine(t, store)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)

	store.breakPut(port.DictTransitions)
	err = e.TransitionState(ctx, id, domainwf.StatePendingReview, entity.RoleRequester, hashOf(0))
	assert.ErrorIs(t, err, domainwf.ErrStorage)
	assert.ErrorIs(t, err, errDiskGone)
	assert.Equal(t, domainwf.CodeStorage, domainwf.CodeOf(err))

	w, err := e.GetWorkflowState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateDraft, w.CurrentState, "workflow write rolled back with the failed append")
}

func TestCreateWorkflow_FailedInitLeavesNoPartialUpdate(t *testing.T) {
	store := newFaultyStore()
	e := newTestEngine(t, store)
	ctx := context.Background()

	store.breakPut(port.DictTransitions)
	_, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	assert.ErrorIs(t, err, domainwf.ErrStorage)

	count, err := e.GetWorkflowCount(ctx)
	require.NoError(t, err)
	assert.True(t, count.IsZero(), "counter not advanced")
	_, err = e.GetWorkflowState(ctx, uint256.NewInt(1))
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

func TestStorageFailureIsDistinctFromNotFound(t *testing.T) {
	store := newFaultyStore()
	e := newTestEngine(t, store)
	ctx := context.Background()

	store.breakGet(port.DictWorkflows)
	_, err := e.GetWorkflowState(ctx, uint256.NewInt(1))
	assert.ErrorIs(t, err, domainwf.ErrStorage)
	assert.NotErrorIs(t, err, domainwf.ErrNotFound)

	store.breakGet(port.DictNamedKeys)
	_, err = e.GetWorkflowCount(ctx)
	assert.ErrorIs(t, err, domainwf.ErrStorage)
}

func TestCorruptRecordIsStorageError(t *testing.T) {
	store := memory.NewStore(nil)
	e := newTestEngine(t, store)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, port.DictWorkflows, "5", []byte{0x01}))
	_, err := e.GetWorkflowState(ctx, uint256.NewInt(5))
	assert.ErrorIs(t, err, domainwf.ErrStorage)
	assert.ErrorIs(t, err, entity.ErrCorruptRecord)
}

func TestInstall(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.ContractVersion(ctx)
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	require.NoError(t, e.Install(ctx))
	version, err := e.ContractVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentContractVersion, version)

	_, err = e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	require.NoError(t, e.Install(ctx), "reinstall is a no-op")

	count, err := e.GetWorkflowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count.Uint64(), "reinstall keeps the counter")
}

func TestEvents(t *testing.T) {
	d := dispatcher.NewDispatcher()
	var (
		mu     sync.Mutex
		events []*event.Event
	)
	d.SubscribeAll("collector", func(_ context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, evt)
		return nil
	})

	core, logs := observer.New(zap.InfoLevel)
	e := newTestEngine(t, nil, WithDispatcher(d), WithLogger(zap.New(core)))
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	require.NoError(t, e.TransitionState(ctx, id, domainwf.StateCancelled, entity.RoleRequester, hashOf(0)))
	require.Error(t, e.TransitionState(ctx, id, domainwf.StateApproved, entity.RoleAdmin, hashOf(0)))
	require.NoError(t, d.Close())

	byType := map[event.Type]*event.Event{}
	for _, evt := range events {
		byType[evt.Type] = evt
		assert.Equal(t, "1", evt.WorkflowID)
	}
	require.Len(t, byType, 4)

	transitioned := byType[event.TypeWorkflowTransitioned]
	completed := byType[event.TypeWorkflowCompleted]
	assert.Equal(t, transitioned.CorrelationID, completed.CorrelationID)
	assert.Equal(t, "CANCELLED", completed.GetPayloadString(event.KeyToState))

	rejected := byType[event.TypeTransitionRejected]
	assert.Equal(t, "AlreadyCompleted", rejected.GetPayloadString(event.KeyReason))
	assert.Equal(t, uint64(domainwf.CodeAlreadyCompleted), rejected.GetPayloadUint(event.KeyCode))

	assert.Equal(t, 1, logs.FilterMessage("Workflow transitioned").Len())
	assert.Equal(t, 1, logs.FilterMessage("Transition rejected").Len())
}

func TestDistributedLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := memory.NewStore(nil)
	ctx := context.Background()
	clock := newStepClock(0)

	// Two engines stand in for two replicas sharing one store.
	replicas := []Engine{
		NewEngine(store, clock, fixedIdentity{alice}, WithLocker(redisstore.NewLocker(client, "test:")), WithLockTTL(5*time.Second)),
		NewEngine(store, clock, fixedIdentity{bob}, WithLocker(redisstore.NewLocker(client, "test:")), WithLockTTL(5*time.Second)),
	}

	var wg sync.WaitGroup
	for _, r := range replicas {
		wg.Add(1)
		go func(r Engine) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := r.CreateWorkflow(ctx, hashOf(1), hashOf(2))
				assert.NoError(t, err)
			}
		}(r)
	}
	wg.Wait()

	count, err := replicas[0].GetWorkflowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), count.Uint64())
	assert.False(t, mr.Exists("test:lock:counter"), "lock released")
}

func TestLockTimeoutIsStorageError(t *testing.T) {
	e := newTestEngine(t, nil)

	release, err := e.local.Lock(context.Background(), counterLockKey)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	assert.ErrorIs(t, err, domainwf.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetWorkflowSnapshot(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	id, err := e.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	require.NoError(t, e.TransitionState(ctx, id, domainwf.StatePendingReview, entity.RoleRequester, hashOf(3)))

	w, records, err := e.GetWorkflowSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatePendingReview, w.CurrentState)
	require.Len(t, records, 1)
	assert.NoError(t, Verify(w, records))

	_, _, err = e.GetWorkflowSnapshot(ctx, uint256.NewInt(99))
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
	_, _, err = e.GetWorkflowSnapshot(ctx, nil)
	assert.ErrorIs(t, err, domainwf.ErrMissingArgument)

	// A writer holding the workflow lock keeps the snapshot out.
	release, err := e.local.Lock(ctx, workflowLockKey(id))
	require.NoError(t, err)
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, _, err = e.GetWorkflowSnapshot(short, id)
	release()
	assert.ErrorIs(t, err, domainwf.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// hookClock runs an armed hook on its next reading
type hookClock struct {
	*stepClock
	mu   sync.Mutex
	hook func()
}

func (c *hookClock) arm(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = hook
}

func (c *hookClock) Now() uint64 {
	c.mu.Lock()
	hook := c.hook
	c.hook = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return c.stepClock.Now()
}

func TestTransition_ReplicaOutlivingItsLockCannotOverwrite(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	replica := func(clock port.Clock, caller entity.AccountHash) Engine {
		client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
		store := redisstore.NewFromClient(client, redisstore.WithPrefix("test:"))
		t.Cleanup(func() { _ = store.Close() })
		return NewEngine(store, clock, fixedIdentity{caller},
			WithLocker(redisstore.NewLocker(client, "test:")), WithLockTTL(time.Second))
	}

	slowClock := &hookClock{stepClock: newStepClock(1_000)}
	slow := replica(slowClock, alice)
	fast := replica(newStepClock(5_000), bob)

	require.NoError(t, slow.Install(ctx))
	id, err := slow.CreateWorkflow(ctx, hashOf(1), hashOf(2))
	require.NoError(t, err)
	require.NoError(t, slow.TransitionState(ctx, id, domainwf.StatePendingReview, entity.RoleRequester, hashOf(3)))

	// The slow replica has loaded PENDING_REVIEW when it stalls past its lock
	// TTL; the fast one takes the lock and approves the workflow.
	var fastErr error
	slowClock.arm(func() {
		mr.FastForward(2 * time.Second)
		fastErr = fast.TransitionState(ctx, id, domainwf.StateApproved, entity.RoleApprover, hashOf(4))
	})
	err = slow.TransitionState(ctx, id, domainwf.StateEscalated, entity.RoleApprover, hashOf(5))
	require.NoError(t, fastErr)
	assert.ErrorIs(t, err, domainwf.ErrAlreadyCompleted)

	w, records, err := fast.GetWorkflowSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateApproved, w.CurrentState)
	assert.True(t, w.IsCompleted)
	require.Len(t, records, 2)
	assert.Equal(t, bob, records[1].Actor)
	assert.NoError(t, Verify(w, records))
}
