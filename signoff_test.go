package signoff_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/signoff"
	"github.com/aretw0/signoff/pkg/adapters/memory"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, b *dsl.Builder, opts ...signoff.Option) *signoff.Engine {
	t.Helper()
	loader, err := b.Loader()
	require.NoError(t, err)
	eng, err := signoff.New(loader, opts...)
	require.NoError(t, err)
	return eng
}

func expenseFlow() *dsl.Builder {
	b := dsl.New("expense")
	b.Start("start").Go("manager")
	b.Single("manager", "A").Go("amount")
	b.Condition("amount").
		Rule("high", "out-high", dsl.And(dsl.Cond("amount", ">", 1000))).
		Default("out-low").
		On("out-high", "end").
		On("out-low", "end")
	b.End("end")
	return b
}

func TestFacade_Scenarios(t *testing.T) {
	for _, amount := range []int{5000, 50} {
		t.Run(fmt.Sprintf("amount=%d", amount), func(t *testing.T) {
			ctx := context.Background()
			eng := newEngine(t, expenseFlow())

			inst, err := eng.Apply(ctx, "expense", "applicant", map[string]any{"amount": amount})
			require.NoError(t, err)

			status, err := eng.Initialize(ctx, inst.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusPending, status)

			info, err := eng.CurrentNodeInfo(ctx, inst.ID)
			require.NoError(t, err)
			assert.Equal(t, "manager", info.NodeID)
			assert.Equal(t, []string{"A"}, info.Approvers)

			out, err := eng.Approve(ctx, inst.ID, domain.Decision{ActorID: "A", ActorName: "A", Comment: "ok", Result: "approve"})
			require.NoError(t, err)
			assert.Equal(t, domain.StatusApproved, out.Status)

			approvers, err := eng.CurrentApprovers(ctx, inst.ID)
			require.NoError(t, err)
			assert.Empty(t, approvers)
		})
	}
}

func TestFacade_ConcurrentParallelApprovals(t *testing.T) {
	ctx := context.Background()
	approvers := make([]string, 10)
	for i := range approvers {
		approvers[i] = fmt.Sprintf("board-%d", i)
	}
	b := dsl.New("board")
	b.Start("start").Go("vote")
	b.Parallel("vote", approvers...).Go("end")
	b.End("end")
	eng := newEngine(t, b)

	inst, err := eng.Submit(ctx, "board", "applicant", nil)
	require.NoError(t, err)

	// Every member approves twice, concurrently.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for round := 0; round < 2; round++ {
		for _, a := range approvers {
			wg.Add(1)
			go func(actor string) {
				defer wg.Done()
				_, err := eng.Approve(ctx, inst.ID, domain.Decision{ActorID: actor, Result: "approve"})
				if err != nil {
					assert.ErrorIs(t, err, domain.ErrInstanceClosed)
					return
				}
				mu.Lock()
				succeeded++
				mu.Unlock()
			}(a)
		}
	}
	wg.Wait()

	final, err := eng.Instance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, final.Status)
	assert.Nil(t, final.Parallel)

	records, err := eng.History(ctx, inst.ID)
	require.NoError(t, err)

	voters := map[string]bool{}
	approvals := 0
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq, "sequence has no gaps or duplicates")
		if rec.Action == domain.ActionApprove {
			approvals++
			voters[rec.ActorID] = true
		}
	}
	assert.Equal(t, succeeded, approvals, "one record per successful call")
	assert.Len(t, voters, len(approvers), "no approval was lost")
	assert.Equal(t, domain.ActionComplete, records[len(records)-1].Action)
}

func TestFacade_SequentialTurnsUnderContention(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("chain")
	b.Start("start").Go("steps")
	b.Sequential("steps", "one", "two", "three").Go("end")
	b.End("end")
	eng := newEngine(t, b)

	inst, err := eng.Submit(ctx, "chain", "applicant", nil)
	require.NoError(t, err)

	// Actors keep retrying until it is their turn.
	var wg sync.WaitGroup
	for _, actor := range []string{"three", "two", "one"} {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			for {
				_, err := eng.Approve(ctx, inst.ID, domain.Decision{ActorID: actor, Result: "approve"})
				if err == nil {
					return
				}
				if !errors.Is(err, domain.ErrNotYourTurn) {
					t.Errorf("%s: unexpected error %v", actor, err)
					return
				}
			}
		}(actor)
	}
	wg.Wait()

	records, err := eng.History(ctx, inst.ID)
	require.NoError(t, err)
	var order []string
	for _, rec := range records {
		if rec.Action == domain.ActionApprove {
			order = append(order, rec.ActorID)
		}
	}
	assert.Equal(t, []string{"one", "two", "three"}, order)
}

func TestFacade_RejectAndWithdraw(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, expenseFlow())

	rejected, err := eng.Submit(ctx, "expense", "applicant", nil)
	require.NoError(t, err)
	out, err := eng.Reject(ctx, rejected.ID, "A", "A", "missing receipts")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, out.Status)

	withdrawn, err := eng.Submit(ctx, "expense", "applicant", nil)
	require.NoError(t, err)
	require.NoError(t, eng.Withdraw(ctx, withdrawn.ID, "applicant", ""))

	inst, err := eng.Instance(ctx, withdrawn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithdrawn, inst.Status)

	ids, err := eng.Instances(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rejected.ID, withdrawn.ID}, ids)
}

func TestFacade_Options(t *testing.T) {
	_, err := signoff.New(nil)
	assert.Error(t, err)

	loader, err := expenseFlow().Loader()
	require.NoError(t, err)
	instances := memory.NewStore()
	eng, err := signoff.New(loader,
		signoff.WithInstanceStore(instances),
		signoff.WithIDGenerator(func() string { return "fixed" }),
	)
	require.NoError(t, err)

	inst, err := eng.Apply(context.Background(), "expense", "applicant", nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", inst.ID)

	stored, err := instances.Get(context.Background(), "fixed")
	require.NoError(t, err)
	assert.Equal(t, "expense", stored.WorkflowID)

	_, err = eng.Watch(context.Background())
	assert.Error(t, err, "memory loader is not watchable")

	ids, err := eng.Workflows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"expense"}, ids)
}

func TestValidate(t *testing.T) {
	b := dsl.New("ambiguous")
	b.Start("start").Go("review")
	b.Single("review").Go("end").Go("start")
	b.End("end")

	err := signoff.Validate(b.Workflow())
	assert.ErrorIs(t, err, domain.ErrAmbiguousRoute)
}
