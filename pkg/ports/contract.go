package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/signoff/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunInstanceStoreContract runs a suite of tests to verify that an InstanceStore implementation
// adheres to the defined interface contract.
func RunInstanceStoreContract(t *testing.T, store InstanceStore) {
	ctx := context.Background()
	instanceID := "contract-instance-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Get", func(t *testing.T) {
		inst := domain.NewInstance(instanceID, "wf", "alice", map[string]any{"dept": "finance", "amount": 42})
		inst.CurrentNodeID = "review"
		inst.ParallelGate("review", 2).Approved = []string{"bob"}
		inst.HistorySeq = 3

		require.NoError(t, store.Save(ctx, inst), "Save should not return error")

		loaded, err := store.Get(ctx, instanceID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, inst.WorkflowID, loaded.WorkflowID)
		assert.Equal(t, inst.ApplicantID, loaded.ApplicantID)
		assert.Equal(t, domain.StatusPending, loaded.Status)
		assert.Equal(t, "review", loaded.CurrentNodeID)
		assert.Equal(t, int64(3), loaded.HistorySeq)
		assert.Equal(t, "finance", loaded.Data["dept"])
		// Serializing stores may turn ints into float64 or json.Number.
		assert.NotNil(t, loaded.Data["amount"])
		require.Contains(t, loaded.Parallel, "review")
		assert.Equal(t, []string{"bob"}, loaded.Parallel["review"].Approved)
		assert.Equal(t, 2, loaded.Parallel["review"].Required)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		inst := domain.NewInstance(instanceID, "wf", "alice", nil)
		inst.Status = domain.StatusApproved
		inst.CurrentNodeID = "end"
		require.NoError(t, store.Save(ctx, inst))

		loaded, err := store.Get(ctx, instanceID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, loaded.Status)
		assert.Empty(t, loaded.Parallel, "gate state must not survive an overwrite")
	})

	t.Run("Returned instance is a copy", func(t *testing.T) {
		loaded, err := store.Get(ctx, instanceID)
		require.NoError(t, err)
		loaded.Status = domain.StatusRejected

		again, err := store.Get(ctx, instanceID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, again.Status)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+instanceID)
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := instanceID + "-1"
		id2 := instanceID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewInstance(id1, "wf", "a", nil)))
		require.NoError(t, store.Save(ctx, domain.NewInstance(id2, "wf", "b", nil)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// RunHistoryStoreContract verifies that a HistoryStore keeps records append-only and ordered.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	instanceID := "contract-history-" + time.Now().Format("20060102150405.000000")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Append and List ordered by Seq", func(t *testing.T) {
		// Appended out of order and with identical timestamps on purpose.
		for _, seq := range []int64{2, 1, 3} {
			err := store.Append(ctx, domain.HistoryRecord{
				ID:         fmt.Sprintf("%s-%d", instanceID, seq),
				InstanceID: instanceID,
				Seq:        seq,
				NodeID:     "review",
				ActorID:    "bob",
				Action:     domain.ActionApprove,
				Result:     domain.ResultApprove,
				Timestamp:  base,
			})
			require.NoError(t, err)
		}

		records, err := store.List(ctx, instanceID)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, rec := range records {
			assert.Equal(t, int64(i+1), rec.Seq)
			assert.Equal(t, instanceID, rec.InstanceID)
			assert.Equal(t, domain.ActionApprove, rec.Action)
			assert.True(t, base.Equal(rec.Timestamp))
		}
	})

	t.Run("Records are isolated per instance", func(t *testing.T) {
		other := instanceID + "-other"
		require.NoError(t, store.Append(ctx, domain.HistoryRecord{
			ID: other + "-1", InstanceID: other, Seq: 1, Action: domain.ActionSubmit, Timestamp: base,
		}))

		records, err := store.List(ctx, other)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.ActionSubmit, records[0].Action)
	})

	t.Run("Unknown instance is empty", func(t *testing.T) {
		records, err := store.List(ctx, "non-existent-"+instanceID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

// RunWorkflowStoreContract verifies a WorkflowStore that was seeded with known.
func RunWorkflowStoreContract(t *testing.T, store WorkflowStore, known *domain.Workflow) {
	ctx := context.Background()

	t.Run("Get", func(t *testing.T) {
		wf, err := store.Get(ctx, known.ID)
		require.NoError(t, err)
		assert.Equal(t, known.ID, wf.ID)
		assert.Len(t, wf.Nodes, len(known.Nodes))
		assert.Len(t, wf.Connections, len(known.Connections))
		assert.Len(t, wf.StartNodes(), len(known.StartNodes()))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+known.ID)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, known.ID)
	})
}
