package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/signoff/pkg/adapters/redis"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/dsl"
	"github.com/aretw0/signoff/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunInstanceStoreContract(t, redis.NewFromClient(client))
}

func TestRedisHistory_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunHistoryStoreContract(t, redis.NewHistory(client))
}

func TestRedisWorkflows_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewWorkflows(client)

	b := dsl.New("expense")
	b.Start("start").Go("manager")
	b.Single("manager", "alice").Go("amount")
	b.Condition("amount").
		Rule("high", "out-high", dsl.And(dsl.Cond("amount", ">", 1000))).
		Default("out-low").
		On("out-high", "finance").
		On("out-low", "end")
	b.Parallel("finance", "bob", "carol").Go("end")
	b.End("end")
	wf, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), wf))
	ports.RunWorkflowStoreContract(t, store, wf)

	got, err := store.Get(context.Background(), "expense")
	require.NoError(t, err)
	conn, ok := got.Follow("amount", "out-high")
	assert.True(t, ok)
	assert.Equal(t, "finance", conn.To)
}

func TestRedisWorkflows_PutRejectsInvalid(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewWorkflows(client)

	b := dsl.New("broken")
	b.Start("start").Go("review")
	b.Single("review", "alice")

	err := store.Put(context.Background(), b.Workflow())
	assert.ErrorIs(t, err, domain.ErrNoOutgoing)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	// Create store with 1s TTL
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	inst := domain.NewInstance("inst-ttl", "expense", "alice", map[string]any{"foo": "bar"})

	err := store.Save(ctx, inst)
	assert.NoError(t, err)

	ids, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, ids, inst.ID)

	// Key expiration is driven by miniredis time.
	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, inst.ID)
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)

	// Index pruning is driven by wall time, so wait past the score.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	history := redis.NewHistory(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	inst := domain.NewInstance("my-instance", "expense", "alice", nil)
	require.NoError(t, store.Save(ctx, inst))
	require.NoError(t, history.Append(ctx, domain.HistoryRecord{
		ID:         "h1",
		InstanceID: inst.ID,
		Seq:        1,
		Action:     domain.ActionSubmit,
	}))

	assert.True(t, mr.Exists("custom:app:instance:my-instance"), "Expected instance key with custom prefix")
	assert.True(t, mr.Exists("custom:app:instance:index"), "Expected index with custom prefix")
	assert.True(t, mr.Exists("custom:app:history:my-instance"), "Expected history key with custom prefix")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, inst.ID)
}

func TestRedisHistory_SortsBySeq(t *testing.T) {
	_, client := newClient(t)
	history := redis.NewHistory(client)
	ctx := context.Background()

	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, history.Append(ctx, domain.HistoryRecord{InstanceID: "i1", Seq: seq}))
	}

	records, err := history.List(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{records[0].Seq, records[1].Seq, records[2].Seq})
}
