package store

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListCycles(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.RecordCycle(ctx, createTestCycle(fmtID(i), "orders", i)))
	}
	failed := createTestCycle("c-fail", "orders", 6)
	failed.Status = StatusFailed
	failed.ErrorCode = "QUERY"
	failed.Error = "no such table"
	require.NoError(t, s.RecordCycle(ctx, failed))
	require.NoError(t, s.RecordCycle(ctx, createTestCycle("other", "customers", 1)))

	all, err := s.ListCycles(ctx, "orders", 0)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, int64(6), all[0].Seq, "newest first")
	assert.Equal(t, StatusFailed, all[0].Status)
	assert.Equal(t, "QUERY", all[0].ErrorCode)
	assert.Equal(t, "no such table", all[0].Error)
	assert.Equal(t, int64(1), all[5].Seq)

	recent, err := s.ListCycles(ctx, "orders", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, []int64{6, 5}, []int64{recent[0].Seq, recent[1].Seq})

	c := all[5]
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, int64(10), c.Rows)
	assert.Equal(t, 1500*time.Millisecond, c.Duration())
	assert.Equal(t, time.UTC, c.StartedAt.Location())
}

func TestRecordCycleIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCycle("dup", "orders", 1)
	require.NoError(t, s.RecordCycle(ctx, c))
	c.Rows = 999
	require.NoError(t, s.RecordCycle(ctx, c))

	all, err := s.ListCycles(ctx, "orders", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(10), all[0].Rows)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.RecordCycle(ctx, createTestCycle("a", "orders", 3)))
	require.NoError(t, s.RecordCycle(ctx, createTestCycle("b", "orders", 8)))

	seq, err = s.LastSeq(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(8), seq)
}

func fmtID(i int64) string {
	return "c-" + strconv.FormatInt(i, 10)
}
