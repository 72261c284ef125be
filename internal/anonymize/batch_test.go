package anonymize

import (
	"context"
	"fmt"
	"testing"

	"dbmask/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customerRows(n int) *database.RowSet {
	set := &database.RowSet{Columns: []string{"id", "email", "notes", "total"}}
	for i := range n {
		set.Rows = append(set.Rows, []any{int64(i), fmt.Sprintf("user%d@shop.io", i), nil, 9.5})
	}
	return set
}

func customerConfigs() []StrategyConfig {
	return []StrategyConfig{
		{ColumnName: "id", DataType: "integer", Strategy: DeterministicHash},
		{ColumnName: "email", DataType: "varchar", Strategy: RandomizedFormat},
		{ColumnName: "notes", DataType: "text", Strategy: Nullification},
	}
}

func TestBatch_Apply(t *testing.T) {
	set := customerRows(1000)
	b := &Batch{Workers: 4, ChunkSize: 64, Seed: 7}

	out, err := b.Apply(context.Background(), set, customerConfigs())
	require.NoError(t, err)

	require.Len(t, out.Rows, len(set.Rows))
	assert.Equal(t, set.Columns, out.Columns)

	for i, row := range out.Rows {
		require.Len(t, row, 4)
		assert.Equal(t, Hash(int64(i)), row[0])
		assert.Regexp(t, `^[A-Za-z0-9]{8}@shop\.io$`, row[1])
		assert.Nil(t, row[2])
		assert.Equal(t, 9.5, row[3], "unconfigured columns pass through")
	}
}

func TestBatch_DoesNotMutateInput(t *testing.T) {
	set := customerRows(10)
	before := customerRows(10)

	_, err := (&Batch{Workers: 2, ChunkSize: 3}).Apply(context.Background(), set, customerConfigs())
	require.NoError(t, err)
	assert.Equal(t, before, set)
}

func TestBatch_ValidatesUpFront(t *testing.T) {
	set := customerRows(5)

	_, err := (&Batch{}).Apply(context.Background(), set, []StrategyConfig{{ColumnName: "email", Strategy: "scramble"}})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = (&Batch{}).Apply(context.Background(), set, []StrategyConfig{{ColumnName: "ghost", Strategy: Nullification}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBatch_EmptyInput(t *testing.T) {
	out, err := (&Batch{Workers: 3}).Apply(context.Background(), &database.RowSet{Columns: []string{"id"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
}

func TestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Batch{Workers: 2, ChunkSize: 10}).Apply(ctx, customerRows(100), customerConfigs())
	assert.ErrorIs(t, err, context.Canceled)
}
