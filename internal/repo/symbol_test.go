package repo

import (
	"context"
	"testing"

	"github.com/KNICEX/oi-radar/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolRepo_Mark(t *testing.T) {
	r := NewSymbolRepo(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, r.Mark(ctx, entity.Symbol{Name: "LUNAUSDT", Base: "LUNA", Quote: "USDT", Mark: entity.MarkIgnore}))
	require.NoError(t, r.Mark(ctx, entity.Symbol{Name: "BTCUSDT", Base: "BTC", Quote: "USDT", Mark: entity.MarkFavorite}))

	ignored, err := r.FindByMark(ctx, entity.MarkIgnore)
	require.NoError(t, err)
	require.Len(t, ignored, 1)
	assert.Equal(t, "LUNAUSDT", ignored[0].Name)

	// re-marking updates in place
	require.NoError(t, r.Mark(ctx, entity.Symbol{Name: "LUNAUSDT", Base: "LUNA", Quote: "USDT", Mark: entity.MarkFavorite}))
	ignored, err = r.FindByMark(ctx, entity.MarkIgnore)
	require.NoError(t, err)
	assert.Empty(t, ignored)

	s, err := r.FindByName(ctx, "LUNAUSDT")
	require.NoError(t, err)
	assert.Equal(t, entity.MarkFavorite, s.Mark)
}
