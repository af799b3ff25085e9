package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailsync/backend/internal/provider"
	"mailsync/backend/internal/storage/memory"
)

func TestAddressResolver(t *testing.T) {
	t.Run("整批去重解析", func(t *testing.T) {
		store := memory.NewStore()
		resolver := NewAddressResolver(store, zap.NewNop())

		records := []provider.Message{
			{
				ID:   "m1",
				From: provider.Address{Address: "alice@example.com", Name: "Alice"},
				To:   []provider.Address{{Address: "bob@example.com"}},
				Cc:   []provider.Address{{Address: "carol@example.com"}},
			},
			{
				ID:      "m2",
				From:    provider.Address{Address: "bob@example.com"},
				To:      []provider.Address{{Address: "alice@example.com"}},
				ReplyTo: []provider.Address{{Address: "alice@example.com"}},
			},
		}

		resolved, err := resolver.Resolve(context.Background(), "acct_1", records)

		require.NoError(t, err)
		assert.Len(t, resolved, 3)
		assert.Equal(t, "Alice", resolved["alice@example.com"].Name)

		count, err := store.CountAddresses(context.Background(), "acct_1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("重复解析幂等", func(t *testing.T) {
		store := memory.NewStore()
		resolver := NewAddressResolver(store, zap.NewNop())

		records := []provider.Message{
			{ID: "m1", From: provider.Address{Address: "alice@example.com"}},
		}

		first, err := resolver.Resolve(context.Background(), "acct_1", records)
		require.NoError(t, err)
		second, err := resolver.Resolve(context.Background(), "acct_1", records)
		require.NoError(t, err)

		// 同一地址两轮解析收敛到同一行
		assert.Equal(t, first["alice@example.com"].ID, second["alice@example.com"].ID)

		count, err := store.CountAddresses(context.Background(), "acct_1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("跳过空地址", func(t *testing.T) {
		store := memory.NewStore()
		resolver := NewAddressResolver(store, zap.NewNop())

		records := []provider.Message{
			{
				ID:   "m1",
				From: provider.Address{Address: "alice@example.com"},
				To:   []provider.Address{{Address: ""}, {Address: "bob@example.com"}},
			},
		}

		resolved, err := resolver.Resolve(context.Background(), "acct_1", records)

		require.NoError(t, err)
		assert.Len(t, resolved, 2)
		assert.NotContains(t, resolved, "")
	})

	t.Run("空批次返回空映射", func(t *testing.T) {
		store := memory.NewStore()
		resolver := NewAddressResolver(store, zap.NewNop())

		resolved, err := resolver.Resolve(context.Background(), "acct_1", nil)

		require.NoError(t, err)
		assert.Empty(t, resolved)
	})
}
