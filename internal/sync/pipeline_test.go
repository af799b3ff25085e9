package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/provider"
	"mailsync/backend/internal/storage"
	"mailsync/backend/internal/storage/memory"
)

// failingStore 包装存储并让指定邮件的落库失败
type failingStore struct {
	storage.Store
	failMessageID string
}

func (f *failingStore) UpsertMessage(ctx context.Context, message *domain.EmailMessage) error {
	if message.ID == f.failMessageID {
		return errors.New("simulated storage failure")
	}
	return f.Store.UpsertMessage(ctx, message)
}

// gatedStore 包装存储，使邮件落库在放行前阻塞，并统计在途写入数
type gatedStore struct {
	storage.Store
	inFlight atomic.Int32
	entered  chan struct{}
	release  chan struct{}
	once     sync.Once
}

func newGatedStore(inner storage.Store) *gatedStore {
	return &gatedStore{
		Store:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) UpsertMessage(ctx context.Context, message *domain.EmailMessage) error {
	g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Store.UpsertMessage(ctx, message)
}

func resolveBatch(t *testing.T, store storage.Store, accountID string, records []provider.Message) map[string]*domain.EmailAddress {
	t.Helper()
	resolver := NewAddressResolver(store, zap.NewNop())
	addresses, err := resolver.Resolve(context.Background(), accountID, records)
	require.NoError(t, err)
	return addresses
}

func TestUpsertPipeline(t *testing.T) {
	baseTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("整批落库与重放幂等", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewUpsertPipeline(store, 4, zap.NewNop())

		records := []provider.Message{
			{
				ID:         "m1",
				ThreadID:   "t1",
				Subject:    "hello",
				From:       provider.Address{Address: "alice@example.com"},
				To:         []provider.Address{{Address: "bob@example.com"}},
				SysLabels:  []string{"inbox"},
				SentAt:     baseTime,
				ReceivedAt: baseTime,
				Attachments: []provider.Attachment{
					{ID: "a1", Name: "report.pdf", MimeType: "application/pdf", Size: 1024},
				},
			},
			{
				ID:         "m2",
				ThreadID:   "t1",
				Subject:    "re: hello",
				From:       provider.Address{Address: "bob@example.com"},
				To:         []provider.Address{{Address: "alice@example.com"}},
				SysLabels:  []string{"sent"},
				SentAt:     baseTime.Add(time.Hour),
				ReceivedAt: baseTime.Add(time.Hour),
			},
		}
		addresses := resolveBatch(t, store, "acct_1", records)

		result, err := pipeline.PersistBatch(context.Background(), "acct_1", records, addresses)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Persisted)
		assert.Empty(t, result.Failures)

		// 重放同一批次，最终状态不变
		result, err = pipeline.PersistBatch(context.Background(), "acct_1", records, addresses)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Persisted)

		count, err := store.CountMessages(context.Background(), "acct_1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		thread, err := store.GetThread(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, "re: hello", thread.Subject)
		assert.Equal(t, baseTime.Add(time.Hour), thread.LastMessageDate)

		attachments, err := store.ListMessageAttachments(context.Background(), "m1")
		require.NoError(t, err)
		require.Len(t, attachments, 1)
		assert.Equal(t, "report.pdf", attachments[0].Name)
	})

	t.Run("会话状态按最早命中的归类重算", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewUpsertPipeline(store, 1, zap.NewNop())

		records := []provider.Message{
			{
				ID: "m1", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				SysLabels: []string{"sent"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
			{
				ID: "m2", ThreadID: "t1",
				From:      provider.Address{Address: "bob@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime.Add(time.Hour), ReceivedAt: baseTime.Add(time.Hour),
			},
			{
				ID: "m3", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				SysLabels: []string{"draft"},
				SentAt:    baseTime.Add(2 * time.Hour), ReceivedAt: baseTime.Add(2 * time.Hour),
			},
		}
		addresses := resolveBatch(t, store, "acct_1", records)

		_, err := pipeline.PersistBatch(context.Background(), "acct_1", records, addresses)
		require.NoError(t, err)

		// 会话中存在 inbox 邮件，整个会话归为 inbox
		thread, err := store.GetThread(context.Background(), "t1")
		require.NoError(t, err)
		assert.True(t, thread.InboxStatus)
		assert.False(t, thread.DraftStatus)
		assert.False(t, thread.SentStatus)
	})

	t.Run("仅含草稿与已发送时归为草稿", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewUpsertPipeline(store, 1, zap.NewNop())

		records := []provider.Message{
			{
				ID: "m1", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				SysLabels: []string{"sent"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
			{
				ID: "m2", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				SysLabels: []string{"draft"},
				SentAt:    baseTime.Add(time.Hour), ReceivedAt: baseTime.Add(time.Hour),
			},
		}
		addresses := resolveBatch(t, store, "acct_1", records)

		_, err := pipeline.PersistBatch(context.Background(), "acct_1", records, addresses)
		require.NoError(t, err)

		thread, err := store.GetThread(context.Background(), "t1")
		require.NoError(t, err)
		assert.True(t, thread.DraftStatus)
		assert.False(t, thread.InboxStatus)
	})

	t.Run("草稿早于 inbox 时归为草稿", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewUpsertPipeline(store, 1, zap.NewNop())

		records := []provider.Message{
			{
				ID: "m1", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				SysLabels: []string{"draft"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
			{
				ID: "m2", ThreadID: "t1",
				From:      provider.Address{Address: "bob@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime.Add(time.Hour), ReceivedAt: baseTime.Add(time.Hour),
			},
		}
		addresses := resolveBatch(t, store, "acct_1", records)

		_, err := pipeline.PersistBatch(context.Background(), "acct_1", records, addresses)
		require.NoError(t, err)

		// 最早一封是草稿，后续出现 inbox 邮件也不改变归类
		thread, err := store.GetThread(context.Background(), "t1")
		require.NoError(t, err)
		assert.True(t, thread.DraftStatus)
		assert.False(t, thread.InboxStatus)
		assert.False(t, thread.SentStatus)
	})

	t.Run("单条失败不影响同批其他记录", func(t *testing.T) {
		inner := memory.NewStore()
		store := &failingStore{Store: inner, failMessageID: "m2"}
		pipeline := NewUpsertPipeline(store, 2, zap.NewNop())

		records := []provider.Message{
			{
				ID: "m1", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
			{
				ID: "m2", ThreadID: "t2",
				From:      provider.Address{Address: "bob@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
		}
		addresses := resolveBatch(t, inner, "acct_1", records)

		result, err := pipeline.PersistBatch(context.Background(), "acct_1", records, addresses)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Persisted)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "m2", result.Failures[0].MessageID)
		assert.Contains(t, result.Failures[0].Reason, "simulated storage failure")
	})

	t.Run("发件人未解析时记录失败", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewUpsertPipeline(store, 1, zap.NewNop())

		records := []provider.Message{
			{
				ID: "m1", ThreadID: "t1",
				From:      provider.Address{Address: "ghost@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
		}

		result, err := pipeline.PersistBatch(context.Background(), "acct_1", records, map[string]*domain.EmailAddress{})

		require.NoError(t, err)
		assert.Equal(t, 0, result.Persisted)
		require.Len(t, result.Failures, 1)
		assert.Contains(t, result.Failures[0].Reason, "ghost@example.com")
	})

	t.Run("参与者集合按并集增长", func(t *testing.T) {
		store := memory.NewStore()
		pipeline := NewUpsertPipeline(store, 1, zap.NewNop())

		first := []provider.Message{
			{
				ID: "m1", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				To:        []provider.Address{{Address: "bob@example.com"}},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
		}
		addresses := resolveBatch(t, store, "acct_1", first)
		_, err := pipeline.PersistBatch(context.Background(), "acct_1", first, addresses)
		require.NoError(t, err)

		second := []provider.Message{
			{
				ID: "m2", ThreadID: "t1",
				From:      provider.Address{Address: "carol@example.com"},
				To:        []provider.Address{{Address: "alice@example.com"}},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime.Add(time.Hour), ReceivedAt: baseTime.Add(time.Hour),
			},
		}
		addresses = resolveBatch(t, store, "acct_1", second)
		_, err = pipeline.PersistBatch(context.Background(), "acct_1", second, addresses)
		require.NoError(t, err)

		participants, err := store.ListThreadParticipants(context.Background(), "t1")
		require.NoError(t, err)
		assert.Len(t, participants, 3)
	})

	t.Run("取消后等待在途写入收尾再返回", func(t *testing.T) {
		inner := memory.NewStore()
		store := newGatedStore(inner)
		pipeline := NewUpsertPipeline(store, 1, zap.NewNop())

		records := []provider.Message{
			{
				ID: "m1", ThreadID: "t1",
				From:      provider.Address{Address: "alice@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
			{
				ID: "m2", ThreadID: "t2",
				From:      provider.Address{Address: "bob@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
			{
				ID: "m3", ThreadID: "t3",
				From:      provider.Address{Address: "carol@example.com"},
				SysLabels: []string{"inbox"},
				SentAt:    baseTime, ReceivedAt: baseTime,
			},
		}
		addresses := resolveBatch(t, inner, "acct_1", records)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		type outcome struct {
			result *BatchResult
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			result, err := pipeline.PersistBatch(ctx, "acct_1", records, addresses)
			done <- outcome{result: result, err: err}
		}()

		// 等第一条记录进入存储写入后再取消，然后放行全部写入
		<-store.entered
		cancel()
		close(store.release)

		out := <-done
		assert.ErrorIs(t, out.err, context.Canceled)
		assert.Nil(t, out.result)
		// 返回时不允许仍有任务在写存储
		assert.Zero(t, store.inFlight.Load())
	})
}
