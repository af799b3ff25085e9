package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/storage"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("保存与读取账户", func(t *testing.T) {
		store := NewStore()

		err := store.SaveAccount(ctx, &domain.Account{
			ID:          "acct_1",
			UserID:      "user_1",
			Email:       "alice@example.com",
			AccessToken: "token",
		})
		require.NoError(t, err)

		account, err := store.GetAccount(ctx, "acct_1")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", account.Email)
		assert.Nil(t, account.DeltaToken)
	})

	t.Run("重复保存保留增量游标", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.SaveAccount(ctx, &domain.Account{ID: "acct_1", UserID: "user_1"}))
		require.NoError(t, store.UpdateDeltaToken(ctx, "acct_1", "D1"))

		account, err := store.GetAccount(ctx, "acct_1")
		require.NoError(t, err)
		require.NotNil(t, account.DeltaToken)
		assert.Equal(t, "D1", *account.DeltaToken)
	})

	t.Run("账户不存在", func(t *testing.T) {
		store := NewStore()

		_, err := store.GetAccount(ctx, "ghost")
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)

		err = store.UpdateDeltaToken(ctx, "ghost", "D1")
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})

	t.Run("同步状态更新", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.SaveAccount(ctx, &domain.Account{ID: "acct_1", UserID: "user_1"}))

		require.NoError(t, store.UpdateSyncStatus(ctx, "acct_1", domain.SyncStatusSyncing, ""))
		account, err := store.GetAccount(ctx, "acct_1")
		require.NoError(t, err)
		assert.Equal(t, domain.SyncStatusSyncing, account.SyncStatus)
		assert.Nil(t, account.LastSyncedAt)

		require.NoError(t, store.UpdateSyncStatus(ctx, "acct_1", domain.SyncStatusSynced, ""))
		account, err = store.GetAccount(ctx, "acct_1")
		require.NoError(t, err)
		assert.Equal(t, domain.SyncStatusSynced, account.SyncStatus)
		assert.NotNil(t, account.LastSyncedAt)
	})
}

func TestAddressRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("同账户同地址收敛为一行", func(t *testing.T) {
		store := NewStore()

		first, err := store.FindOrCreateAddress(ctx, &domain.EmailAddress{
			ID: "addr-1", AccountID: "acct_1", Address: "alice@example.com", Name: "Alice",
		})
		require.NoError(t, err)

		second, err := store.FindOrCreateAddress(ctx, &domain.EmailAddress{
			ID: "addr-2", AccountID: "acct_1", Address: "alice@example.com", Name: "Alice Again",
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Alice", second.Name)

		count, err := store.CountAddresses(ctx, "acct_1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("不同账户的同名地址互不影响", func(t *testing.T) {
		store := NewStore()

		a, err := store.FindOrCreateAddress(ctx, &domain.EmailAddress{
			ID: "addr-1", AccountID: "acct_1", Address: "alice@example.com",
		})
		require.NoError(t, err)

		b, err := store.FindOrCreateAddress(ctx, &domain.EmailAddress{
			ID: "addr-2", AccountID: "acct_2", Address: "alice@example.com",
		})
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestThreadRepository(t *testing.T) {
	ctx := context.Background()
	baseTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("较新邮件覆盖主题与最后消息时间", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertThread(ctx, &domain.Thread{
			ID: "t1", AccountID: "acct_1", Subject: "old", LastMessageDate: baseTime,
		}, nil))
		require.NoError(t, store.UpsertThread(ctx, &domain.Thread{
			ID: "t1", AccountID: "acct_1", Subject: "new", LastMessageDate: baseTime.Add(time.Hour),
		}, nil))

		thread, err := store.GetThread(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "new", thread.Subject)
		assert.Equal(t, baseTime.Add(time.Hour), thread.LastMessageDate)
	})

	t.Run("乱序到达的旧邮件不回退会话", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertThread(ctx, &domain.Thread{
			ID: "t1", AccountID: "acct_1", Subject: "newest", LastMessageDate: baseTime.Add(time.Hour),
		}, nil))
		require.NoError(t, store.UpsertThread(ctx, &domain.Thread{
			ID: "t1", AccountID: "acct_1", Subject: "stale", LastMessageDate: baseTime,
		}, nil))

		thread, err := store.GetThread(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "newest", thread.Subject)
		assert.Equal(t, baseTime.Add(time.Hour), thread.LastMessageDate)
	})

	t.Run("参与者集合只增不减", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertThread(ctx, &domain.Thread{
			ID: "t1", AccountID: "acct_1", LastMessageDate: baseTime,
		}, []string{"addr-1", "addr-2"}))
		require.NoError(t, store.UpsertThread(ctx, &domain.Thread{
			ID: "t1", AccountID: "acct_1", LastMessageDate: baseTime.Add(time.Hour),
		}, []string{"addr-2", "addr-3"}))

		participants, err := store.ListThreadParticipants(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, []string{"addr-1", "addr-2", "addr-3"}, participants)
	})

	t.Run("状态标志互斥", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertThread(ctx, &domain.Thread{
			ID: "t1", AccountID: "acct_1", LastMessageDate: baseTime, SentStatus: true,
		}, nil))
		require.NoError(t, store.UpdateThreadStatus(ctx, "t1", domain.LabelInbox))

		thread, err := store.GetThread(ctx, "t1")
		require.NoError(t, err)
		assert.True(t, thread.InboxStatus)
		assert.False(t, thread.DraftStatus)
		assert.False(t, thread.SentStatus)
	})
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()
	baseTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("重复落库整体替换", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertMessage(ctx, &domain.EmailMessage{
			ID: "m1", AccountID: "acct_1", ThreadID: "t1",
			ToIDs: domain.StringList{"addr-1", "addr-2"},
		}))
		require.NoError(t, store.UpsertMessage(ctx, &domain.EmailMessage{
			ID: "m1", AccountID: "acct_1", ThreadID: "t1",
			ToIDs: domain.StringList{"addr-3"},
		}))

		message, err := store.GetMessage(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, domain.StringList{"addr-3"}, message.ToIDs)

		count, err := store.CountMessages(ctx, "acct_1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("会话邮件按接收时间升序", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertMessage(ctx, &domain.EmailMessage{
			ID: "m2", ThreadID: "t1", ReceivedAt: baseTime.Add(time.Hour),
		}))
		require.NoError(t, store.UpsertMessage(ctx, &domain.EmailMessage{
			ID: "m1", ThreadID: "t1", ReceivedAt: baseTime,
		}))
		require.NoError(t, store.UpsertMessage(ctx, &domain.EmailMessage{
			ID: "m3", ThreadID: "t2", ReceivedAt: baseTime,
		}))

		messages, err := store.ListThreadMessages(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "m1", messages[0].ID)
		assert.Equal(t, "m2", messages[1].ID)
	})
}

func TestAttachmentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("附件幂等落库", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertAttachment(ctx, &domain.Attachment{
			ID: "a1", MessageID: "m1", Name: "report.pdf",
		}))
		require.NoError(t, store.UpsertAttachment(ctx, &domain.Attachment{
			ID: "a1", MessageID: "m1", Name: "report-v2.pdf",
		}))

		attachments, err := store.ListMessageAttachments(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, attachments, 1)
		assert.Equal(t, "report-v2.pdf", attachments[0].Name)
	})
}
