package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/storage"
)

// Store 使用内存保存账户与同步数据，主要用于开发验证和测试。
// 语义与 postgres 实现保持一致：同名唯一约束、条件合并、并集参与者。
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	addresses    map[string]*domain.EmailAddress // addressKey -> address
	threads      map[string]*domain.Thread
	participants map[string]map[string]struct{} // threadID -> addressID 集合
	messages     map[string]*domain.EmailMessage
	attachments  map[string]*domain.Attachment
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		addresses:    make(map[string]*domain.EmailAddress),
		threads:      make(map[string]*domain.Thread),
		participants: make(map[string]map[string]struct{}),
		messages:     make(map[string]*domain.EmailMessage),
		attachments:  make(map[string]*domain.Attachment),
	}
}

func addressKey(accountID, address string) string {
	return accountID + "\x00" + address
}

// ========== AccountRepository ==========

// SaveAccount 保存（upsert）账户信息
func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.accounts[account.ID]; ok {
		account.CreatedAt = existing.CreatedAt
	} else {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

// GetAccount 根据 ID 获取账户
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

// ListAccounts 列出全部账户
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, *account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// UpdateDeltaToken 推进账户的增量游标
func (s *Store) UpdateDeltaToken(ctx context.Context, accountID, deltaToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	token := deltaToken
	account.DeltaToken = &token
	account.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateSyncStatus 更新账户同步状态
func (s *Store) UpdateSyncStatus(ctx context.Context, accountID string, status domain.SyncStatus, syncErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	now := time.Now().UTC()
	account.SyncStatus = status
	account.SyncError = syncErr
	if status == domain.SyncStatusSynced {
		account.LastSyncedAt = &now
	}
	account.UpdatedAt = now
	return nil
}

// ========== AddressRepository ==========

// FindOrCreateAddress 按 (account, address) 查找地址，不存在则创建
func (s *Store) FindOrCreateAddress(ctx context.Context, address *domain.EmailAddress) (*domain.EmailAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := addressKey(address.AccountID, address.Address)
	if existing, ok := s.addresses[key]; ok {
		clone := *existing
		return &clone, nil
	}

	clone := *address
	clone.CreatedAt = time.Now().UTC()
	s.addresses[key] = &clone

	result := clone
	return &result, nil
}

// CountAddresses 统计账户下的地址行数
func (s *Store) CountAddresses(ctx context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, address := range s.addresses {
		if address.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

// ========== ThreadRepository ==========

// UpsertThread 原子地创建或合并会话，参与者按并集合并
func (s *Store) UpsertThread(ctx context.Context, thread *domain.Thread, participantIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.threads[thread.ID]
	if !ok {
		clone := *thread
		clone.CreatedAt = now
		clone.UpdatedAt = now
		s.threads[thread.ID] = &clone
	} else if !thread.LastMessageDate.Before(existing.LastMessageDate) {
		// 仅当来件时间不早于已存时间才覆盖主题与最后消息时间
		existing.Subject = thread.Subject
		existing.LastMessageDate = thread.LastMessageDate
		existing.Done = false
		existing.UpdatedAt = now
	}

	set, ok := s.participants[thread.ID]
	if !ok {
		set = make(map[string]struct{})
		s.participants[thread.ID] = set
	}
	for _, id := range participantIDs {
		set[id] = struct{}{}
	}
	return nil
}

// GetThread 根据 ID 获取会话
func (s *Store) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[id]
	if !ok {
		return nil, storage.ErrThreadNotFound
	}
	clone := *thread
	return &clone, nil
}

// ListThreadParticipants 返回会话的参与者地址 ID 集合
func (s *Store) ListThreadParticipants(ctx context.Context, threadID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.participants[threadID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// UpdateThreadStatus 将三个状态标志设为与给定归类一致（恰好一个为真）
func (s *Store) UpdateThreadStatus(ctx context.Context, threadID string, status domain.EmailLabel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return storage.ErrThreadNotFound
	}
	thread.InboxStatus = status == domain.LabelInbox
	thread.DraftStatus = status == domain.LabelDraft
	thread.SentStatus = status == domain.LabelSent
	thread.UpdatedAt = time.Now().UTC()
	return nil
}

// ========== MessageRepository ==========

// UpsertMessage 创建或整体替换邮件行
func (s *Store) UpsertMessage(ctx context.Context, message *domain.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *message
	s.messages[message.ID] = &clone
	return nil
}

// GetMessage 根据 ID 获取邮件
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.EmailMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	message, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	clone := *message
	return &clone, nil
}

// ListThreadMessages 返回会话内全部邮件，按接收时间升序（同时刻按 ID）
func (s *Store) ListThreadMessages(ctx context.Context, threadID string) ([]domain.EmailMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []domain.EmailMessage
	for _, message := range s.messages {
		if message.ThreadID == threadID {
			messages = append(messages, *message)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].ReceivedAt.Equal(messages[j].ReceivedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].ReceivedAt.Before(messages[j].ReceivedAt)
	})
	return messages, nil
}

// CountMessages 统计账户下的邮件行数
func (s *Store) CountMessages(ctx context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, message := range s.messages {
		if message.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

// ========== AttachmentRepository ==========

// UpsertAttachment 创建或整体替换附件行
func (s *Store) UpsertAttachment(ctx context.Context, attachment *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *attachment
	s.attachments[attachment.ID] = &clone
	return nil
}

// ListMessageAttachments 返回邮件的全部附件
func (s *Store) ListMessageAttachments(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var attachments []domain.Attachment
	for _, attachment := range s.attachments {
		if attachment.MessageID == messageID {
			attachments = append(attachments, *attachment)
		}
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].ID < attachments[j].ID })
	return attachments, nil
}

// Health 健康检查
func (s *Store) Health() error { return nil }

// Close 关闭存储
func (s *Store) Close() error { return nil }
