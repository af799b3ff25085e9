package storage

import (
	"context"
	"errors"

	"mailsync/backend/internal/domain"
)

var (
	// ErrAccountNotFound 账户未找到错误
	ErrAccountNotFound = errors.New("account not found")
	// ErrThreadNotFound 会话未找到错误
	ErrThreadNotFound = errors.New("thread not found")
	// ErrMessageNotFound 邮件未找到错误
	ErrMessageNotFound = errors.New("message not found")
)

// AccountRepository 定义账户与同步游标的存取操作。
//
// UpdateDeltaToken 是游标存储的唯一推进入口，只在整轮同步成功后调用。
type AccountRepository interface {
	SaveAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	UpdateDeltaToken(ctx context.Context, accountID, deltaToken string) error
	UpdateSyncStatus(ctx context.Context, accountID string, status domain.SyncStatus, syncErr string) error
}

// AddressRepository 定义参与者地址的存取操作。
//
// FindOrCreateAddress 必须幂等：(account, address) 已存在时原样返回，
// 不存在时创建；唯一约束保证并发重复创建收敛为同一行。
type AddressRepository interface {
	FindOrCreateAddress(ctx context.Context, address *domain.EmailAddress) (*domain.EmailAddress, error)
	CountAddresses(ctx context.Context, accountID string) (int64, error)
}

// ThreadRepository 定义会话的存取操作。
//
// UpsertThread 是原子的 find-or-create-and-merge：创建时以 thread 携带的
// 状态标志落库；已存在时仅当来件时间不早于已存时间才更新主题与最后
// 消息时间，状态标志交由 UpdateThreadStatus 重算。participantIDs 按并集
// 合并，集合只增不减。
type ThreadRepository interface {
	UpsertThread(ctx context.Context, thread *domain.Thread, participantIDs []string) error
	GetThread(ctx context.Context, id string) (*domain.Thread, error)
	ListThreadParticipants(ctx context.Context, threadID string) ([]string, error)
	UpdateThreadStatus(ctx context.Context, threadID string, status domain.EmailLabel) error
}

// MessageRepository 定义邮件的存取操作。
type MessageRepository interface {
	UpsertMessage(ctx context.Context, message *domain.EmailMessage) error
	GetMessage(ctx context.Context, id string) (*domain.EmailMessage, error)
	// ListThreadMessages 返回会话内全部邮件，按接收时间升序。
	ListThreadMessages(ctx context.Context, threadID string) ([]domain.EmailMessage, error)
	CountMessages(ctx context.Context, accountID string) (int64, error)
}

// AttachmentRepository 定义附件的存取操作。
type AttachmentRepository interface {
	UpsertAttachment(ctx context.Context, attachment *domain.Attachment) error
	ListMessageAttachments(ctx context.Context, messageID string) ([]domain.Attachment, error)
}

// Store 聚合同步引擎依赖的全部存储操作。
type Store interface {
	AccountRepository
	AddressRepository
	ThreadRepository
	MessageRepository
	AttachmentRepository

	Health() error
	Close() error
}
