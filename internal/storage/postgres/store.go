package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/storage"
)

// Store PostgreSQL 存储实现。
// 所有 upsert 均为唯一键上的原子条件写，不依赖应用层锁。
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Account{},
		&domain.EmailAddress{},
		&domain.Thread{},
		&domain.ThreadParticipant{},
		&domain.EmailMessage{},
		&domain.Attachment{},
	)
}

// ========== Account Repository ==========

// SaveAccount 保存账户信息。已存在时刷新关联字段，但不触碰增量游标。
func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "email", "name", "access_token", "updated_at",
		}),
	}).Create(account).Error
}

// GetAccount 根据 ID 获取账户
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts 列出全部账户
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.db.WithContext(ctx).Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// UpdateDeltaToken 推进账户的增量游标
func (s *Store) UpdateDeltaToken(ctx context.Context, accountID, deltaToken string) error {
	result := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", accountID).
		Update("delta_token", deltaToken)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// UpdateSyncStatus 更新账户同步状态
func (s *Store) UpdateSyncStatus(ctx context.Context, accountID string, status domain.SyncStatus, syncErr string) error {
	updates := map[string]interface{}{
		"sync_status": status,
		"sync_error":  syncErr,
	}
	if status == domain.SyncStatusSynced {
		updates["last_synced_at"] = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", accountID).
		Updates(updates).Error
}

// ========== Address Repository ==========

// FindOrCreateAddress 按 (account, address) 查找地址，不存在则创建。
// 唯一约束上的 ON CONFLICT DO NOTHING 保证并发创建收敛为同一行。
func (s *Store) FindOrCreateAddress(ctx context.Context, address *domain.EmailAddress) (*domain.EmailAddress, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "address"}},
		DoNothing: true,
	}).Create(address).Error
	if err != nil {
		return nil, err
	}

	// 冲突时 Create 不回填已存行，统一回查取权威数据
	var persisted domain.EmailAddress
	err = s.db.WithContext(ctx).
		Where("account_id = ? AND address = ?", address.AccountID, address.Address).
		First(&persisted).Error
	if err != nil {
		return nil, err
	}
	return &persisted, nil
}

// CountAddresses 统计账户下的地址行数
func (s *Store) CountAddresses(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.EmailAddress{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

// ========== Thread Repository ==========

// UpsertThread 原子地创建或合并会话。
//
// 创建与合并都是唯一键上的单条条件写：合并路径只在来件时间不早于
// 已存 last_message_date 时覆盖主题与最后消息时间（乱序投递防护），
// 状态标志由 UpdateThreadStatus 统一重算。参与者按复合主键并集合并。
func (s *Store) UpsertThread(ctx context.Context, thread *domain.Thread, participantIDs []string) error {
	db := s.db.WithContext(ctx)

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(thread)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		err := db.Model(&domain.Thread{}).
			Where("id = ? AND last_message_date <= ?", thread.ID, thread.LastMessageDate).
			Updates(map[string]interface{}{
				"subject":           thread.Subject,
				"last_message_date": thread.LastMessageDate,
				"done":              false,
			}).Error
		if err != nil {
			return err
		}
	}

	if len(participantIDs) == 0 {
		return nil
	}
	participants := make([]domain.ThreadParticipant, 0, len(participantIDs))
	for _, addressID := range participantIDs {
		participants = append(participants, domain.ThreadParticipant{
			ThreadID:  thread.ID,
			AddressID: addressID,
		})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants).Error
}

// GetThread 根据 ID 获取会话
func (s *Store) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	var thread domain.Thread
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrThreadNotFound
		}
		return nil, err
	}
	return &thread, nil
}

// ListThreadParticipants 返回会话的参与者地址 ID 集合
func (s *Store) ListThreadParticipants(ctx context.Context, threadID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.ThreadParticipant{}).
		Where("thread_id = ?", threadID).
		Order("address_id ASC").
		Pluck("address_id", &ids).Error
	return ids, err
}

// UpdateThreadStatus 将三个状态标志设为与给定归类一致（恰好一个为真）
func (s *Store) UpdateThreadStatus(ctx context.Context, threadID string, status domain.EmailLabel) error {
	var exists int64
	err := s.db.WithContext(ctx).Model(&domain.Thread{}).
		Where("id = ?", threadID).
		Count(&exists).Error
	if err != nil {
		return err
	}
	if exists == 0 {
		return storage.ErrThreadNotFound
	}

	return s.db.WithContext(ctx).Model(&domain.Thread{}).
		Where("id = ?", threadID).
		Updates(map[string]interface{}{
			"inbox_status": status == domain.LabelInbox,
			"draft_status": status == domain.LabelDraft,
			"sent_status":  status == domain.LabelSent,
		}).Error
}

// ========== Message Repository ==========

// UpsertMessage 创建或整体替换邮件行（含全部标量与关联引用字段）
func (s *Store) UpsertMessage(ctx context.Context, message *domain.EmailMessage) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(message).Error
}

// GetMessage 根据 ID 获取邮件
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.EmailMessage, error) {
	var message domain.EmailMessage
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// ListThreadMessages 返回会话内全部邮件，按接收时间升序（同时刻按 ID）
func (s *Store) ListThreadMessages(ctx context.Context, threadID string) ([]domain.EmailMessage, error) {
	var messages []domain.EmailMessage
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("received_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// CountMessages 统计账户下的邮件行数
func (s *Store) CountMessages(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.EmailMessage{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

// ========== Attachment Repository ==========

// UpsertAttachment 创建或整体替换附件行
func (s *Store) UpsertAttachment(ctx context.Context, attachment *domain.Attachment) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(attachment).Error
}

// ListMessageAttachments 返回邮件的全部附件
func (s *Store) ListMessageAttachments(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("id ASC").
		Find(&attachments).Error
	return attachments, err
}

// Health 检查数据库连接
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
