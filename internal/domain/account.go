package domain

import "time"

// SyncStatus 表示账户当前的同步状态
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"    // 尚未同步
	SyncStatusSyncing SyncStatus = "syncing" // 同步进行中
	SyncStatusSynced  SyncStatus = "synced"  // 最近一次同步成功
	SyncStatusError   SyncStatus = "error"   // 最近一次同步失败
)

// Account 表示一个已关联的远端邮箱账户。
//
// ID 由服务商下发，全局唯一，是所有同步数据的租户锚点；
// DeltaToken 在首次同步成功前为 nil，之后仅在整轮同步成功后推进。
type Account struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(64)"`
	UserID       string     `json:"userId" gorm:"type:varchar(64);index;not null"`
	Email        string     `json:"email" gorm:"type:varchar(255)"`
	Name         string     `json:"name" gorm:"type:varchar(255)"`
	AccessToken  string     `json:"-" gorm:"type:text"`
	DeltaToken   *string    `json:"-" gorm:"type:text"`
	SyncStatus   SyncStatus `json:"syncStatus" gorm:"type:varchar(16);default:idle"`
	SyncError    string     `json:"syncError,omitempty" gorm:"type:text"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
