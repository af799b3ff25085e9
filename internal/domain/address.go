package domain

import "time"

// EmailAddress 表示某账户视角下的一个邮件参与者地址。
//
// (AccountID, Address) 唯一；首次出现时惰性创建，之后复用，
// 展示名允许刷新但行本身不会被破坏性更新。
type EmailAddress struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AccountID string    `json:"accountId" gorm:"type:varchar(64);uniqueIndex:uniq_account_address;not null"`
	Address   string    `json:"address" gorm:"type:varchar(320);uniqueIndex:uniq_account_address;not null"`
	Name      string    `json:"name" gorm:"type:varchar(255)"`
	Raw       string    `json:"raw" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}
