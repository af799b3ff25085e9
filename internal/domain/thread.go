package domain

import "time"

// Thread 表示按远端会话 ID 聚合的本地邮件会话。
//
// 三个状态标志互斥，由该会话中按接收时间最早命中的邮件分类推导，
// 每次邮件落库后重新计算；参与者集合只增不减。
type Thread struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(128)"`
	AccountID       string    `json:"accountId" gorm:"type:varchar(64);index;not null"`
	Subject         string    `json:"subject" gorm:"type:varchar(500)"`
	LastMessageDate time.Time `json:"lastMessageDate" gorm:"index"`
	Done            bool      `json:"done" gorm:"default:false"`
	InboxStatus     bool      `json:"inboxStatus" gorm:"default:false;index"`
	DraftStatus     bool      `json:"draftStatus" gorm:"default:false;index"`
	SentStatus      bool      `json:"sentStatus" gorm:"default:false;index"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ThreadParticipant 表示会话与参与者地址的归属关系。
// 复合主键天然保证参与者集合按并集增长，重复写入无副作用。
type ThreadParticipant struct {
	ThreadID  string `json:"threadId" gorm:"primaryKey;type:varchar(128)"`
	AddressID string `json:"addressId" gorm:"primaryKey;type:varchar(36)"`
}
