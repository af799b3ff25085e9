package domain

// Attachment 表示邮件附件，主键为远端附件 ID，归属且仅归属一封邮件。
type Attachment struct {
	ID              string `json:"id" gorm:"primaryKey;type:varchar(128)"`
	MessageID       string `json:"messageId" gorm:"type:varchar(128);index;not null"`
	Name            string `json:"name" gorm:"type:varchar(255)"`
	MimeType        string `json:"mimeType" gorm:"type:varchar(100)"`
	Size            int64  `json:"size"`
	Inline          bool   `json:"inline"`
	ContentID       string `json:"contentId,omitempty" gorm:"type:varchar(255)"`
	Content         string `json:"-" gorm:"type:text"`
	ContentLocation string `json:"contentLocation,omitempty" gorm:"type:varchar(500)"`
}
