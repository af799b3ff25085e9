package domain

import "time"

// EmailLabel 邮件归类标签
type EmailLabel string

const (
	LabelInbox EmailLabel = "inbox"
	LabelSent  EmailLabel = "sent"
	LabelDraft EmailLabel = "draft"
)

// ClassifyLabel 根据远端系统标签推导邮件归类。
// 优先级: inbox/important > sent > draft，均未命中时默认 inbox。
func ClassifyLabel(sysLabels []string) EmailLabel {
	has := func(want string) bool {
		for _, l := range sysLabels {
			if l == want {
				return true
			}
		}
		return false
	}

	switch {
	case has("inbox") || has("important"):
		return LabelInbox
	case has("sent"):
		return LabelSent
	case has("draft"):
		return LabelDraft
	default:
		return LabelInbox
	}
}

// EmailMessage 表示远端邮件的本地规范化副本，主键为远端邮件 ID。
//
// From 必须指向一条已解析的地址行，否则落库被拒绝；
// To/Cc/Bcc/ReplyTo 为地址行 ID 的完整集合，落库时整体替换而非合并。
type EmailMessage struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:varchar(128)"`
	AccountID            string     `json:"accountId" gorm:"type:varchar(64);index;not null"`
	ThreadID             string     `json:"threadId" gorm:"type:varchar(128);index;not null"`
	Subject              string     `json:"subject" gorm:"type:varchar(500)"`
	FromID               string     `json:"fromId" gorm:"type:varchar(36);not null"`
	ToIDs                StringList `json:"toIds" gorm:"type:text"`
	CcIDs                StringList `json:"ccIds" gorm:"type:text"`
	BccIDs               StringList `json:"bccIds" gorm:"type:text"`
	ReplyToIDs           StringList `json:"replyToIds" gorm:"type:text"`
	SentAt               time.Time  `json:"sentAt"`
	ReceivedAt           time.Time  `json:"receivedAt" gorm:"index"`
	CreatedTime          time.Time  `json:"createdTime"`
	LastModifiedTime     time.Time  `json:"lastModifiedTime"`
	Label                EmailLabel `json:"label" gorm:"type:varchar(10);index"`
	SysLabels            StringList `json:"sysLabels" gorm:"type:text"`
	Keywords             StringList `json:"keywords" gorm:"type:text"`
	SysClassifications   StringList `json:"sysClassifications" gorm:"type:text"`
	Sensitivity          string     `json:"sensitivity" gorm:"type:varchar(32)"`
	MeetingMessageMethod string     `json:"meetingMessageMethod,omitempty" gorm:"type:varchar(32)"`
	InternetMessageID    string     `json:"internetMessageId" gorm:"type:varchar(512)"`
	InternetHeaders      StringMap  `json:"internetHeaders" gorm:"type:text"`
	InReplyTo            string     `json:"inReplyTo,omitempty" gorm:"type:varchar(512)"`
	References           string     `json:"references,omitempty" gorm:"type:text"`
	ThreadIndex          string     `json:"threadIndex,omitempty" gorm:"type:varchar(512)"`
	FolderID             string     `json:"folderId,omitempty" gorm:"type:varchar(128)"`
	Omitted              StringList `json:"omitted" gorm:"type:text"`
	HasAttachments       bool       `json:"hasAttachments"`
	Body                 string     `json:"body" gorm:"type:text"`
	BodySnippet          string     `json:"bodySnippet" gorm:"type:text"`
}
