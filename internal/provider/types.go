package provider

import "time"

// StartSyncResponse 就绪探测响应。
// 远端异步准备邮箱快照，ready=false 表示准备尚未完成。
type StartSyncResponse struct {
	Ready            bool   `json:"ready"`
	SyncUpdatedToken string `json:"syncUpdatedToken"`
	SyncDeletedToken string `json:"syncDeletedToken,omitempty"`
}

// ChangedPage 一页变更记录。
// NextPageToken 非空表示还有后续页；NextDeltaToken 仅出现在最后一页，
// 是下一轮增量同步的持久化游标。
type ChangedPage struct {
	Records        []Message `json:"records"`
	NextPageToken  string    `json:"nextPageToken,omitempty"`
	NextDeltaToken string    `json:"nextDeltaToken,omitempty"`
}

// Profile 账户身份信息
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Address 远端报文中的参与者地址
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Raw     string `json:"raw,omitempty"`
}

// InternetHeader 原始报文头
type InternetHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attachment 远端报文中的附件
type Attachment struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MimeType        string `json:"mimeType"`
	Size            int64  `json:"size"`
	Inline          bool   `json:"inline"`
	ContentID       string `json:"contentId,omitempty"`
	Content         string `json:"content,omitempty"`
	ContentLocation string `json:"contentLocation,omitempty"`
}

// Message 远端下发的松散结构邮件记录
type Message struct {
	ID                   string           `json:"id"`
	ThreadID             string           `json:"threadId"`
	Subject              string           `json:"subject"`
	From                 Address          `json:"from"`
	To                   []Address        `json:"to"`
	Cc                   []Address        `json:"cc"`
	Bcc                  []Address        `json:"bcc"`
	ReplyTo              []Address        `json:"replyTo"`
	SentAt               time.Time        `json:"sentAt"`
	ReceivedAt           time.Time        `json:"receivedAt"`
	CreatedTime          time.Time        `json:"createdTime"`
	SysLabels            []string         `json:"sysLabels"`
	Keywords             []string         `json:"keywords"`
	SysClassifications   []string         `json:"sysClassifications"`
	Sensitivity          string           `json:"sensitivity"`
	MeetingMessageMethod string           `json:"meetingMessageMethod,omitempty"`
	InternetMessageID    string           `json:"internetMessageId"`
	InternetHeaders      []InternetHeader `json:"internetHeaders"`
	InReplyTo            string           `json:"inReplyTo,omitempty"`
	References           string           `json:"references,omitempty"`
	ThreadIndex          string           `json:"threadIndex,omitempty"`
	FolderID             string           `json:"folderId,omitempty"`
	Omitted              []string         `json:"omitted"`
	HasAttachments       bool             `json:"hasAttachments"`
	Body                 string           `json:"body"`
	BodySnippet          string           `json:"bodySnippet"`
	Attachments          []Attachment     `json:"attachments"`
}
