package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/provider"
	"mailsync/backend/internal/storage"
)

// RecordFailure 单条记录的落库失败，不影响同批其他记录
type RecordFailure struct {
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
}

// BatchResult 一批记录的落库结果
type BatchResult struct {
	Persisted int
	Failures  []RecordFailure
}

// UpsertPipeline 并发幂等地将一批邮件记录落库。
//
// 单条记录的落库顺序固定：会话 -> 邮件 -> 会话状态重算 -> 附件；
// 记录之间有界并发、互不阻塞。单条失败只记录不中断，
// 同一批次重放收敛到相同的最终状态。
type UpsertPipeline struct {
	store       storage.Store
	concurrency int
	logger      *zap.Logger
}

// NewUpsertPipeline 创建落库流水线
func NewUpsertPipeline(store storage.Store, concurrency int, log *zap.Logger) *UpsertPipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &UpsertPipeline{store: store, concurrency: concurrency, logger: log}
}

// PersistBatch 落库一批记录并返回逐条成败汇总。
// addresses 必须覆盖整批记录引用的全部发件人地址。
func (p *UpsertPipeline) PersistBatch(ctx context.Context, accountID string, records []provider.Message, addresses map[string]*domain.EmailAddress) (*BatchResult, error) {
	result := &BatchResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var batchErr error
	for i := range records {
		record := records[i]

		// 取消时停止派发，在途任务必须收尾后才允许返回
		if err := ctx.Err(); err != nil {
			batchErr = err
			break
		}

		g.Go(func() error {
			if err := p.upsertMessage(gctx, accountID, record, addresses); err != nil {
				p.logger.Warn("failed to persist message",
					zap.String("message_id", record.ID),
					zap.Error(err),
				)
				mu.Lock()
				result.Failures = append(result.Failures, RecordFailure{
					MessageID: record.ID,
					Reason:    err.Error(),
				})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Persisted++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if batchErr != nil {
		return nil, batchErr
	}
	return result, nil
}

// upsertMessage 落库单条记录，覆盖会话、邮件、参与者与附件
func (p *UpsertPipeline) upsertMessage(ctx context.Context, accountID string, record provider.Message, addresses map[string]*domain.EmailAddress) error {
	label := domain.ClassifyLabel(record.SysLabels)

	from, ok := addresses[record.From.Address]
	if !ok || from == nil {
		return fmt.Errorf("from address %q not resolved", record.From.Address)
	}

	toIDs := resolveIDs(record.To, addresses)
	ccIDs := resolveIDs(record.Cc, addresses)
	bccIDs := resolveIDs(record.Bcc, addresses)
	replyToIDs := resolveIDs(record.ReplyTo, addresses)

	participantIDs := participantUnion(from.ID, toIDs, ccIDs, bccIDs, replyToIDs)

	thread := &domain.Thread{
		ID:              record.ThreadID,
		AccountID:       accountID,
		Subject:         record.Subject,
		LastMessageDate: record.SentAt,
		Done:            false,
		InboxStatus:     label == domain.LabelInbox,
		DraftStatus:     label == domain.LabelDraft,
		SentStatus:      label == domain.LabelSent,
	}
	if err := p.store.UpsertThread(ctx, thread, participantIDs); err != nil {
		return fmt.Errorf("upsert thread %s: %w", record.ThreadID, err)
	}

	message := &domain.EmailMessage{
		ID:                   record.ID,
		AccountID:            accountID,
		ThreadID:             record.ThreadID,
		Subject:              record.Subject,
		FromID:               from.ID,
		ToIDs:                toIDs,
		CcIDs:                ccIDs,
		BccIDs:               bccIDs,
		ReplyToIDs:           replyToIDs,
		SentAt:               record.SentAt,
		ReceivedAt:           record.ReceivedAt,
		CreatedTime:          record.CreatedTime,
		LastModifiedTime:     time.Now(),
		Label:                label,
		SysLabels:            record.SysLabels,
		Keywords:             record.Keywords,
		SysClassifications:   record.SysClassifications,
		Sensitivity:          record.Sensitivity,
		MeetingMessageMethod: record.MeetingMessageMethod,
		InternetMessageID:    record.InternetMessageID,
		InternetHeaders:      headersToMap(record.InternetHeaders),
		InReplyTo:            record.InReplyTo,
		References:           record.References,
		ThreadIndex:          record.ThreadIndex,
		FolderID:             record.FolderID,
		Omitted:              record.Omitted,
		HasAttachments:       record.HasAttachments,
		Body:                 record.Body,
		BodySnippet:          record.BodySnippet,
	}
	if err := p.store.UpsertMessage(ctx, message); err != nil {
		return fmt.Errorf("upsert message %s: %w", record.ID, err)
	}

	if err := p.reclassifyThread(ctx, record.ThreadID); err != nil {
		return fmt.Errorf("reclassify thread %s: %w", record.ThreadID, err)
	}

	for _, att := range record.Attachments {
		attachment := &domain.Attachment{
			ID:              att.ID,
			MessageID:       record.ID,
			Name:            att.Name,
			MimeType:        att.MimeType,
			Size:            att.Size,
			Inline:          att.Inline,
			ContentID:       att.ContentID,
			Content:         att.Content,
			ContentLocation: att.ContentLocation,
		}
		if err := p.store.UpsertAttachment(ctx, attachment); err != nil {
			return fmt.Errorf("upsert attachment %s: %w", att.ID, err)
		}
	}

	return nil
}

// reclassifyThread 按会话内全量邮件重算三个状态标志。
// 按接收时间升序扫描，最早一封归类为 inbox 或 draft 的邮件决定
// 会话状态，均无则定为 sent。
func (p *UpsertPipeline) reclassifyThread(ctx context.Context, threadID string) error {
	messages, err := p.store.ListThreadMessages(ctx, threadID)
	if err != nil {
		return err
	}

	status := domain.LabelSent
	for _, m := range messages {
		if m.Label == domain.LabelInbox {
			status = domain.LabelInbox
			break
		}
		if m.Label == domain.LabelDraft {
			status = domain.LabelDraft
			break
		}
	}

	return p.store.UpdateThreadStatus(ctx, threadID, status)
}

// resolveIDs 将地址列表映射为已解析的地址行 ID 列表，未解析项跳过
func resolveIDs(addrs []provider.Address, addresses map[string]*domain.EmailAddress) domain.StringList {
	ids := make(domain.StringList, 0, len(addrs))
	for _, a := range addrs {
		if row, ok := addresses[a.Address]; ok && row != nil {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

// participantUnion 求发件人与全部收件人地址行 ID 的去重并集
func participantUnion(fromID string, lists ...domain.StringList) []string {
	seen := make(map[string]struct{})
	union := make([]string, 0, 8)

	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		union = append(union, id)
	}

	add(fromID)
	for _, list := range lists {
		for _, id := range list {
			add(id)
		}
	}
	return union
}

// headersToMap 将原始报文头列表折叠为名称到值的映射
func headersToMap(headers []provider.InternetHeader) domain.StringMap {
	if len(headers) == 0 {
		return nil
	}
	m := make(domain.StringMap, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}
