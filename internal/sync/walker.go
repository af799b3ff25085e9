package sync

import (
	"context"

	"go.uber.org/zap"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/provider"
)

// WalkResult 一次完整游走的结果：累积的记录批次与新的持久化游标
type WalkResult struct {
	Records    []provider.Message
	DeltaToken string
	Pages      int
}

// DeltaWalker 将一个就绪游标走到变更流末尾。
//
// 循环不变量：每次取数前 cursor 恰好对应一次合法的 FetchChangedPage 调用。
// 页与页严格串行（下一页的游标依赖上一页的响应）；整批累积后一次性
// 交给下游持久化，中途崩溃时从上一个持久化游标重走，安全性由下游
// 落库的幂等性保证。
type DeltaWalker struct {
	client RemoteClient
	logger *zap.Logger
}

// NewDeltaWalker 创建增量游走器
func NewDeltaWalker(client RemoteClient, log *zap.Logger) *DeltaWalker {
	return &DeltaWalker{client: client, logger: log}
}

// Walk 从起始游标拉取变更直至远端不再返回页游标。
// 页游标缺失即终止；增量游标只取自最后一页的 nextDeltaToken。
// 支持页间取消；取数失败时整轮放弃，不持久化任何中间游标。
func (w *DeltaWalker) Walk(ctx context.Context, credential string, start domain.SyncCursor) (*WalkResult, error) {
	cursor := start
	result := &WalkResult{DeltaToken: start.DeltaToken}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := w.client.FetchChangedPage(ctx, credential, cursor)
		if err != nil {
			return nil, err
		}

		result.Pages++
		result.Records = append(result.Records, page.Records...)

		// 远端约定：nextDeltaToken 只出现在最后一页
		if page.NextDeltaToken != "" {
			result.DeltaToken = page.NextDeltaToken
		}

		w.logger.Debug("fetched changed page",
			zap.Int("page", result.Pages),
			zap.Int("records", len(page.Records)),
			zap.Bool("has_next_page", page.NextPageToken != ""),
		)

		if page.NextPageToken == "" {
			break
		}
		cursor = domain.SyncCursor{
			DeltaToken: result.DeltaToken,
			PageToken:  page.NextPageToken,
		}
	}

	return result, nil
}
