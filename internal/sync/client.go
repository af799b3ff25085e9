package sync

import (
	"context"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/provider"
)

// RemoteClient 同步引擎依赖的远端操作子集。
// 账户身份查询（FetchAccountProfile）不属于同步回路，由外部协作方使用。
type RemoteClient interface {
	StartSync(ctx context.Context, credential string, windowDays int) (*provider.StartSyncResponse, error)
	FetchChangedPage(ctx context.Context, credential string, cursor domain.SyncCursor) (*provider.ChangedPage, error)
}
