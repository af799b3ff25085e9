package sync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailsync/backend/internal/domain"
	"mailsync/backend/internal/provider"
	"mailsync/backend/internal/storage"
)

// AddressResolver 在整批邮件落库前解析参与者地址。
//
// 先对整批去重（按地址字符串），再逐个 find-or-create，产出
// 地址字符串 -> 地址行 的映射；解析全部完成后下游才允许落库，
// 保证映射对整批完整。重复解析不会产生重复行（由存储层唯一约束保证）。
type AddressResolver struct {
	store  storage.AddressRepository
	logger *zap.Logger
}

// NewAddressResolver 创建地址解析器
func NewAddressResolver(store storage.AddressRepository, log *zap.Logger) *AddressResolver {
	return &AddressResolver{store: store, logger: log}
}

// Resolve 解析一批邮件引用的全部去重地址
func (r *AddressResolver) Resolve(ctx context.Context, accountID string, records []provider.Message) (map[string]*domain.EmailAddress, error) {
	distinct := make(map[string]provider.Address)
	for _, record := range records {
		for _, addr := range collectAddresses(record) {
			if addr.Address == "" {
				continue
			}
			if _, ok := distinct[addr.Address]; !ok {
				distinct[addr.Address] = addr
			}
		}
	}

	resolved := make(map[string]*domain.EmailAddress, len(distinct))
	for key, addr := range distinct {
		row, err := r.store.FindOrCreateAddress(ctx, &domain.EmailAddress{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Address:   addr.Address,
			Name:      addr.Name,
			Raw:       addr.Raw,
		})
		if err != nil {
			return nil, err
		}
		resolved[key] = row
	}

	r.logger.Debug("resolved batch addresses",
		zap.String("account_id", accountID),
		zap.Int("distinct", len(resolved)),
	)
	return resolved, nil
}

// collectAddresses 收集一封邮件引用的全部地址（from/to/cc/bcc/replyTo）
func collectAddresses(record provider.Message) []provider.Address {
	addresses := make([]provider.Address, 0, 1+len(record.To)+len(record.Cc)+len(record.Bcc)+len(record.ReplyTo))
	addresses = append(addresses, record.From)
	addresses = append(addresses, record.To...)
	addresses = append(addresses, record.Cc...)
	addresses = append(addresses, record.Bcc...)
	addresses = append(addresses, record.ReplyTo...)
	return addresses
}
