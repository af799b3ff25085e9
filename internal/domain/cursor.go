package domain

// SyncCursor 表示远端变更流的续传点。
//
// PageToken 非空时表示一次 delta 窗口内的翻页位置，取数时优先于
// DeltaToken；DeltaToken 只有在远端返回最后一页后才允许推进。
type SyncCursor struct {
	DeltaToken string
	PageToken  string
}

// RequestToken 返回下一次取数应使用的游标值。
// 第二个返回值为 true 时表示该值是页游标。
func (c SyncCursor) RequestToken() (string, bool) {
	if c.PageToken != "" {
		return c.PageToken, true
	}
	return c.DeltaToken, false
}
