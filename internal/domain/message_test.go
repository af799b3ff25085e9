package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLabel(t *testing.T) {
	t.Run("inbox 标签优先", func(t *testing.T) {
		assert.Equal(t, LabelInbox, ClassifyLabel([]string{"inbox", "unread"}))
	})

	t.Run("important 视同 inbox", func(t *testing.T) {
		assert.Equal(t, LabelInbox, ClassifyLabel([]string{"important"}))
	})

	t.Run("inbox 优先于 sent", func(t *testing.T) {
		assert.Equal(t, LabelInbox, ClassifyLabel([]string{"sent", "important"}))
	})

	t.Run("sent 标签", func(t *testing.T) {
		assert.Equal(t, LabelSent, ClassifyLabel([]string{"sent"}))
	})

	t.Run("draft 标签", func(t *testing.T) {
		assert.Equal(t, LabelDraft, ClassifyLabel([]string{"draft", "unread"}))
	})

	t.Run("无命中时默认 inbox", func(t *testing.T) {
		assert.Equal(t, LabelInbox, ClassifyLabel([]string{"archive"}))
		assert.Equal(t, LabelInbox, ClassifyLabel(nil))
	})
}

func TestSyncCursorRequestToken(t *testing.T) {
	t.Run("页游标优先", func(t *testing.T) {
		c := SyncCursor{DeltaToken: "d1", PageToken: "p1"}
		token, isPage := c.RequestToken()
		assert.Equal(t, "p1", token)
		assert.True(t, isPage)
	})

	t.Run("无页游标时使用增量游标", func(t *testing.T) {
		c := SyncCursor{DeltaToken: "d1"}
		token, isPage := c.RequestToken()
		assert.Equal(t, "d1", token)
		assert.False(t, isPage)
	})
}
