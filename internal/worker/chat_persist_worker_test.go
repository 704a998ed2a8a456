package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copium-tutor/internal/model"
)

func TestDecodeChatMessage(t *testing.T) {
	msg, err := decodeChatMessage([]byte(`{"message_id":"m1","chat_id":"c1","user_id":"u1","role":"user","content":"hi","created_at":"2026-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "c1", msg.ChatID)
	assert.Equal(t, model.ChatRoleUser, msg.Role)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, 2026, msg.CreatedAt.Year())

	_, err = decodeChatMessage([]byte(`{not json`))
	assert.Error(t, err)

	_, err = decodeChatMessage([]byte(`{"message_id":"m1","role":"user"}`))
	assert.ErrorIs(t, err, errIncompleteMessage)
}
