package chat

import (
	"context"
	"testing"

	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedExchange 写入一轮用户/助手消息
func seedExchange(t *testing.T, s *testStore) (*domainChat.Conversation, *domainChat.Message, *domainChat.Message) {
	t.Helper()
	ctx := context.Background()
	conv := &domainChat.Conversation{}
	require.NoError(t, s.conversations.Create(ctx, conv))

	user := &domainChat.Message{ConversationID: conv.ID, Role: domainChat.RoleUser, Content: "q"}
	turn, err := s.messages.CreateTurnWithUserMessage(ctx, conv.ID, user)
	require.NoError(t, err)

	turnID := turn.ID
	assistant := &domainChat.Message{ConversationID: conv.ID, TurnID: &turnID, Content: "a1", Model: strPtr(testModel)}
	require.NoError(t, s.messages.SaveAssistantMessage(ctx, assistant))
	return conv, user, assistant
}

func TestVersionService_PrepareRegeneration(t *testing.T) {
	s := newTestStore(t)
	conv, user, assistant := seedExchange(t, s)
	svc := NewVersionService(s.messages, s.conversations)
	ctx := context.Background()

	info, err := svc.PrepareRegeneration(ctx, assistant.ID)
	require.NoError(t, err)
	assert.Equal(t, RegenerationInfo{
		ParentMessageID: assistant.ID,
		ConversationID:  conv.ID,
		NextVersion:     2,
		Message:         RegenerateHint,
	}, *info)

	_, err = svc.PrepareRegeneration(ctx, user.ID)
	assert.ErrorIs(t, err, domainChat.ErrNotAssistantMessage)

	_, err = svc.PrepareRegeneration(ctx, "missing")
	assert.ErrorIs(t, err, domainChat.ErrMessageNotFound)

	require.NoError(t, s.conversations.SoftDelete(ctx, conv.ID))
	_, err = svc.PrepareRegeneration(ctx, assistant.ID)
	assert.ErrorIs(t, err, domainChat.ErrConversationNotFound)
}

func TestVersionService_ListVersions(t *testing.T) {
	s := newTestStore(t)
	conv, _, assistant := seedExchange(t, s)
	svc := NewVersionService(s.messages, s.conversations)
	ctx := context.Background()

	root := assistant.ID
	v2 := &domainChat.Message{ConversationID: conv.ID, Content: "a2", ParentMessageID: &root, Version: 2}
	require.NoError(t, s.messages.SaveAssistantMessage(ctx, v2))

	versions, err := svc.ListVersions(ctx, v2.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "a1", versions[0].Content)
	assert.False(t, versions[0].IsCurrent)
	assert.Equal(t, 2, versions[1].Version)
	assert.True(t, versions[1].IsCurrent)

	// 从任一版本计算下一个版本号都指向同一根
	info, err := svc.PrepareRegeneration(ctx, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, root, info.ParentMessageID)
	assert.Equal(t, 3, info.NextVersion)
}

func TestVersionService_ResolveParentChecksConversation(t *testing.T) {
	s := newTestStore(t)
	_, _, assistant := seedExchange(t, s)
	other, _, _ := seedExchange(t, s)
	svc := NewVersionService(s.messages, s.conversations)

	_, _, err := svc.ResolveParent(context.Background(), other.ID, assistant.ID)
	assert.ErrorIs(t, err, domainChat.ErrMessageNotFound)

	root, next, err := svc.ResolveParent(context.Background(), assistant.ConversationID, assistant.ID)
	require.NoError(t, err)
	assert.Equal(t, assistant.ID, root)
	assert.Equal(t, 2, next)
}
