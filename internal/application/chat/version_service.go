package chat

import (
	"context"
	"fmt"
	"time"

	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// RegenerateHint 返回给客户端的提示
const RegenerateHint = "Regenerate by calling /api/chat/stream with parent_message_id in the request"

// RegenerationInfo 重新生成所需的元数据
type RegenerationInfo struct {
	ParentMessageID string `json:"parent_message_id"`
	ConversationID  string `json:"conversation_id"`
	NextVersion     int    `json:"next_version"`
	Message         string `json:"message"`
}

// MessageVersion 版本链成员
type MessageVersion struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	Model     *string   `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	IsCurrent bool      `json:"is_current"`
}

// VersionService 消息版本与重新生成
type VersionService struct {
	messages      domainChat.MessageRepository
	conversations domainChat.ConversationRepository
}

// NewVersionService 创建版本服务
func NewVersionService(messages domainChat.MessageRepository, conversations domainChat.ConversationRepository) *VersionService {
	return &VersionService{messages: messages, conversations: conversations}
}

// PrepareRegeneration 计算助手消息的下一个版本号
func (s *VersionService) PrepareRegeneration(ctx context.Context, messageID string) (*RegenerationInfo, error) {
	msg, err := s.loadOwned(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Role != domainChat.RoleAssistant {
		return nil, domainChat.ErrNotAssistantMessage
	}

	root := msg.LineageRoot()
	next, err := s.NextVersion(ctx, root)
	if err != nil {
		return nil, err
	}
	return &RegenerationInfo{
		ParentMessageID: root,
		ConversationID:  msg.ConversationID,
		NextVersion:     next,
		Message:         RegenerateHint,
	}, nil
}

// NextVersion max(版本链内版本号) + 1
func (s *VersionService) NextVersion(ctx context.Context, rootID string) (int, error) {
	lineage, err := s.messages.ListLineage(ctx, rootID)
	if err != nil {
		return 0, fmt.Errorf("failed to list message versions: %w", err)
	}
	maxVersion := 0
	for _, m := range lineage {
		if m.Version > maxVersion {
			maxVersion = m.Version
		}
	}
	return maxVersion + 1, nil
}

// ListVersions 列出消息所在版本链，按版本升序
func (s *VersionService) ListVersions(ctx context.Context, messageID string) ([]MessageVersion, error) {
	msg, err := s.loadOwned(ctx, messageID)
	if err != nil {
		return nil, err
	}

	lineage, err := s.messages.ListLineage(ctx, msg.LineageRoot())
	if err != nil {
		return nil, fmt.Errorf("failed to list message versions: %w", err)
	}
	versions := make([]MessageVersion, 0, len(lineage))
	for _, m := range lineage {
		versions = append(versions, MessageVersion{
			ID:        m.ID,
			Content:   m.Content,
			Version:   m.Version,
			Model:     m.Model,
			CreatedAt: m.CreatedAt,
			IsCurrent: m.ID == messageID,
		})
	}
	return versions, nil
}

// ResolveParent 校验重新生成的父消息，返回版本链根 ID 与下一个版本号
func (s *VersionService) ResolveParent(ctx context.Context, conversationID, parentID string) (string, int, error) {
	msg, err := s.messages.Get(ctx, parentID)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get message: %w", err)
	}
	if msg == nil || msg.ConversationID != conversationID {
		return "", 0, domainChat.ErrMessageNotFound
	}
	if msg.Role != domainChat.RoleAssistant {
		return "", 0, domainChat.ErrNotAssistantMessage
	}
	root := msg.LineageRoot()
	next, err := s.NextVersion(ctx, root)
	if err != nil {
		return "", 0, err
	}
	return root, next, nil
}

// loadOwned 消息必须存在且所属会话未删除
func (s *VersionService) loadOwned(ctx context.Context, messageID string) (*domainChat.Message, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if msg == nil {
		return nil, domainChat.ErrMessageNotFound
	}
	conv, err := s.conversations.GetActive(ctx, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, domainChat.ErrConversationNotFound
	}
	return msg, nil
}
