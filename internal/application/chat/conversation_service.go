package chat

import (
	"context"
	"fmt"
	"time"

	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// GroupedConversations 按日期分组的会话列表
type GroupedConversations struct {
	Pinned     []*domainChat.Conversation `json:"pinned"`
	Today      []*domainChat.Conversation `json:"today"`
	Yesterday  []*domainChat.Conversation `json:"yesterday"`
	Last7Days  []*domainChat.Conversation `json:"last_7_days"`
	Last30Days []*domainChat.Conversation `json:"last_30_days"`
	Older      []*domainChat.Conversation `json:"older"`
}

// CreateConversationInput 新建会话参数
type CreateConversationInput struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

// ConversationService 会话管理
type ConversationService struct {
	conversations domainChat.ConversationRepository
	messages      domainChat.MessageRepository
	titles        TitleGenerator
	now           func() time.Time
}

// NewConversationService 创建会话服务
func NewConversationService(conversations domainChat.ConversationRepository, messages domainChat.MessageRepository, titles TitleGenerator) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		titles:        titles,
		now:           time.Now,
	}
}

// Create 新建会话
func (s *ConversationService) Create(ctx context.Context, in CreateConversationInput) (*domainChat.Conversation, error) {
	conv := &domainChat.Conversation{Title: in.Title, Model: in.Model}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get 获取未删除的会话
func (s *ConversationService) Get(ctx context.Context, id string) (*domainChat.Conversation, error) {
	conv, err := s.conversations.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domainChat.ErrConversationNotFound
	}
	return conv, nil
}

// List 列出会话
func (s *ConversationService) List(ctx context.Context, search string) ([]*domainChat.Conversation, error) {
	return s.conversations.List(ctx, search, 0, 0)
}

// ListGrouped 按置顶、今天、昨天、7 天内、30 天内、更早分组
func (s *ConversationService) ListGrouped(ctx context.Context, search string) (*GroupedConversations, error) {
	convs, err := s.List(ctx, search)
	if err != nil {
		return nil, err
	}
	return GroupByDate(convs, s.now()), nil
}

// GroupByDate 按更新时间分组，置顶会话单独一组
func GroupByDate(convs []*domainChat.Conversation, now time.Time) *GroupedConversations {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekAgo := todayStart.AddDate(0, 0, -7)
	monthAgo := todayStart.AddDate(0, 0, -30)

	g := &GroupedConversations{
		Pinned:     []*domainChat.Conversation{},
		Today:      []*domainChat.Conversation{},
		Yesterday:  []*domainChat.Conversation{},
		Last7Days:  []*domainChat.Conversation{},
		Last30Days: []*domainChat.Conversation{},
		Older:      []*domainChat.Conversation{},
	}
	for _, c := range convs {
		updated := c.UpdatedAt
		switch {
		case c.Pinned:
			g.Pinned = append(g.Pinned, c)
		case !updated.Before(todayStart):
			g.Today = append(g.Today, c)
		case !updated.Before(yesterdayStart):
			g.Yesterday = append(g.Yesterday, c)
		case !updated.Before(weekAgo):
			g.Last7Days = append(g.Last7Days, c)
		case !updated.Before(monthAgo):
			g.Last30Days = append(g.Last30Days, c)
		default:
			g.Older = append(g.Older, c)
		}
	}
	return g
}

// Update 更新标题、置顶或模型
func (s *ConversationService) Update(ctx context.Context, id string, update domainChat.ConversationUpdate) (*domainChat.Conversation, error) {
	return s.conversations.Update(ctx, id, update)
}

// TogglePin 切换置顶
func (s *ConversationService) TogglePin(ctx context.Context, id string) (*domainChat.Conversation, error) {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pinned := !conv.Pinned
	return s.conversations.Update(ctx, id, domainChat.ConversationUpdate{Pinned: &pinned})
}

// Delete 软删除
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	return s.conversations.SoftDelete(ctx, id)
}

// Messages 会话消息，按创建时间升序
func (s *ConversationService) Messages(ctx context.Context, id string) ([]*domainChat.Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*domainChat.Message{}
	}
	return msgs, nil
}

// AutoTitle 根据首条用户消息重新生成标题，覆盖现有标题
func (s *ConversationService) AutoTitle(ctx context.Context, id string) (*domainChat.Conversation, error) {
	msgs, err := s.Messages(ctx, id)
	if err != nil {
		return nil, err
	}

	var first *domainChat.Message
	for _, m := range msgs {
		if m.Role == domainChat.RoleUser {
			first = m
			break
		}
	}
	if first == nil {
		return nil, domainChat.ErrNoUserMessages
	}

	title, err := s.titles.Generate(ctx, first.Content)
	if err != nil || title == "" {
		title = domainChat.DefaultTitle
	}
	conv, err := s.conversations.ForceAutoTitle(ctx, id, title)
	if err != nil {
		return nil, fmt.Errorf("failed to apply title: %w", err)
	}
	return conv, nil
}
