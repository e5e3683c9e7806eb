package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// ConversationRepository 会话 SQLite 仓储实现
type ConversationRepository struct {
	db *sql.DB
}

var _ chat.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository 创建会话仓储
func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `id, user_id, title, auto_titled, user_renamed, model, pinned, pinned_at, deleted_at, created_at, updated_at`

// Create 创建会话，缺省字段使用默认值
func (r *ConversationRepository) Create(ctx context.Context, conv *chat.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.Title == "" {
		conv.Title = chat.DefaultTitle
	}
	if conv.Model == "" {
		conv.Model = chat.DefaultModel
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	query := `INSERT INTO conversations (` + conversationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		conv.ID,
		nullString(conv.UserID),
		conv.Title,
		boolToInt(conv.AutoTitled),
		boolToInt(conv.UserRenamed),
		conv.Model,
		boolToInt(conv.Pinned),
		nullTime(conv.PinnedAt),
		nullTime(conv.DeletedAt),
		conv.CreatedAt.UnixMilli(),
		conv.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetActive 获取未删除的会话，不存在返回 nil
func (r *ConversationRepository) GetActive(ctx context.Context, id string) (*chat.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ? AND deleted_at IS NULL`
	conv, err := scanConversation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// List 列出未删除的会话：置顶优先（按置顶时间倒序），其次按更新时间倒序
func (r *ConversationRepository) List(ctx context.Context, search string, limit, offset int) ([]*chat.Conversation, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE deleted_at IS NULL AND (? = '' OR title LIKE '%' || ? || '%')
		ORDER BY pinned DESC, COALESCE(pinned_at, 0) DESC, updated_at DESC
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, search, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var result []*chat.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}

// Update 更新会话字段
// 修改标题视为用户重命名，修改置顶同步 pinned_at
func (r *ConversationRepository) Update(ctx context.Context, id string, update chat.ConversationUpdate) (*chat.Conversation, error) {
	now := time.Now().UnixMilli()
	sets := []string{"updated_at = ?"}
	args := []any{now}

	if update.Title != nil {
		sets = append(sets, "title = ?", "user_renamed = 1")
		args = append(args, *update.Title)
	}
	if update.Pinned != nil {
		if *update.Pinned {
			sets = append(sets, "pinned = 1", "pinned_at = ?")
			args = append(args, now)
		} else {
			sets = append(sets, "pinned = 0", "pinned_at = NULL")
		}
	}
	if update.Model != nil {
		sets = append(sets, "model = ?")
		args = append(args, *update.Model)
	}

	query := `UPDATE conversations SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND deleted_at IS NULL`
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, chat.ErrConversationNotFound
	}
	return r.GetActive(ctx, id)
}

// SoftDelete 软删除会话
func (r *ConversationRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.ErrConversationNotFound
	}
	return nil
}

// ApplyAutoTitle 条件更新标题，已自动命名或被用户重命名时不写入
func (r *ConversationRepository) ApplyAutoTitle(ctx context.Context, id, title string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, auto_titled = 1
		WHERE id = ? AND auto_titled = 0 AND user_renamed = 0 AND deleted_at IS NULL`,
		title, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply auto title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ForceAutoTitle 手动触发的自动标题，覆盖现有标题
func (r *ConversationRepository) ForceAutoTitle(ctx context.Context, id, title string) (*chat.Conversation, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, auto_titled = 1, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		title, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set auto title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, chat.ErrConversationNotFound
	}
	return r.GetActive(ctx, id)
}

func scanConversation(s rowScanner) (*chat.Conversation, error) {
	var conv chat.Conversation
	var userID sql.NullString
	var autoTitled, userRenamed, pinned int
	var pinnedAt, deletedAt sql.NullInt64
	var createdAt, updatedAt int64

	if err := s.Scan(
		&conv.ID,
		&userID,
		&conv.Title,
		&autoTitled,
		&userRenamed,
		&conv.Model,
		&pinned,
		&pinnedAt,
		&deletedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	conv.UserID = stringPtr(userID)
	conv.AutoTitled = autoTitled == 1
	conv.UserRenamed = userRenamed == 1
	conv.Pinned = pinned == 1
	conv.PinnedAt = timePtr(pinnedAt)
	conv.DeletedAt = timePtr(deletedAt)
	conv.CreatedAt = time.UnixMilli(createdAt)
	conv.UpdatedAt = time.UnixMilli(updatedAt)
	return &conv, nil
}
