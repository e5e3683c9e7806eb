package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// maxSequenceAttempts turn 序号冲突时的最大尝试次数
const maxSequenceAttempts = 3

// sequenceReader 读取会话当前最大 turn 序号
type sequenceReader func(ctx context.Context, tx *sql.Tx, conversationID string) (int, error)

// MessageRepository 消息与 turn 的 SQLite 仓储实现
type MessageRepository struct {
	db     *sql.DB
	logger *slog.Logger
	// maxSequence 测试中可替换以制造序号冲突
	maxSequence sequenceReader
}

var _ chat.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository 创建消息仓储
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{
		db:          db,
		logger:      log.NewModuleLogger("storage", "message"),
		maxSequence: readMaxSequence,
	}
}

func readMaxSequence(ctx context.Context, tx *sql.Tx, conversationID string) (int, error) {
	var maxSeq int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM conversation_turns WHERE conversation_id = ?`,
		conversationID,
	).Scan(&maxSeq)
	return maxSeq, err
}

const messageColumns = `id, conversation_id, turn_id, role, content, model, mentions, parent_message_id, version, created_at`

// CreateTurnWithUserMessage 在同一事务内分配 turn 序号并写入用户消息
func (r *MessageRepository) CreateTurnWithUserMessage(ctx context.Context, conversationID string, userMsg *chat.Message) (*chat.Turn, error) {
	for attempt := 1; attempt <= maxSequenceAttempts; attempt++ {
		turn, err := r.createTurn(ctx, conversationID, userMsg)
		if err == nil {
			return turn, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		r.logger.Warn("Turn sequence conflict, retrying",
			"conversation_id", conversationID,
			"attempt", attempt,
		)
	}
	return nil, fmt.Errorf("failed to create turn after %d attempts: %w", maxSequenceAttempts, chat.ErrSequenceConflict)
}

func (r *MessageRepository) createTurn(ctx context.Context, conversationID string, userMsg *chat.Message) (*chat.Turn, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	maxSeq, err := r.maxSequence(ctx, tx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read turn sequence: %w", err)
	}

	turn := &chat.Turn{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sequence:       maxSeq + 1,
		CreatedAt:      time.Now(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_turns (id, conversation_id, sequence, created_at) VALUES (?, ?, ?, ?)`,
		turn.ID, turn.ConversationID, turn.Sequence, turn.CreatedAt.UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("failed to create turn: %w", err)
	}

	if userMsg != nil {
		userMsg.ConversationID = conversationID
		userMsg.TurnID = &turn.ID
		if userMsg.Role == "" {
			userMsg.Role = chat.RoleUser
		}
		if err := insertMessage(ctx, tx, userMsg); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}
	return turn, nil
}

// SaveAssistantMessage 写入助手消息并刷新会话 updated_at
func (r *MessageRepository) SaveAssistantMessage(ctx context.Context, msg *chat.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	msg.Role = chat.RoleAssistant
	if err := insertMessage(ctx, tx, msg); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt.UnixMilli(), msg.ConversationID,
	); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assistant message: %w", err)
	}
	return nil
}

// Get 获取消息，不存在返回 nil
func (r *MessageRepository) Get(ctx context.Context, id string) (*chat.Message, error) {
	msg, err := scanMessage(r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListByConversation 按创建顺序列出会话消息
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*chat.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`,
		conversationID)
}

// CountByConversation 统计会话消息数
func (r *MessageRepository) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// ListLineage 列出版本链：根消息自身及以其为父的所有版本
func (r *MessageRepository) ListLineage(ctx context.Context, rootID string) ([]*chat.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		WHERE id = ? OR parent_message_id = ?
		ORDER BY version ASC, created_at ASC, rowid ASC`,
		rootID, rootID)
}

// ListTurns 按序号列出会话的 turn
func (r *MessageRepository) ListTurns(ctx context.Context, conversationID string) ([]*chat.Turn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, conversation_id, sequence, created_at FROM conversation_turns
		WHERE conversation_id = ? ORDER BY sequence ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []*chat.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// GetTurn 获取 turn，不存在返回 nil
func (r *MessageRepository) GetTurn(ctx context.Context, id string) (*chat.Turn, error) {
	turn, err := scanTurn(r.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, sequence, created_at FROM conversation_turns WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}
	return turn, nil
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]*chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*chat.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// insertMessage 在事务内写入消息，补齐 ID、版本与时间
func insertMessage(ctx context.Context, tx *sql.Tx, msg *chat.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Version <= 0 {
		msg.Version = 1
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Mentions == nil {
		msg.Mentions = []string{}
	}
	mentions, err := json.Marshal(msg.Mentions)
	if err != nil {
		return fmt.Errorf("failed to marshal mentions: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ConversationID,
		nullString(msg.TurnID),
		string(msg.Role),
		msg.Content,
		nullString(msg.Model),
		string(mentions),
		nullString(msg.ParentMessageID),
		msg.Version,
		msg.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func scanMessage(s rowScanner) (*chat.Message, error) {
	var msg chat.Message
	var turnID, model, parentID sql.NullString
	var role, mentions string
	var createdAt int64

	if err := s.Scan(
		&msg.ID,
		&msg.ConversationID,
		&turnID,
		&role,
		&msg.Content,
		&model,
		&mentions,
		&parentID,
		&msg.Version,
		&createdAt,
	); err != nil {
		return nil, err
	}

	msg.TurnID = stringPtr(turnID)
	msg.Role = chat.Role(role)
	msg.Model = stringPtr(model)
	msg.ParentMessageID = stringPtr(parentID)
	msg.CreatedAt = time.UnixMilli(createdAt)
	msg.Mentions = []string{}
	if mentions != "" {
		if err := json.Unmarshal([]byte(mentions), &msg.Mentions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mentions: %w", err)
		}
	}
	return &msg, nil
}

func scanTurn(s rowScanner) (*chat.Turn, error) {
	var turn chat.Turn
	var createdAt int64
	if err := s.Scan(&turn.ID, &turn.ConversationID, &turn.Sequence, &createdAt); err != nil {
		return nil, err
	}
	turn.CreatedAt = time.UnixMilli(createdAt)
	return &turn, nil
}
