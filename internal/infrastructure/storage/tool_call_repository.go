package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// ToolCallRepository 工具调用与检索结果仓储
type ToolCallRepository struct {
	db *sql.DB
}

var _ chat.ToolCallRepository = (*ToolCallRepository)(nil)

// NewToolCallRepository 创建工具调用仓储
func NewToolCallRepository(db *sql.DB) *ToolCallRepository {
	return &ToolCallRepository{db: db}
}

// execer *sql.DB 与 *sql.Tx 的公共写接口
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const toolCallColumns = `id, message_id, turn_id, tool_name, input, output, status, latency_ms, error_message, started_at, completed_at`

// Create 写入工具调用
func (r *ToolCallRepository) Create(ctx context.Context, call *chat.ToolCall) error {
	return insertToolCall(ctx, r.db, call)
}

// CreateWithRetrieval 同一事务写入工具调用与检索结果
func (r *ToolCallRepository) CreateWithRetrieval(ctx context.Context, call *chat.ToolCall, result *chat.RetrievalResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertToolCall(ctx, tx, call); err != nil {
		return err
	}

	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.RetrievalMethod == "" {
		result.RetrievalMethod = chat.DefaultRetrievalMethod
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	if len(result.Results) == 0 {
		result.Results = json.RawMessage("[]")
	}
	result.ToolCallID = call.ID
	result.TurnID = call.TurnID

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO retrieval_results (id, turn_id, tool_call_id, query, results, retrieval_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.TurnID,
		result.ToolCallID,
		result.Query,
		string(result.Results),
		result.RetrievalMethod,
		result.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to insert retrieval result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tool call: %w", err)
	}
	return nil
}

// ListByTurn 按开始时间列出 turn 的工具调用
func (r *ToolCallRepository) ListByTurn(ctx context.Context, turnID string) ([]*chat.ToolCall, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+toolCallColumns+` FROM tool_calls WHERE turn_id = ? ORDER BY started_at ASC, rowid ASC`,
		turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	defer rows.Close()

	var calls []*chat.ToolCall
	for rows.Next() {
		call, err := scanToolCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool call: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// ListRetrievalResults 列出 turn 的检索结果
func (r *ToolCallRepository) ListRetrievalResults(ctx context.Context, turnID string) ([]*chat.RetrievalResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, turn_id, tool_call_id, query, results, retrieval_method, created_at
		FROM retrieval_results WHERE turn_id = ? ORDER BY created_at ASC, rowid ASC`,
		turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list retrieval results: %w", err)
	}
	defer rows.Close()

	var results []*chat.RetrievalResult
	for rows.Next() {
		var rr chat.RetrievalResult
		var payload string
		var createdAt int64
		if err := rows.Scan(&rr.ID, &rr.TurnID, &rr.ToolCallID, &rr.Query, &payload, &rr.RetrievalMethod, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan retrieval result: %w", err)
		}
		rr.Results = json.RawMessage(payload)
		rr.CreatedAt = time.UnixMilli(createdAt)
		results = append(results, &rr)
	}
	return results, rows.Err()
}

func insertToolCall(ctx context.Context, db execer, call *chat.ToolCall) error {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.Status == "" {
		call.Status = chat.ToolStatusPending
	}
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now()
	}
	if len(call.Input) == 0 {
		call.Input = json.RawMessage("{}")
	}

	var output sql.NullString
	if len(call.Output) > 0 {
		output = sql.NullString{String: string(call.Output), Valid: true}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO tool_calls (`+toolCallColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID,
		nullString(call.MessageID),
		call.TurnID,
		call.ToolName,
		string(call.Input),
		output,
		string(call.Status),
		nullInt64(call.LatencyMS),
		nullString(call.ErrorMessage),
		call.StartedAt.UnixMilli(),
		nullTime(call.CompletedAt),
	); err != nil {
		return fmt.Errorf("failed to insert tool call: %w", err)
	}
	return nil
}

func scanToolCall(s rowScanner) (*chat.ToolCall, error) {
	var call chat.ToolCall
	var messageID, output, errorMessage sql.NullString
	var input, status string
	var latency, completedAt sql.NullInt64
	var startedAt int64

	if err := s.Scan(
		&call.ID,
		&messageID,
		&call.TurnID,
		&call.ToolName,
		&input,
		&output,
		&status,
		&latency,
		&errorMessage,
		&startedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	call.MessageID = stringPtr(messageID)
	call.Input = json.RawMessage(input)
	if output.Valid {
		call.Output = json.RawMessage(output.String)
	}
	call.Status = chat.ToolStatus(status)
	call.LatencyMS = int64Ptr(latency)
	call.ErrorMessage = stringPtr(errorMessage)
	call.StartedAt = time.UnixMilli(startedAt)
	call.CompletedAt = timePtr(completedAt)
	return &call, nil
}
