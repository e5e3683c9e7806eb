package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// AgentStepRepository 推理步骤仓储
type AgentStepRepository struct {
	db *sql.DB
}

var _ chat.AgentStepRepository = (*AgentStepRepository)(nil)

// NewAgentStepRepository 创建推理步骤仓储
func NewAgentStepRepository(db *sql.DB) *AgentStepRepository {
	return &AgentStepRepository{db: db}
}

// Create 写入推理步骤
func (r *AgentStepRepository) Create(ctx context.Context, step *chat.AgentStep) error {
	if step.ID == "" {
		step.ID = uuid.New().String()
	}
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agent_steps (id, turn_id, sequence, step_type, input_context, output, model, tokens_in, tokens_out, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID,
		step.TurnID,
		step.Sequence,
		step.StepType,
		nullString(step.InputContext),
		nullString(step.Output),
		nullString(step.Model),
		nullInt(step.TokensIn),
		nullInt(step.TokensOut),
		step.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent step: %w", err)
	}
	return nil
}

// ListByTurn 按序号列出 turn 的推理步骤
func (r *AgentStepRepository) ListByTurn(ctx context.Context, turnID string) ([]*chat.AgentStep, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, turn_id, sequence, step_type, input_context, output, model, tokens_in, tokens_out, created_at
		FROM agent_steps WHERE turn_id = ? ORDER BY sequence ASC`,
		turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent steps: %w", err)
	}
	defer rows.Close()

	var steps []*chat.AgentStep
	for rows.Next() {
		var step chat.AgentStep
		var inputContext, output, model sql.NullString
		var tokensIn, tokensOut sql.NullInt64
		var createdAt int64
		if err := rows.Scan(
			&step.ID, &step.TurnID, &step.Sequence, &step.StepType,
			&inputContext, &output, &model, &tokensIn, &tokensOut, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan agent step: %w", err)
		}
		step.InputContext = stringPtr(inputContext)
		step.Output = stringPtr(output)
		step.Model = stringPtr(model)
		step.TokensIn = intPtr(tokensIn)
		step.TokensOut = intPtr(tokensOut)
		step.CreatedAt = time.UnixMilli(createdAt)
		steps = append(steps, &step)
	}
	return steps, rows.Err()
}
