package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zacharykka/scene-pilot/internal/domain"
	"github.com/zacharykka/scene-pilot/internal/infra/database"
)

// NewSQLRepositories 构建基于 *sql.DB 的仓储集合。
func NewSQLRepositories(db *sql.DB, dialect database.Dialect) *domain.Repositories {
	return &domain.Repositories{
		PromptRecords: &promptRecordRepository{db: db, dialect: dialect},
	}
}

// ---- 提示词历史仓储 ----

type promptRecordRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type promptRecordRow struct {
	id          string
	userID      string
	projectID   string
	prompt      string
	response    sql.NullString
	provider    sql.NullString
	model       sql.NullString
	tokenUsage  sql.NullInt64
	costUSD     sql.NullFloat64
	latencyMS   sql.NullInt64
	favorite    bool
	previousID  sql.NullString
	undoPointer sql.NullInt64
	errorNote   sql.NullString
	createdAt   time.Time
}

const promptRecordColumns = `id, user_id, project_id, prompt, response, provider, model,
token_usage, cost_usd, latency_ms, favorite, previous_id, undo_pointer, error_note, created_at`

func (r *promptRecordRepository) Create(ctx context.Context, record *domain.PromptRecord) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO prompt_records
(id, user_id, project_id, prompt, response, provider, model, token_usage, cost_usd, latency_ms, favorite, previous_id, undo_pointer, error_note, created_at)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(),
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.ProjectID,
		record.Prompt,
		nullString(record.Response),
		emptyAsNull(record.Provider),
		emptyAsNull(record.Model),
		nullInt64(record.TokenUsage),
		nullFloat64(record.CostUSD),
		nullInt64(record.LatencyMS),
		record.Favorite,
		nullString(record.PreviousID),
		nullInt(record.UndoPointer),
		nullString(record.ErrorNote),
		createdAt,
	)
	return err
}

func (r *promptRecordRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.PromptRecord, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompt_records`, promptRecordColumns)
	args := make([]interface{}, 0, 3)

	where := ""
	if filter.UserID != "" {
		where = fmt.Sprintf(" WHERE user_id = %s", ph.Next())
		args = append(args, filter.UserID)
	}
	if filter.ProjectID != "" {
		if where == "" {
			where = fmt.Sprintf(" WHERE project_id = %s", ph.Next())
		} else {
			where += fmt.Sprintf(" AND project_id = %s", ph.Next())
		}
		args = append(args, filter.ProjectID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += where + fmt.Sprintf(" ORDER BY created_at ASC LIMIT %s", ph.Next())
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.PromptRecord
	for rows.Next() {
		var row promptRecordRow
		if err := rows.Scan(
			&row.id, &row.userID, &row.projectID, &row.prompt, &row.response,
			&row.provider, &row.model, &row.tokenUsage, &row.costUSD, &row.latencyMS,
			&row.favorite, &row.previousID, &row.undoPointer, &row.errorNote, &row.createdAt,
		); err != nil {
			return nil, err
		}
		records = append(records, row.toDomain())
	}
	return records, rows.Err()
}

func (r *promptRecordRepository) UpdateFavorite(ctx context.Context, recordID string, favorite bool) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE prompt_records SET favorite = %s WHERE id = %s`, ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, favorite, recordID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *promptRecordRepository) Delete(ctx context.Context, recordID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`DELETE FROM prompt_records WHERE id = %s`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, recordID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (row *promptRecordRow) toDomain() *domain.PromptRecord {
	record := &domain.PromptRecord{
		ID:        row.id,
		UserID:    row.userID,
		ProjectID: row.projectID,
		Prompt:    row.prompt,
		Favorite:  row.favorite,
		CreatedAt: row.createdAt,
	}
	if row.response.Valid {
		record.Response = &row.response.String
	}
	if row.provider.Valid {
		record.Provider = row.provider.String
	}
	if row.model.Valid {
		record.Model = row.model.String
	}
	if row.tokenUsage.Valid {
		record.TokenUsage = &row.tokenUsage.Int64
	}
	if row.costUSD.Valid {
		record.CostUSD = &row.costUSD.Float64
	}
	if row.latencyMS.Valid {
		record.LatencyMS = &row.latencyMS.Int64
	}
	if row.previousID.Valid {
		record.PreviousID = &row.previousID.String
	}
	if row.undoPointer.Valid {
		pointer := int(row.undoPointer.Int64)
		record.UndoPointer = &pointer
	}
	if row.errorNote.Valid {
		record.ErrorNote = &row.errorNote.String
	}
	return record
}

func nullString(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func emptyAsNull(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullInt64(value *int64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func nullFloat64(value *float64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func nullInt(value *int) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
