package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

// AuditRepo appends and lists audit_logs rows.  Rows are never updated.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) InsertAudit(ctx context.Context, a *model.AuditLog) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, meta, created_at) VALUES (?,?,?,?,?,?)",
		a.ActorID, a.Action, a.EntityType, a.EntityID, a.Meta, a.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *AuditRepo) ListAudit(ctx context.Context, f model.AuditFilter) ([]model.AuditLog, int, error) {
	f.ListFilter = f.ListFilter.Normalize()
	var (
		conds []string
		args  []any
	)
	if f.EntityType != "" {
		conds = append(conds, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	if f.ActorID != 0 {
		conds = append(conds, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, "entity_id = ?")
		args = append(args, q)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, actor_id, action, entity_type, entity_id, meta, created_at FROM audit_logs"+where+
			" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.AuditLog
	for rows.Next() {
		var (
			a     model.AuditLog
			actor sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &actor, &a.Action, &a.EntityType, &a.EntityID, &a.Meta, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		a.ActorID = nullUint64(actor)
		out = append(out, a)
	}
	return out, total, rows.Err()
}
