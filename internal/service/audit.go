package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/metrics"
	"github.com/iliyamo/festival-ticketing/internal/model"
)

// AuditWriter appends audit entries.  A failed write is logged and
// counted, never returned: the mutation it describes has already
// happened.
type AuditWriter struct {
	store AuditStore
	log   *slog.Logger
}

func NewAuditWriter(store AuditStore, log *slog.Logger) *AuditWriter {
	return &AuditWriter{store: store, log: log}
}

// Record appends one entry.  meta is copied and tagged with the
// request ID, or a fresh correlation ID outside a request.
func (w *AuditWriter) Record(ctx context.Context, actorID uint64, action, entityType string, entityID uint64, meta model.Meta) {
	m := make(model.Meta, len(meta)+1)
	for k, v := range meta {
		m[k] = v
	}
	if rid := logging.RequestID(ctx); rid != "" {
		m["requestId"] = rid
	} else {
		m["correlationId"] = uuid.NewString()
	}
	entry := &model.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   strconv.FormatUint(entityID, 10),
		Meta:       m,
	}
	if actorID != 0 {
		entry.ActorID = &actorID
	}
	if err := w.store.InsertAudit(ctx, entry); err != nil {
		metrics.AuditFailuresTotal.Inc()
		w.log.WarnContext(ctx, "audit write failed",
			"action", action, "entity_type", entityType, "entity_id", entry.EntityID, "err", err)
	}
}

// List returns audit entries, newest first.
func (w *AuditWriter) List(ctx context.Context, f model.AuditFilter) ([]model.AuditLog, int, error) {
	f.ListFilter = f.ListFilter.Normalize()
	items, total, err := w.store.ListAudit(ctx, f)
	if err != nil {
		return nil, 0, internal("list audit logs", err)
	}
	return items, total, nil
}
