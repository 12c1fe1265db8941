// internal/app/features/auditlogs/export.go
package auditlogs

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

const exportBatchLimit = 500

// ServeExport handles GET /api/audit-logs/export. Streams the filtered
// trail as CSV (default) or JSON per the format query param.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	f, ok := filterFromQuery(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		format = "csv"
	case "json":
	default:
		httpjson.BadRequest(w, r, `format must be "csv" or "json"`)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	if format == "json" {
		h.exportJSON(ctx, w, f)
	} else {
		h.exportCSV(ctx, w, f)
	}

	actor, _ := sysauth.CurrentUser(r)
	h.Audit.Action(ctx, r, actor, audit.ActionDataExported, audit.EntitySystem, nil,
		map[string]any{"format": format, "exported_at": time.Now()})
}

func (h *Handler) exportCSV(ctx context.Context, w http.ResponseWriter, f audit.QueryFilter) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"timestamp", "user_id", "user_email", "user_role",
		"action", "entity_type", "entity_id",
		"method", "endpoint", "ip_address", "status", "error",
	})

	f.Limit = exportBatchLimit
	for offset := int64(0); ; offset += exportBatchLimit {
		f.Offset = offset
		entries, err := h.Audits.Query(ctx, f)
		if err != nil {
			h.Log.Error("audit export query failed", zap.Error(err))
			break
		}
		for _, e := range entries {
			entityID := ""
			if e.EntityID != nil {
				entityID = e.EntityID.Hex()
			}
			_ = cw.Write([]string{
				e.Timestamp.Format(time.RFC3339),
				e.UserID.Hex(),
				e.UserEmail,
				e.UserRole,
				e.Action,
				e.EntityType,
				entityID,
				e.Method,
				e.Endpoint,
				e.IPAddress,
				e.Status,
				e.ErrorMessage,
			})
		}
		if int64(len(entries)) < exportBatchLimit {
			break
		}
	}
	cw.Flush()
}

func (h *Handler) exportJSON(ctx context.Context, w http.ResponseWriter, f audit.QueryFilter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.json"`)

	enc := json.NewEncoder(w)
	_, _ = w.Write([]byte("[\n"))
	first := true

	f.Limit = exportBatchLimit
	for offset := int64(0); ; offset += exportBatchLimit {
		f.Offset = offset
		entries, err := h.Audits.Query(ctx, f)
		if err != nil {
			h.Log.Error("audit export query failed", zap.Error(err))
			break
		}
		for _, e := range entries {
			if !first {
				_, _ = w.Write([]byte(",\n"))
			}
			first = false
			if err := enc.Encode(e); err != nil {
				h.Log.Error("audit export encode failed", zap.Error(err))
				return
			}
		}
		if int64(len(entries)) < exportBatchLimit {
			break
		}
	}
	_, _ = w.Write([]byte("]\n"))
}
