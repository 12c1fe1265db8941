// internal/app/features/activity/summary.go
package activity

import (
	"context"
	"net/http"
	"time"

	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

// ServeSummary handles GET /api/activity/summary. Defaults to the last
// 30 days when no range is given.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.targetPatient(ctx, w, r, patientaccess.PermViewActivity)
	if !ok {
		return
	}

	from, to, err := dateRange(r)
	if err != nil {
		httpjson.BadRequest(w, r, "from/to must be RFC 3339 or YYYY-MM-DD dates")
		return
	}
	end := time.Now()
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}

	sum, err := h.Activity.Summarize(ctx, target, start, end)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, sum)
}
