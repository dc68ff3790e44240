package console

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"driverreview/internal/history"
	"driverreview/internal/logger"
	"driverreview/internal/models"
	"driverreview/internal/notify"
	"driverreview/internal/review"
)

const notifyTimeout = 15 * time.Second

type HistoryPageData struct {
	PageData
	Decisions []models.Decision
}

// RecordDecisions stores each decision and posts it to the notifier in the
// background. Neither failure is shown to the operator.
func RecordDecisions(store history.Store, notifier notify.Notifier, log logger.ILogger) review.SuccessFunc {
	return func(ctx context.Context, d models.Decision) {
		if err := store.Record(ctx, d); err != nil {
			log.Error("Error recording decision",
				logger.Int64("telegram_id", d.TelegramID),
				logger.Error(err))
		}

		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := notifier.Notify(nctx, d); err != nil {
				log.Warning("Error sending decision notification",
					logger.Int64("telegram_id", d.TelegramID),
					logger.Error(err))
			}
		}()
	}
}

func historyHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := consoleFor(deps, w, r)
		if !ok {
			return
		}

		decisions, err := deps.History.Recent(r.Context(), history.DefaultLimit)
		if err != nil {
			deps.Log.Error("Error fetching decision history", logger.Error(err))
			http.Error(w, "Error fetching history", http.StatusInternalServerError)
			return
		}

		render(w, deps, "history.html", HistoryPageData{
			PageData: PageData{
				Title:   "Decision History",
				Active:  "history",
				Notices: c.TakeNotices(),
				Request: r,
			},
			Decisions: decisions,
		}, http.StatusOK)
	}
}

func exportHistoryHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decisions, err := deps.History.Recent(r.Context(), 0)
		if err != nil {
			deps.Log.Error("Error fetching decision history", logger.Error(err))
			http.Error(w, "Error fetching history", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err = history.WriteXLSX(&buf, decisions); err != nil {
			deps.Log.Error("Error exporting decision history", logger.Error(err))
			http.Error(w, "Error exporting history", http.StatusInternalServerError)
			return
		}

		filename := "decisions-" + time.Now().UTC().Format("20060102") + ".xlsx"
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if _, err = buf.WriteTo(w); err != nil {
			deps.Log.Debug("Error writing export", logger.Error(err))
		}
	}
}
