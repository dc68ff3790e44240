package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"driverreview/internal/api/middleware"
	"driverreview/internal/history"
	"driverreview/internal/logger"
	"driverreview/internal/models"
	"driverreview/internal/review"
)

const maxDecisionLimit = 1000

type FieldInfo struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Group    string `json:"group"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional"`
}

type DriverLister interface {
	ListDrivers(ctx context.Context, page int) (*models.DriversPage, error)
}

// RegisterHandlers mounts the read-only JSON API under /api.
func RegisterHandlers(r *mux.Router, drivers DriverLister, store history.Store, log logger.ILogger) {
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.CORSMiddleware)

	apiRouter.HandleFunc("/fields", listFieldsHandler()).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/drivers", listDriversHandler(drivers, log)).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/decisions", listDecisionsHandler(store, log)).Methods("GET", "OPTIONS")
}

func writeJSON(w http.ResponseWriter, log logger.ILogger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Error encoding response", logger.Error(err))
	}
}

func listFieldsHandler() http.HandlerFunc {
	fields := make([]FieldInfo, 0, len(review.Catalog))
	for _, f := range review.Catalog {
		kind := "text"
		if f.Kind == review.KindImage {
			kind = "image"
		}
		fields = append(fields, FieldInfo{
			Key:      f.Key,
			Label:    f.Label,
			Group:    string(f.Group),
			Kind:     kind,
			Optional: f.Optional,
		})
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(fields); err != nil {
			http.Error(w, "Error encoding response", http.StatusInternalServerError)
		}
	}
}

func listDriversHandler(drivers DriverLister, log logger.ILogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "Invalid page", http.StatusBadRequest)
				return
			}
			page = n
		}

		data, err := drivers.ListDrivers(r.Context(), page)
		if err != nil {
			log.Error("Error fetching drivers", logger.Int("page", page), logger.Error(err))
			http.Error(w, "Error fetching drivers", http.StatusBadGateway)
			return
		}
		writeJSON(w, log, data)
	}
}

func listDecisionsHandler(store history.Store, log logger.ILogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := history.DefaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxDecisionLimit {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		decisions, err := store.Recent(r.Context(), limit)
		if err != nil {
			log.Error("Error fetching decisions", logger.Error(err))
			http.Error(w, "Error fetching decisions", http.StatusInternalServerError)
			return
		}
		if decisions == nil {
			decisions = []models.Decision{}
		}
		writeJSON(w, log, decisions)
	}
}
