package console

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"driverreview/internal/logger"
	"driverreview/internal/models"
	"driverreview/internal/review"
	"driverreview/internal/session"
)

const msgDriverNotOnPage = "Driver not found on the current page"

func driverID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func reviewDriverHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := consoleFor(deps, w, r)
		if !ok {
			return
		}
		id, err := driverID(r)
		if err != nil {
			http.Error(w, "Invalid driver ID", http.StatusBadRequest)
			return
		}

		loadErr := loadDrivers(r.Context(), deps, c)

		driver, found := c.List.Select(id)
		if !found && loadErr != nil {
			// The page could not be fetched, so absence proves nothing. Keep
			// the driver under review and its flagged fields.
			if open := c.Dialog.Driver(); open == nil || open.ID != id {
				c.Dialog.Close()
				c.List.CloseDialog()
			}
			renderDrivers(w, r, deps, c, loadErr, http.StatusOK)
			return
		}
		if !found {
			c.Dialog.Close()
			c.List.CloseDialog()
			c.Flash(review.Notice{Kind: review.NoticeError, Message: msgDriverNotOnPage})
			renderDrivers(w, r, deps, c, nil, http.StatusNotFound)
			return
		}

		if open := c.Dialog.Driver(); open == nil || open.ID != driver.ID {
			c.Dialog.Open(driver)
		}

		renderDrivers(w, r, deps, c, loadErr, http.StatusOK)
	}
}

// openDriver returns the driver under review when it matches the URL.
func openDriver(deps Deps, w http.ResponseWriter, r *http.Request) (*session.Console, *models.Driver, bool) {
	c, ok := consoleFor(deps, w, r)
	if !ok {
		return nil, nil, false
	}
	id, err := driverID(r)
	if err != nil {
		http.Error(w, "Invalid driver ID", http.StatusBadRequest)
		return nil, nil, false
	}

	driver := c.Dialog.Driver()
	if driver == nil || driver.ID != id {
		c.Flash(review.Notice{Kind: review.NoticeError, Message: "Open the driver before reviewing it"})
		redirectToPage(w, r, c.List.Page())
		return nil, nil, false
	}
	return c, driver, true
}

func toggleFieldHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, driver, ok := openDriver(deps, w, r)
		if !ok {
			return
		}

		field := mux.Vars(r)["field"]
		if _, err := c.Dialog.Toggle(field); err != nil {
			if errors.Is(err, review.ErrUnknownField) {
				http.Error(w, "Unknown field", http.StatusBadRequest)
				return
			}
			deps.Log.Warning("Error toggling field",
				logger.String("field", field),
				logger.Error(err))
			redirectToPage(w, r, c.List.Page())
			return
		}

		redirectToDriver(w, r, driver.ID)
	}
}

func approveHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, driver, ok := openDriver(deps, w, r)
		if !ok {
			return
		}

		notice, err := c.Dialog.Approve(r.Context())
		c.Flash(notice)
		if err != nil {
			deps.Log.Error("Error approving driver",
				logger.Int64("driver_id", driver.ID),
				logger.Int64("telegram_id", driver.TelegramID),
				logger.Error(err))
			redirectToDriver(w, r, driver.ID)
			return
		}

		deps.Log.Info("Driver approved", logger.Int64("telegram_id", driver.TelegramID))
		redirectToPage(w, r, c.List.Page())
	}
}

func rejectHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, driver, ok := openDriver(deps, w, r)
		if !ok {
			return
		}

		notice, err := c.Dialog.Reject(r.Context())
		c.Flash(notice)
		if err != nil {
			if errors.Is(err, review.ErrEmptySelection) {
				redirectToDriver(w, r, driver.ID)
				return
			}
			deps.Log.Error("Error rejecting driver",
				logger.Int64("driver_id", driver.ID),
				logger.Int64("telegram_id", driver.TelegramID),
				logger.Error(err))
			redirectToDriver(w, r, driver.ID)
			return
		}

		deps.Log.Info("Driver rejected", logger.Int64("telegram_id", driver.TelegramID))
		redirectToPage(w, r, c.List.Page())
	}
}
