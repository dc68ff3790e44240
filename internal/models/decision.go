package models

import "time"

type Decision struct {
	ID         int64     `json:"id"`
	DriverID   int64     `json:"driver_id"`
	TelegramID int64     `json:"telegram_id"`
	FullName   string    `json:"fullname"`
	Approved   bool      `json:"approved"`
	Reasons    []string  `json:"reasons"`
	DecidedAt  time.Time `json:"decided_at"`
}

func (d Decision) Outcome() string {
	if d.Approved {
		return "approved"
	}
	return "rejected"
}
