package review

import "driverreview/internal/models"

// Badge is a read-only status indicator shown next to a driver.
type Badge struct {
	Label string
	On    bool
}

func badge(on bool, yes, no string) Badge {
	if on {
		return Badge{Label: yes, On: true}
	}
	return Badge{Label: no}
}

// StatusBadges renders is_active, is_online and is_free in that order.
func StatusBadges(d *models.Driver) []Badge {
	if d == nil {
		return nil
	}
	return []Badge{
		badge(d.IsActive, "Active", "Inactive"),
		badge(d.IsOnline, "Online", "Offline"),
		badge(d.IsFree, "Available", "Busy"),
	}
}
