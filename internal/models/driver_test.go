package models

import (
	"encoding/json"
	"testing"
)

func TestDriversPageLinks(t *testing.T) {
	link := "http://backend/drivers/all/?page=2"
	empty := ""

	tests := []struct {
		name     string
		page     *DriversPage
		wantNext bool
		wantPrev bool
	}{
		{"Nil page", nil, false, false},
		{"No links", &DriversPage{}, false, false},
		{"Next only", &DriversPage{Next: &link}, true, false},
		{"Both links", &DriversPage{Next: &link, Previous: &link}, true, true},
		{"Empty strings", &DriversPage{Next: &empty, Previous: &empty}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.HasNext(); got != tt.wantNext {
				t.Errorf("Expected HasNext %v, got %v", tt.wantNext, got)
			}
			if got := tt.page.HasPrevious(); got != tt.wantPrev {
				t.Errorf("Expected HasPrevious %v, got %v", tt.wantPrev, got)
			}
		})
	}
}

func TestDecodeDriverOptionalFields(t *testing.T) {
	raw := `{"count":2,"next":null,"previous":null,"results":[
		{"id":1,"telegram_id":1001,"fullname":"A","weight":1500},
		{"id":2,"telegram_id":1002,"fullname":"B","weight":800.5,"phone_number2":"+998901112233","longitude":69.2,"latitude":41.3}
	]}`

	var page DriversPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		t.Fatalf("Failed to decode page: %v", err)
	}

	if page.Results[0].HasSecondPhone() {
		t.Error("Expected first driver to have no secondary phone")
	}
	if !page.Results[1].HasSecondPhone() {
		t.Error("Expected second driver to have a secondary phone")
	}
	if page.Results[0].Longitude != nil {
		t.Error("Expected missing longitude to stay nil")
	}
	if page.Results[1].Weight != 800.5 {
		t.Errorf("Expected weight 800.5, got %v", page.Results[1].Weight)
	}

	d, ok := page.Find(2)
	if !ok || d.TelegramID != 1002 {
		t.Errorf("Expected to find driver 2, got %+v", d)
	}
	if _, ok = page.Find(3); ok {
		t.Error("Expected driver 3 to be missing")
	}
}
