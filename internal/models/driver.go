package models

type Driver struct {
	ID           int64   `json:"id"`
	TelegramID   int64   `json:"telegram_id"`
	FullName     string  `json:"fullname"`
	Username     string  `json:"username"`
	PhoneNumber  string  `json:"phone_number"`
	PhoneNumber2 *string `json:"phone_number2,omitempty"`
	CarModel     string  `json:"car_model"`
	Weight       float64 `json:"weight"`
	Lang         string  `json:"lang"`

	CarImageBack   string `json:"car_image_back"`
	CarImageFront  string `json:"car_image_front"`
	CarImageSide   string `json:"car_image_side"`
	CarImageSide2  string `json:"car_image_side2"`
	CarImageInside string `json:"car_image_inside"`

	TechnicalPassportFront string `json:"technical_passport_front"`
	TechnicalPassportBack  string `json:"technical_passport_back"`

	DrivingLicenceFront string `json:"driving_licence_front"`
	DrivingLicenceBack  string `json:"driving_licence_back"`

	PassportFront string `json:"passport_front"`
	PassportBack  string `json:"passport_back"`

	OwnPicture string `json:"own_picture"`

	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	IsActive  bool     `json:"is_active"`
	IsOnline  bool     `json:"is_online"`
	IsFree    bool     `json:"is_free"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// HasSecondPhone reports whether the applicant submitted a secondary phone.
func (d *Driver) HasSecondPhone() bool {
	return d.PhoneNumber2 != nil && *d.PhoneNumber2 != ""
}

// DriversPage is one page of the paginated driver listing.
type DriversPage struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Driver `json:"results"`
}

func (p *DriversPage) HasNext() bool {
	return p != nil && p.Next != nil && *p.Next != ""
}

func (p *DriversPage) HasPrevious() bool {
	return p != nil && p.Previous != nil && *p.Previous != ""
}

// Find returns the driver with the given id on this page.
func (p *DriversPage) Find(id int64) (*Driver, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Results {
		if p.Results[i].ID == id {
			d := p.Results[i]
			return &d, true
		}
	}
	return nil, false
}
