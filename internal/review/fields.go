package review

import (
	"strconv"

	"driverreview/internal/models"
)

type FieldKind int

const (
	KindText FieldKind = iota
	KindImage
)

type Group string

const (
	GroupPersonal          Group = "Personal Information"
	GroupVehicle           Group = "Vehicle Information"
	GroupStatus            Group = "Current Status"
	GroupDriverPhoto       Group = "Driver Photo"
	GroupCarImages         Group = "Car Images"
	GroupTechnicalPassport Group = "Technical Passport"
	GroupDrivingLicence    Group = "Driving Licence"
	GroupPassport          Group = "Passport"
)

// Groups lists display sections in render order.
var Groups = []Group{
	GroupPersonal,
	GroupVehicle,
	GroupStatus,
	GroupDriverPhoto,
	GroupCarImages,
	GroupTechnicalPassport,
	GroupDrivingLicence,
	GroupPassport,
}

// Field is one reviewable item of an application. Label is what the backend
// receives on rejection; Caption is the shorter text shown next to the toggle.
type Field struct {
	Key      string
	Label    string
	Caption  string
	Group    Group
	Kind     FieldKind
	Optional bool

	value func(d *models.Driver) string
}

// Value returns the display value: text for scalar fields, the URL for images.
func (f Field) Value(d *models.Driver) string {
	if d == nil || f.value == nil {
		return ""
	}
	return f.value(d)
}

// Present is false for optional fields the applicant left empty.
func (f Field) Present(d *models.Driver) bool {
	if !f.Optional {
		return true
	}
	return f.Value(d) != ""
}

// Catalog is the single ordered table of reviewable fields. Rejection labels
// follow this order.
var Catalog = []Field{
	{Key: "fullname", Label: "Full Name", Caption: "Full Name", Group: GroupPersonal, Kind: KindText,
		value: func(d *models.Driver) string { return d.FullName }},
	{Key: "username", Label: "Username", Caption: "Username", Group: GroupPersonal, Kind: KindText,
		value: func(d *models.Driver) string { return "@" + d.Username }},
	{Key: "phone_number", Label: "Phone Number", Caption: "Phone", Group: GroupPersonal, Kind: KindText,
		value: func(d *models.Driver) string { return d.PhoneNumber }},
	{Key: "phone_number2", Label: "Secondary Phone", Caption: "Phone 2", Group: GroupPersonal, Kind: KindText, Optional: true,
		value: func(d *models.Driver) string {
			if !d.HasSecondPhone() {
				return ""
			}
			return *d.PhoneNumber2
		}},
	{Key: "car_model", Label: "Car Model", Caption: "Car Model", Group: GroupVehicle, Kind: KindText,
		value: func(d *models.Driver) string { return d.CarModel }},
	{Key: "weight", Label: "Weight Capacity", Caption: "Weight Capacity", Group: GroupVehicle, Kind: KindText,
		value: func(d *models.Driver) string { return FormatWeight(d.Weight) }},
	{Key: "car_image_back", Label: "Car Image - Back", Caption: "Back", Group: GroupCarImages, Kind: KindImage,
		value: func(d *models.Driver) string { return d.CarImageBack }},
	{Key: "car_image_front", Label: "Car Image - Front", Caption: "Front", Group: GroupCarImages, Kind: KindImage,
		value: func(d *models.Driver) string { return d.CarImageFront }},
	{Key: "car_image_side", Label: "Car Image - Side 1", Caption: "Side 1", Group: GroupCarImages, Kind: KindImage,
		value: func(d *models.Driver) string { return d.CarImageSide }},
	{Key: "car_image_side2", Label: "Car Image - Side 2", Caption: "Side 2", Group: GroupCarImages, Kind: KindImage,
		value: func(d *models.Driver) string { return d.CarImageSide2 }},
	{Key: "car_image_inside", Label: "Car Image - Inside", Caption: "Inside", Group: GroupCarImages, Kind: KindImage,
		value: func(d *models.Driver) string { return d.CarImageInside }},
	{Key: "technical_passport_front", Label: "Technical Passport - Front", Caption: "Front", Group: GroupTechnicalPassport, Kind: KindImage,
		value: func(d *models.Driver) string { return d.TechnicalPassportFront }},
	{Key: "technical_passport_back", Label: "Technical Passport - Back", Caption: "Back", Group: GroupTechnicalPassport, Kind: KindImage,
		value: func(d *models.Driver) string { return d.TechnicalPassportBack }},
	{Key: "driving_licence_front", Label: "Driving Licence - Front", Caption: "Front", Group: GroupDrivingLicence, Kind: KindImage,
		value: func(d *models.Driver) string { return d.DrivingLicenceFront }},
	{Key: "driving_licence_back", Label: "Driving Licence - Back", Caption: "Back", Group: GroupDrivingLicence, Kind: KindImage,
		value: func(d *models.Driver) string { return d.DrivingLicenceBack }},
	{Key: "passport_front", Label: "Passport - Front", Caption: "Front", Group: GroupPassport, Kind: KindImage,
		value: func(d *models.Driver) string { return d.PassportFront }},
	{Key: "passport_back", Label: "Passport - Back", Caption: "Back", Group: GroupPassport, Kind: KindImage,
		value: func(d *models.Driver) string { return d.PassportBack }},
	{Key: "own_picture", Label: "Driver Photo", Caption: "Driver Photo", Group: GroupDriverPhoto, Kind: KindImage,
		value: func(d *models.Driver) string { return d.OwnPicture }},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(Catalog))
	for i, f := range Catalog {
		idx[f.Key] = i
	}
	return idx
}()

func Lookup(key string) (Field, bool) {
	i, ok := catalogIndex[key]
	if !ok {
		return Field{}, false
	}
	return Catalog[i], true
}

// Label maps a field key to its rejection label, falling back to the key.
func Label(key string) string {
	if f, ok := Lookup(key); ok {
		return f.Label
	}
	return key
}

func FieldsIn(g Group) []Field {
	var out []Field
	for _, f := range Catalog {
		if f.Group == g {
			out = append(out, f)
		}
	}
	return out
}

// FormatWeight renders a capacity the way operators read it: "1500kg", "800.5kg".
func FormatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64) + "kg"
}
