package model

// Reservation is a guest's booking at a resort as it is persisted in the
// record store.  Every field is always present in the stored JSON; optional
// strings are stored as "".
//
// Fields:
//
//	ID           – server assigned, unique and immutable.
//	ResortID     – opaque reference to the resort (defaults to 1).
//	Contact      – phone and email of the guest.
//	ValidID      – identity document presented by the guest.
//	Guests       – number of guests, at least one.
//	CheckinDate  – ISO date string, may be empty.
//	CheckoutDate – ISO date string, must be later than CheckinDate.
//	SMSToken     – BK-XXXXX code sent to the guest, immutable.
//	CreatedAt    – UTC creation timestamp, immutable.
//	UpdatedAt    – UTC timestamp of the last mutation.
type Reservation struct {
	ID             uint64  `json:"id"`
	ResortID       uint64  `json:"resort_id"`
	ResortName     string  `json:"resort_name"`
	GuestName      string  `json:"guest_name"`
	StreetAddress  string  `json:"street_address"`
	Municipality   string  `json:"municipality"`
	Region         string  `json:"region"`
	Country        string  `json:"country"`
	Contact        Contact `json:"contact"`
	ValidID        ValidID `json:"valid_id"`
	Guests         int     `json:"guests"`
	CheckinDate    string  `json:"checkin_date"`
	CheckoutDate   string  `json:"checkout_date"`
	PaymentGateway string  `json:"payment_gateway"`
	RoomType       string  `json:"room_type"`
	Notes          string  `json:"notes"`
	SMSToken       string  `json:"sms_token"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// Contact holds the guest's contact details.
type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ValidID describes the identity document presented at check-in.
type ValidID struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// TimestampLayout is the UTC layout used for created_at and updated_at.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"
