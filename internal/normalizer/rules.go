package normalizer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ValidationError is returned when a reservation breaks a booking rule or
// the record schema.  Message is safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

var phonePattern = regexp.MustCompile(`^09\d{9}$`)

// AcceptedIDTypes is the closed set of identity documents a guest may
// present.
var AcceptedIDTypes = map[string]bool{
	"Driver's License": true,
	"National ID":      true,
	"Passport":         true,
	"PhilHealth ID":    true,
	"Postal ID":        true,
	"SSS ID":           true,
	"UMID":             true,
	"Voter's ID":       true,
}

// MinIDNumberLength is the shortest accepted valid_id.number.
const MinIDNumberLength = 5

// Messages returned by CheckRules.
var (
	MsgInvalidPhone    = "Invalid phone number. Use 11-digit PH mobile format 09XXXXXXXXX (e.g., 09171234567)"
	MsgInvalidIDType   = "Invalid valid ID type. Allowed values: " + strings.Join(sortedIDTypes(), ", ")
	MsgShortIDNumber   = "Valid ID number must be at least 5 characters"
	MsgInvalidGuests   = "Guests must be an integer of at least 1"
	MsgCheckoutOrdered = "Checkout date must be later than check-in date"
)

func sortedIDTypes() []string {
	types := make([]string, 0, len(AcceptedIDTypes))
	for t := range AcceptedIDTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CheckRules applies the booking rules to a normalized document in a fixed
// order and reports the first one broken.
func CheckRules(doc Document) error {
	contact, _ := asMap(doc["contact"])
	validID, _ := asMap(doc["valid_id"])

	phone, _ := contact["phone"].(string)
	if !phonePattern.MatchString(phone) {
		return invalid(MsgInvalidPhone)
	}

	idType, _ := validID["type"].(string)
	if !AcceptedIDTypes[idType] {
		return invalid(MsgInvalidIDType)
	}

	idNumber, ok := validID["number"].(string)
	if !ok || utf8.RuneCountInString(idNumber) < MinIDNumberLength {
		return invalid(MsgShortIDNumber)
	}

	guests, ok := doc["guests"].(int)
	if !ok || guests < 1 {
		return invalid(MsgInvalidGuests)
	}

	checkin, _ := doc["checkin_date"].(string)
	checkout, _ := doc["checkout_date"].(string)
	if checkin != "" && checkout != "" && checkin >= checkout {
		return invalid(MsgCheckoutOrdered)
	}
	return nil
}
