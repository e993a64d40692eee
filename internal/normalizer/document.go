package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// FromReservation converts a stored record into a document so it can be
// merged and re-validated.
func FromReservation(r model.Reservation) Document {
	return Document{
		"id":             int(r.ID),
		"resort_id":      int(r.ResortID),
		"resort_name":    r.ResortName,
		"guest_name":     r.GuestName,
		"street_address": r.StreetAddress,
		"municipality":   r.Municipality,
		"region":         r.Region,
		"country":        r.Country,
		"contact": map[string]any{
			"phone": r.Contact.Phone,
			"email": r.Contact.Email,
		},
		"valid_id": map[string]any{
			"type":   r.ValidID.Type,
			"number": r.ValidID.Number,
		},
		"guests":          r.Guests,
		"checkin_date":    r.CheckinDate,
		"checkout_date":   r.CheckoutDate,
		"payment_gateway": r.PaymentGateway,
		"room_type":       r.RoomType,
		"notes":           r.Notes,
		"sms_token":       r.SMSToken,
		"created_at":      r.CreatedAt,
		"updated_at":      r.UpdatedAt,
	}
}

// ToReservation decodes a validated document into the typed record.
func ToReservation(doc Document) (model.Reservation, error) {
	var r model.Reservation
	raw, err := json.Marshal(doc)
	if err != nil {
		return r, fmt.Errorf("encode reservation: %w", err)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("decode reservation: %w", err)
	}
	return r, nil
}

// Decode parses a request body.  Anything that is not a JSON object,
// including an empty body, yields an empty document so the missing fields
// are reported by validation instead of as a parse failure.
func Decode(body []byte) Document {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return Document{}
	}
	return Document(doc)
}
