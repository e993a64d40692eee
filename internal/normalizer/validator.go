package normalizer

// Validator runs the booking rules and then the schema check, so the caller
// sees the more actionable rule message when both would fail.
type Validator struct {
	schema *Schema
}

// NewValidator creates a validator backed by the embedded record schema.
func NewValidator() (*Validator, error) {
	schema, err := NewSchema()
	if err != nil {
		return nil, err
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a complete record.
func (v *Validator) Validate(doc Document) error {
	if err := CheckRules(doc); err != nil {
		return err
	}
	return v.schema.Validate(doc)
}
