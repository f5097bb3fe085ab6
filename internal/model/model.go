package model

import (
	"strings"
	"time"
)

// Names of the user-editable contact fields. They double as form field names, CSV column names
// and database column names.
const (
	FieldFullName    = "full_name"
	FieldPhoneNumber = "phone_number"
	FieldEmail       = "email"
	FieldAddress     = "address"
	FieldCompany     = "company"
	FieldNotes       = "notes"
)

// Contact is the data structure for a person that we know.
// Address, Company and Notes are optional and nil when no value is known, never empty strings.
type Contact struct {
	Id          int64     `json:"id"                db:"id"`
	FullName    string    `json:"full_name"         db:"full_name"`
	PhoneNumber string    `json:"phone_number"      db:"phone_number"`
	Email       string    `json:"email"             db:"email"`
	Address     *string   `json:"address,omitempty" db:"address"`
	Company     *string   `json:"company,omitempty" db:"company"`
	Notes       *string   `json:"notes,omitempty"   db:"notes"`
	CreatedAt   time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"        db:"updated_at"`
}

// Fields holds the user-editable values of a contact as raw strings, as they arrive from an HTML
// form, a JSON body or a CSV row.
type Fields struct {
	FullName    string `json:"full_name"    form:"full_name"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
	Email       string `json:"email"        form:"email"`
	Address     string `json:"address"      form:"address"`
	Company     string `json:"company"      form:"company"`
	Notes       string `json:"notes"        form:"notes"`
}

// FieldsFromMap copies the known contact fields out of a loosely typed mapping. Unknown keys are
// ignored and missing keys become empty strings.
func FieldsFromMap(m map[string]string) Fields {
	return Fields{
		FullName:    m[FieldFullName],
		PhoneNumber: m[FieldPhoneNumber],
		Email:       m[FieldEmail],
		Address:     m[FieldAddress],
		Company:     m[FieldCompany],
		Notes:       m[FieldNotes],
	}
}

// Clean returns a copy with all values trimmed and the email normalized.
func (f Fields) Clean() Fields {
	return Fields{
		FullName:    strings.TrimSpace(f.FullName),
		PhoneNumber: strings.TrimSpace(f.PhoneNumber),
		Email:       NormalizeEmail(f.Email),
		Address:     strings.TrimSpace(f.Address),
		Company:     strings.TrimSpace(f.Company),
		Notes:       strings.TrimSpace(f.Notes),
	}
}

// NormalizeEmail trims and lower-cases an email address so that it can be used as the natural
// key of a contact.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewContact builds a contact that is not yet stored. Both timestamps are set to now.
func NewContact(f Fields, now time.Time) Contact {
	c := Contact{CreatedAt: now}
	c.Apply(f, now)
	return c
}

// Apply overwrites all user-editable values, including the email, and refreshes UpdatedAt.
func (c *Contact) Apply(f Fields, now time.Time) {
	f = f.Clean()
	c.Email = f.Email
	c.applyDetails(f, now)
}

// ApplyImport overwrites the user-editable values with the exception of the email, which is the
// key an import matched the contact on.
func (c *Contact) ApplyImport(f Fields, now time.Time) {
	c.applyDetails(f.Clean(), now)
}

func (c *Contact) applyDetails(f Fields, now time.Time) {
	c.FullName = f.FullName
	c.PhoneNumber = f.PhoneNumber
	c.Address = optional(f.Address)
	c.Company = optional(f.Company)
	c.Notes = optional(f.Notes)
	if now.Before(c.CreatedAt) {
		now = c.CreatedAt
	}
	c.UpdatedAt = now
}

// Fields returns the user-editable values of the contact. Absent optional values become empty
// strings.
func (c Contact) Fields() Fields {
	return Fields{
		FullName:    c.FullName,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		Address:     Value(c.Address),
		Company:     Value(c.Company),
		Notes:       Value(c.Notes),
	}
}

// Value dereferences an optional value, returning the empty string for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Now returns the current time in UTC with the precision the database keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
