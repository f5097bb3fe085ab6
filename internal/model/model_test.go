package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestFieldsFromMap expects that known keys are copied and unknown keys are ignored.
func TestFieldsFromMap(t *testing.T) {
	f := FieldsFromMap(map[string]string{
		"full_name":    "Erika Mustermann",
		"phone_number": "+49 0815 4711",
		"email":        "erika@example.com",
		"birthday":     "1969-03-02",
	})
	assert.Equal(t, Fields{
		FullName:    "Erika Mustermann",
		PhoneNumber: "+49 0815 4711",
		Email:       "erika@example.com",
	}, f)
}

// TestNewContact expects trimmed values, a normalized email and absent optional values.
func TestNewContact(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	c := NewContact(Fields{
		FullName:    " Rudi Völler ",
		PhoneNumber: "+49 1234567890 ",
		Email:       " Rudi@DFB.de",
		Address:     "  ",
		Company:     " DFB ",
	}, now)
	assert.Equal(t, int64(0), c.Id)
	assert.Equal(t, "Rudi Völler", c.FullName)
	assert.Equal(t, "+49 1234567890", c.PhoneNumber)
	assert.Equal(t, "rudi@dfb.de", c.Email)
	assert.Nil(t, c.Address)
	assert.Equal(t, "DFB", *c.Company)
	assert.Nil(t, c.Notes)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.UpdatedAt)
}

// TestApplyImportKeepsEmail expects that an import update leaves the email untouched.
func TestApplyImportKeepsEmail(t *testing.T) {
	created := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	c := NewContact(Fields{FullName: "Old", PhoneNumber: "0123456789", Email: "a@b.de", Notes: "x"}, created)
	later := created.Add(time.Hour)
	c.ApplyImport(Fields{FullName: "New", PhoneNumber: "9876543210", Email: "OTHER@b.de"}, later)
	assert.Equal(t, "New", c.FullName)
	assert.Equal(t, "9876543210", c.PhoneNumber)
	assert.Equal(t, "a@b.de", c.Email)
	assert.Nil(t, c.Notes)
	assert.Equal(t, created, c.CreatedAt)
	assert.Equal(t, later, c.UpdatedAt)
}

// TestUpdatedAtNeverBeforeCreatedAt expects that a clock going backwards does not break the
// ordering of the timestamps.
func TestUpdatedAtNeverBeforeCreatedAt(t *testing.T) {
	created := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	c := NewContact(Fields{FullName: "Al", PhoneNumber: "0123456789", Email: "al@b.de"}, created)
	c.Apply(c.Fields(), created.Add(-time.Minute))
	assert.Equal(t, created, c.UpdatedAt)
}

// TestContactFields expects that absent optional values become empty strings.
func TestContactFields(t *testing.T) {
	company := "ACME"
	c := Contact{FullName: "Al", PhoneNumber: "0123456789", Email: "al@b.de", Company: &company}
	assert.Equal(t, Fields{FullName: "Al", PhoneNumber: "0123456789", Email: "al@b.de", Company: "ACME"}, c.Fields())
}
