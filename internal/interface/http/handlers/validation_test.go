package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

type sampleRequest struct {
	Name   string  `json:"name" validate:"notblank,max=5"`
	Date   string  `json:"date" validate:"required,date"`
	Month  *string `json:"month" validate:"omitnil,month"`
	Status string  `json:"status" validate:"omitempty,oneof=done cancelled"`
	Items  []item  `json:"items" validate:"dive"`
}

type item struct {
	Label string `json:"label" validate:"required"`
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	m := "2024-03"
	err := v.Struct("test", "Check", sampleRequest{Name: "Budi", Date: "2024-03-11", Month: &m, Items: []item{{Label: "a"}}})
	assert.NoError(t, err)
}

func TestValidator_FieldErrorsUseJSONNames(t *testing.T) {
	v := NewValidator()
	m := "March"
	err := v.Struct("test", "Check", sampleRequest{
		Name:   "   ",
		Date:   "11/03/2024",
		Month:  &m,
		Status: "maybe",
		Items:  []item{{Label: "ok"}, {}},
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	fields, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"name cannot be blank"}, fields["name"])
	assert.Equal(t, []string{"date must be a date in the format YYYY-MM-DD"}, fields["date"])
	assert.Equal(t, []string{"month must be a month in the format YYYY-MM"}, fields["month"])
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "items.1.label")
	assert.Len(t, fields, 5)
}

func TestValidator_RequiredDate(t *testing.T) {
	v := NewValidator()
	err := v.Struct("test", "Check", sampleRequest{Name: "Budi"})
	fields, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "date")
}
