package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "Attendance - Present", AttendancePresent.Name())
	assert.Equal(t, 5, AttendancePresent.DefaultPoints())
	assert.Equal(t, "Attendance - Late", AttendanceLate.Name())
	assert.Equal(t, -5, AttendanceLate.DefaultPoints())
	assert.Equal(t, KindPunishment, AttendanceLate.Kind())
}

func TestDefaults(t *testing.T) {
	rules := Defaults()

	require.Len(t, rules, 6)
	assert.Equal(t, "Serious Violation", rules[5].Name)
	assert.Equal(t, -25, rules[5].Points)
	for _, r := range rules {
		assert.NoError(t, r.Validate(), r.Name)
		assert.NotNil(t, r.Description)
	}
}

func TestValidate(t *testing.T) {
	err := Rule{Kind: "bonus", Name: "  "}.Validate()

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	fields, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "name")
}
