package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

func at(hh, mm, ss int) time.Time {
	return time.Date(2024, 8, 12, hh, mm, ss, 0, timeutil.JakartaTZ)
}

func TestPolicy_Classify(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		when time.Time
		want Status
	}{
		{"early morning", at(6, 0, 0), StatusPresent},
		{"last present minute", at(6, 44, 59), StatusPresent},
		{"present cutoff", at(6, 45, 0), StatusExcused},
		{"excused cutoff minute", at(6, 55, 59), StatusExcused},
		{"first late minute", at(6, 56, 0), StatusLate},
		{"afternoon", at(13, 0, 0), StatusLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Classify(tt.when))
		})
	}
}

func TestPolicy_ClassifyUsesReferenceZone(t *testing.T) {
	p := DefaultPolicy()
	// 23:30 UTC is 06:30 the next day in Jakarta.
	instant := time.Date(2024, 8, 11, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, StatusPresent, p.Classify(instant))
	assert.Equal(t, timeutil.Date(2024, 8, 12), p.Day(instant))
	assert.Equal(t, "06:30", p.Clock(instant))
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.ExcusedUntil = timeutil.MustTimeOfDay("06:00")
	assert.Error(t, bad.Validate())
}

func TestStatus_PointsEarned(t *testing.T) {
	assert.Equal(t, 5, StatusPresent.PointsEarned())
	assert.Equal(t, -5, StatusLate.PointsEarned())
	assert.Equal(t, 0, StatusExcused.PointsEarned())
	assert.Equal(t, 0, StatusAbsent.PointsEarned())
}

func TestNotes(t *testing.T) {
	assert.Equal(t, "Attendance submitted at 06:50 with status excused", StudentNote("06:50", StatusExcused))
	assert.Equal(t, "Administrator attendance submitted at 07:10 with status excused", AdministratorNote("07:10", StatusExcused))
}
