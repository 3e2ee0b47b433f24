package discipline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

func pending() Record {
	return Record{ID: 1, StudentID: 10, TeacherID: 3, Status: RecordPending}
}

func TestRecord_Execute(t *testing.T) {
	t.Run("done by owner", func(t *testing.T) {
		rec := pending()
		notes := "talked to parents"

		require.NoError(t, rec.Execute(3, RecordDone, &notes))
		assert.Equal(t, RecordDone, rec.Status)
		assert.Equal(t, &notes, rec.Notes)
	})

	t.Run("other teacher is forbidden", func(t *testing.T) {
		rec := pending()
		err := rec.Execute(4, RecordDone, nil)

		assert.True(t, shared.IsForbidden(err))
		assert.Equal(t, RecordPending, rec.Status)
	})

	t.Run("already executed", func(t *testing.T) {
		rec := pending()
		rec.Status = RecordCancelled
		err := rec.Execute(3, RecordDone, nil)

		assert.True(t, shared.IsInvalidState(err))
	})

	t.Run("bad decision", func(t *testing.T) {
		rec := pending()
		assert.True(t, shared.IsValidation(rec.Execute(3, RecordPending, nil)))
	})

	t.Run("notes too long", func(t *testing.T) {
		rec := pending()
		notes := strings.Repeat("x", MaxNotesLength+1)
		assert.True(t, shared.IsValidation(rec.Execute(3, RecordDone, &notes)))
	})
}

func TestCancelPolicies(t *testing.T) {
	late := rule.Rule{Name: "Attendance - Late", Points: -5}

	assert.Equal(t, 0, KeepPenalty(pending(), late, true))
	assert.Equal(t, 5, RestorePoints(pending(), late, true))
	assert.Equal(t, 0, RestorePoints(pending(), rule.Rule{}, false))

	_, err := CancelPolicyByName("refund")
	assert.Error(t, err)
}

func TestAutoRemark(t *testing.T) {
	assert.Equal(t, "Automatic attendance late reward/punishment", AutoRemark("late"))
	assert.True(t, strings.HasPrefix(AutoRemark("present"), AutoRemarkPrefix))
}
