package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor_Boundaries(t *testing.T) {
	tests := []struct {
		points int
		want   DisciplineLevel
	}{
		{100, LevelExcellent},
		{50, LevelExcellent},
		{49, LevelGood},
		{20, LevelGood},
		{19, LevelAverage},
		{0, LevelAverage},
		{-1, LevelNeedsImprovement},
		{-20, LevelNeedsImprovement},
		{-21, LevelPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.points), "points=%d", tt.points)
	}
}

func TestEntry_Apply(t *testing.T) {
	at := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	e := Entry{StudentID: 1, TotalPoints: 3}

	got := e.Apply(-5, at)

	assert.Equal(t, -2, got.TotalPoints)
	assert.Equal(t, at, got.LastUpdated)
	assert.Equal(t, 3, e.TotalPoints)
	assert.Equal(t, LevelNeedsImprovement, got.Level())
}
