package testfixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockStartsAtReferenceFriday(t *testing.T) {
	clock := NewClock(time.Time{})

	assert.Equal(t, ReferenceTime(), clock.Now())
	assert.Equal(t, time.Friday, clock.Now().Weekday())
}

func TestClockWalksSchoolDays(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	clock := NewClock(time.Time{})
	now := clock.NowFunc()

	assert.Equal(t, "2024-03-01", clock.Today(saoPaulo))

	clock.AdvanceDays(3)
	assert.Equal(t, "2024-03-04", clock.Today(nil))
	assert.Equal(t, time.Monday, now().Weekday())

	// 15:00 UTC plus ten hours is already Tuesday in UTC but still Monday in São Paulo.
	clock.Advance(10 * time.Hour)
	assert.Equal(t, "2024-03-05", clock.Today(nil))
	assert.Equal(t, "2024-03-04", clock.Today(saoPaulo))
}

func TestNilClockFallsBackToWallTime(t *testing.T) {
	var clock *Clock
	before := time.Now()

	assert.False(t, clock.NowFunc()().Before(before))
}

func TestIDGeneratorSequence(t *testing.T) {
	users := NewIDGenerator("user")
	next := users.NextFunc()

	assert.Equal(t, "user-1", next())
	assert.Equal(t, "user-2", users.Next())
	assert.Equal(t, "id-1", NewIDGenerator("").Next())
	assert.Equal(t, "", (*IDGenerator)(nil).NextFunc()())
}
