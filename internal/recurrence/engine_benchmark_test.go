package recurrence

import (
	"testing"

	"github.com/example/lab-scheduler/internal/catalog"
)

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine(0)
	start := catalog.MustParseDate("2024-02-05")
	until := start.AddDays(7 * (DefaultMaxOccurrences - 1))
	rule := Rule{
		Frequency: FrequencyWeekly,
		Start:     start,
		Until:     &until,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		occurrences, err := engine.Expand(rule)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != DefaultMaxOccurrences {
			b.Fatalf("expected %d occurrences, got %d", DefaultMaxOccurrences, len(occurrences))
		}
	}
}
