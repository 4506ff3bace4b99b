package recurrence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/lab-scheduler/internal/catalog"
)

// Frequency represents supported recurrence intervals.
type Frequency string

const (
	// FrequencyNone marks a booking that does not repeat.
	FrequencyNone Frequency = "none"
	// FrequencyWeekly repeats a booking every 7 days from its first date.
	FrequencyWeekly Frequency = "weekly"
)

// DefaultMaxOccurrences caps a series at two school years of weekly bookings.
const DefaultMaxOccurrences = 104

const daysPerWeek = 7

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrMissingStart indicates the rule has no first date.
var ErrMissingStart = errors.New("recurrence: start date is required")

// ErrTooManyOccurrences indicates the series would exceed the engine's cap.
var ErrTooManyOccurrences = errors.New("recurrence: too many occurrences")

// ParseFrequency accepts "none", "weekly" and the empty string (none).
func ParseFrequency(value string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(value))) {
	case "", FrequencyNone:
		return FrequencyNone, nil
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
}

// Rule describes the recurrence requested for a booking.
type Rule struct {
	Frequency Frequency
	Start     catalog.Date
	Until     *catalog.Date
}

// Occurrence is one dated member of a series. Index 0 is the originating booking.
type Occurrence struct {
	Index int
	Date  catalog.Date
}

// IsParent reports whether the occurrence is the booking that originated the series.
func (o Occurrence) IsParent() bool { return o.Index == 0 }

// Engine expands recurrence rules into occurrences.
type Engine struct {
	maxOccurrences int
}

// NewEngine constructs an Engine that refuses series longer than maxOccurrences.
// A non-positive value selects DefaultMaxOccurrences.
func NewEngine(maxOccurrences int) *Engine {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &Engine{maxOccurrences: maxOccurrences}
}

// MaxOccurrences returns the configured cap, parent included.
func (e *Engine) MaxOccurrences() int {
	if e == nil || e.maxOccurrences <= 0 {
		return DefaultMaxOccurrences
	}
	return e.maxOccurrences
}

// Expand produces the occurrences of a rule.
//
// The engine enforces the following semantics:
//   - The start date is always occurrence zero.
//   - A non-repeating rule, or a weekly rule without an end date, yields only
//     occurrence zero.
//   - Weekly rules step exactly 7 days while the candidate is on or before Until.
//     An end date earlier than the start produces no further occurrences.
//   - A series longer than the cap fails with ErrTooManyOccurrences instead of
//     being truncated.
func (e *Engine) Expand(rule Rule) ([]Occurrence, error) {
	if rule.Start.IsZero() {
		return nil, ErrMissingStart
	}

	freq := rule.Frequency
	if freq == "" {
		freq = FrequencyNone
	}

	parent := Occurrence{Index: 0, Date: rule.Start}

	switch freq {
	case FrequencyNone:
		return []Occurrence{parent}, nil
	case FrequencyWeekly:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, rule.Frequency)
	}

	if rule.Until == nil || rule.Until.Before(rule.Start) {
		return []Occurrence{parent}, nil
	}

	total := rule.Start.DaysUntil(*rule.Until)/daysPerWeek + 1
	if limit := e.MaxOccurrences(); total > limit {
		return nil, fmt.Errorf("%w: %d weekly bookings requested, at most %d allowed", ErrTooManyOccurrences, total, limit)
	}

	occurrences := make([]Occurrence, 0, total)
	occurrences = append(occurrences, parent)
	for candidate := rule.Start.AddDays(daysPerWeek); !candidate.After(*rule.Until); candidate = candidate.AddDays(daysPerWeek) {
		occurrences = append(occurrences, Occurrence{Index: len(occurrences), Date: candidate})
	}

	return occurrences, nil
}
