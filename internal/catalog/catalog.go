// Package catalog exposes the static reference data of the school: grades and
// their classes, the time slots of each shift, bookable equipment and the break
// windows shown on the weekly schedule.
//
// Every lookup is a pure function over immutable tables. Callers receive copies,
// so mutating a returned value never affects later lookups.
package catalog

import (
	"slices"
	"strings"
)

// Shift groups grades and time slots that operate together.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
)

// ParseShift normalizes a shift name. Unknown names report false.
func ParseShift(value string) (Shift, bool) {
	switch Shift(strings.ToLower(strings.TrimSpace(value))) {
	case ShiftMorning:
		return ShiftMorning, true
	case ShiftAfternoon:
		return ShiftAfternoon, true
	case ShiftNight:
		return ShiftNight, true
	default:
		return "", false
	}
}

// Grade is a year of students with a fixed shift and a set of class letters.
type Grade struct {
	ID      int
	Name    string
	Classes []string
	Shift   Shift
}

// HasClass reports whether the class letter belongs to the grade.
func (g Grade) HasClass(class string) bool {
	return slices.Contains(g.Classes, class)
}

// TimeSlot is a fixed clock interval within a shift.
type TimeSlot struct {
	ID    int
	Shift Shift
	Start string
	End   string
}

// Equipment is a bookable resource.
type Equipment struct {
	ID   int
	Name string
}

// BreakWindow is a recess interval. It is display data only and never affects
// booking validity.
type BreakWindow struct {
	Label    string
	Shift    Shift
	Start    string
	End      string
	GradeIDs []int
}

var grades = []Grade{
	{ID: 1, Name: "1° Ano", Classes: []string{"A", "B", "C"}, Shift: ShiftAfternoon},
	{ID: 2, Name: "2° Ano", Classes: []string{"A", "B", "C"}, Shift: ShiftAfternoon},
	{ID: 3, Name: "3° Ano", Classes: []string{"A", "B"}, Shift: ShiftAfternoon},
	{ID: 4, Name: "4° Ano", Classes: []string{"A", "B"}, Shift: ShiftAfternoon},
	{ID: 5, Name: "5° Ano", Classes: []string{"A", "B"}, Shift: ShiftAfternoon},
	{ID: 6, Name: "6° Ano", Classes: []string{"A", "B"}, Shift: ShiftMorning},
	{ID: 7, Name: "7° Ano", Classes: []string{"A", "B"}, Shift: ShiftMorning},
	{ID: 8, Name: "8° Ano", Classes: []string{"A", "B", "C"}, Shift: ShiftMorning},
	{ID: 9, Name: "9° Ano", Classes: []string{"A", "B", "C"}, Shift: ShiftMorning},
	{ID: 10, Name: "1° EM", Classes: []string{"A", "B"}, Shift: ShiftMorning},
	{ID: 11, Name: "1° EM", Classes: []string{"C", "D"}, Shift: ShiftNight},
	{ID: 12, Name: "2° EM", Classes: []string{"A", "B"}, Shift: ShiftNight},
	{ID: 13, Name: "3° EM", Classes: []string{"A", "B"}, Shift: ShiftNight},
}

var timeSlots = []TimeSlot{
	{ID: 1, Shift: ShiftAfternoon, Start: "13:00", End: "13:50"},
	{ID: 2, Shift: ShiftAfternoon, Start: "13:50", End: "14:40"},
	{ID: 3, Shift: ShiftAfternoon, Start: "15:00", End: "15:50"},
	{ID: 4, Shift: ShiftAfternoon, Start: "15:50", End: "16:40"},
	{ID: 5, Shift: ShiftAfternoon, Start: "16:40", End: "17:30"},
	{ID: 6, Shift: ShiftAfternoon, Start: "17:30", End: "18:20"},
	{ID: 7, Shift: ShiftMorning, Start: "07:00", End: "07:50"},
	{ID: 8, Shift: ShiftMorning, Start: "07:50", End: "08:40"},
	{ID: 9, Shift: ShiftMorning, Start: "08:40", End: "09:30"},
	{ID: 10, Shift: ShiftMorning, Start: "09:50", End: "10:40"},
	{ID: 11, Shift: ShiftMorning, Start: "10:40", End: "11:30"},
	{ID: 12, Shift: ShiftMorning, Start: "11:30", End: "12:20"},
	{ID: 13, Shift: ShiftNight, Start: "18:50", End: "19:35"},
	{ID: 14, Shift: ShiftNight, Start: "19:35", End: "20:20"},
	{ID: 15, Shift: ShiftNight, Start: "20:35", End: "21:20"},
	{ID: 16, Shift: ShiftNight, Start: "21:20", End: "22:05"},
	{ID: 17, Shift: ShiftNight, Start: "22:05", End: "22:50"},
}

var equipment = []Equipment{
	{ID: 1, Name: "Chromebooks"},
	{ID: 2, Name: "Laboratório"},
	{ID: 3, Name: "Tablets"},
	{ID: 4, Name: "Projetor"},
	{ID: 5, Name: "Notebook Positivo"},
}

var breakWindows = []BreakWindow{
	{Label: "afternoon-upper-grades", Shift: ShiftAfternoon, Start: "14:40", End: "15:00", GradeIDs: []int{4, 5}},
	{Label: "afternoon-lower-grades", Shift: ShiftAfternoon, Start: "15:30", End: "15:50", GradeIDs: []int{1, 2, 3}},
	{Label: "morning", Shift: ShiftMorning, Start: "09:30", End: "09:50", GradeIDs: []int{6, 7, 8, 9, 10}},
	{Label: "night", Shift: ShiftNight, Start: "20:20", End: "20:35", GradeIDs: []int{11, 12, 13}},
}

// Grades returns every grade ordered by id.
func Grades() []Grade {
	out := make([]Grade, len(grades))
	for i, g := range grades {
		out[i] = cloneGrade(g)
	}
	return out
}

// GradeByID looks up a grade.
func GradeByID(id int) (Grade, bool) {
	for _, g := range grades {
		if g.ID == id {
			return cloneGrade(g), true
		}
	}
	return Grade{}, false
}

// TimeSlots returns every time slot ordered by id.
func TimeSlots() []TimeSlot {
	return slices.Clone(timeSlots)
}

// TimeSlotByID looks up a time slot.
func TimeSlotByID(id int) (TimeSlot, bool) {
	for _, slot := range timeSlots {
		if slot.ID == id {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

// TimeSlotsForShift returns the slots of a shift in chronological order.
func TimeSlotsForShift(shift Shift) []TimeSlot {
	out := make([]TimeSlot, 0, 6)
	for _, slot := range timeSlots {
		if slot.Shift == shift {
			out = append(out, slot)
		}
	}
	slices.SortFunc(out, func(a, b TimeSlot) int { return strings.Compare(a.Start, b.Start) })
	return out
}

// AllEquipment returns every equipment entry ordered by id.
func AllEquipment() []Equipment {
	return slices.Clone(equipment)
}

// EquipmentByID looks up an equipment entry.
func EquipmentByID(id int) (Equipment, bool) {
	for _, e := range equipment {
		if e.ID == id {
			return e, true
		}
	}
	return Equipment{}, false
}

// BreakWindowsForShift returns the break windows of a shift.
func BreakWindowsForShift(shift Shift) []BreakWindow {
	out := make([]BreakWindow, 0, 2)
	for _, w := range breakWindows {
		if w.Shift == shift {
			out = append(out, cloneBreakWindow(w))
		}
	}
	return out
}

// BreakWindowsForGrade returns the break windows that apply to a grade.
func BreakWindowsForGrade(gradeID int) []BreakWindow {
	var out []BreakWindow
	for _, w := range breakWindows {
		if slices.Contains(w.GradeIDs, gradeID) {
			out = append(out, cloneBreakWindow(w))
		}
	}
	return out
}

func cloneGrade(g Grade) Grade {
	g.Classes = slices.Clone(g.Classes)
	return g
}

func cloneBreakWindow(w BreakWindow) BreakWindow {
	w.GradeIDs = slices.Clone(w.GradeIDs)
	return w
}
