package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/catalog"
)

type gradeDTO struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Classes []string `json:"classes"`
	Shift   string   `json:"shift"`
	Breaks  []string `json:"breaks"`
}

type timeSlotDTO struct {
	ID    int    `json:"id"`
	Shift string `json:"shift"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type equipmentDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type breakWindowDTO struct {
	Label    string `json:"label"`
	Shift    string `json:"shift"`
	Start    string `json:"start"`
	End      string `json:"end"`
	GradeIDs []int  `json:"gradeIds"`
}

type catalogResponse struct {
	Grades       []gradeDTO       `json:"grades"`
	TimeSlots    []timeSlotDTO    `json:"timeSlots"`
	Equipment    []equipmentDTO   `json:"equipment"`
	BreakWindows []breakWindowDTO `json:"breakWindows"`
}

// Catalog returns the fixed school data the booking form is built from.
func Catalog(c echo.Context) error {
	var resp catalogResponse
	for _, g := range catalog.Grades() {
		breaks := []string{}
		for _, w := range catalog.BreakWindowsForGrade(g.ID) {
			breaks = append(breaks, w.Label)
		}
		resp.Grades = append(resp.Grades, gradeDTO{ID: g.ID, Name: g.Name, Classes: g.Classes, Shift: string(g.Shift), Breaks: breaks})
	}
	for _, s := range catalog.TimeSlots() {
		resp.TimeSlots = append(resp.TimeSlots, timeSlotDTO{ID: s.ID, Shift: string(s.Shift), Start: s.Start, End: s.End})
	}
	for _, e := range catalog.AllEquipment() {
		resp.Equipment = append(resp.Equipment, equipmentDTO{ID: e.ID, Name: e.Name})
	}
	for _, shift := range []catalog.Shift{catalog.ShiftMorning, catalog.ShiftAfternoon, catalog.ShiftNight} {
		for _, w := range catalog.BreakWindowsForShift(shift) {
			resp.BreakWindows = append(resp.BreakWindows, breakWindowDTO{Label: w.Label, Shift: string(w.Shift), Start: w.Start, End: w.End, GradeIDs: w.GradeIDs})
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers 200 when storage responds and 503 otherwise.
func Health(storage Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if storage != nil {
			if err := storage.Ping(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
