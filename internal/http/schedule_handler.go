package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/application"
	"github.com/example/lab-scheduler/internal/catalog"
)

type bookingService interface {
	CreateBooking(ctx context.Context, principal access.Principal, input application.BookingInput) (application.CreateBookingResult, error)
	UpdateBooking(ctx context.Context, principal access.Principal, id int64, patch application.BookingPatch) (application.UpdateBookingResult, error)
	DeleteBooking(ctx context.Context, principal access.Principal, id int64) error
	SetCompletion(ctx context.Context, principal access.Principal, id int64, completed bool) (application.Booking, error)
	GetBooking(ctx context.Context, principal access.Principal, id int64) (application.Booking, error)
	ListAll(ctx context.Context, principal access.Principal) ([]application.Booking, error)
	ListByDate(ctx context.Context, principal access.Principal, date catalog.Date) ([]application.Booking, error)
	ListByDateRange(ctx context.Context, principal access.Principal, start, end catalog.Date) ([]application.Booking, error)
	ListByGrade(ctx context.Context, principal access.Principal, gradeID int) ([]application.Booking, error)
	ListUpcoming(ctx context.Context, principal access.Principal, limit int) ([]application.Booking, error)
	ListWeek(ctx context.Context, principal access.Principal, reference catalog.Date) (application.WeekSchedule, error)
	ListSeries(ctx context.Context, principal access.Principal, parentID int64) ([]application.Booking, error)
}

// ScheduleHandler serves the /api/schedules endpoints.
type ScheduleHandler struct {
	service bookingService
	logger  *slog.Logger
}

func NewScheduleHandler(service bookingService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, logger: defaultLogger(logger)}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

// RegisterRoutes mounts the schedule endpoints on g.
func (h *ScheduleHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/date/:date", h.ListByDate)
	g.GET("/range", h.ListByRange)
	g.GET("/grade/:gradeId", h.ListByGrade)
	g.GET("/upcoming", h.ListUpcoming)
	g.GET("/week", h.Week)
	g.GET("/:id", h.Get)
	g.GET("/:id/series", h.Series)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/complete", h.Complete)
}

type scheduleDTO struct {
	ID                 int64     `json:"id"`
	GradeID            int       `json:"gradeId"`
	GradeClass         string    `json:"gradeClass"`
	ClassCode          string    `json:"classCode"`
	TeacherName        string    `json:"teacherName"`
	Date               string    `json:"date"`
	TimeSlotID         int       `json:"timeSlotId"`
	EquipmentID        int       `json:"equipmentId"`
	Content            string    `json:"content"`
	Notes              *string   `json:"notes"`
	Shift              string    `json:"shift"`
	IsCompleted        bool      `json:"isCompleted"`
	IsRecurring        bool      `json:"isRecurring"`
	RecurringFrequency string    `json:"recurringFrequency"`
	RecurringEndDate   *string   `json:"recurringEndDate"`
	RecurringParentID  *int64    `json:"recurringParentId"`
	IsSeriesChild      bool      `json:"isSeriesChild"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toScheduleDTO(b application.Booking) scheduleDTO {
	dto := scheduleDTO{
		ID:                 b.ID,
		GradeID:            b.GradeID,
		GradeClass:         b.GradeClass,
		ClassCode:          catalog.ClassCode(b.GradeID, b.GradeClass),
		TeacherName:        b.TeacherName,
		Date:               b.Date.String(),
		TimeSlotID:         b.TimeSlotID,
		EquipmentID:        b.EquipmentID,
		Content:            b.Content,
		Shift:              string(b.Shift),
		IsCompleted:        b.IsCompleted,
		IsRecurring:        b.IsRecurring,
		RecurringFrequency: string(b.RecurringFrequency),
		RecurringParentID:  b.RecurringParentID,
		IsSeriesChild:      b.IsSeriesChild(),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.Notes != "" {
		notes := b.Notes
		dto.Notes = &notes
	}
	if b.RecurringEndDate != nil {
		end := b.RecurringEndDate.String()
		dto.RecurringEndDate = &end
	}
	return dto
}

func toScheduleDTOs(bookings []application.Booking) []scheduleDTO {
	out := make([]scheduleDTO, len(bookings))
	for i, b := range bookings {
		out[i] = toScheduleDTO(b)
	}
	return out
}

type conflictDTO struct {
	BookingID     int64  `json:"bookingId"`
	WithBookingID int64  `json:"withBookingId"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	TimeSlotID    int    `json:"timeSlotId"`
	EquipmentID   int    `json:"equipmentId"`
}

func toConflictDTOs(warnings []application.ConflictWarning) []conflictDTO {
	out := make([]conflictDTO, len(warnings))
	for i, w := range warnings {
		out[i] = conflictDTO{
			BookingID:     w.BookingID,
			WithBookingID: w.WithBookingID,
			Type:          w.Type,
			Date:          w.Date.String(),
			TimeSlotID:    w.TimeSlotID,
			EquipmentID:   w.EquipmentID,
		}
	}
	return out
}

type createScheduleRequest struct {
	GradeID            int     `json:"gradeId"`
	GradeClass         string  `json:"gradeClass"`
	TeacherName        string  `json:"teacherName"`
	Date               string  `json:"date"`
	TimeSlotID         int     `json:"timeSlotId"`
	EquipmentID        int     `json:"equipmentId"`
	Content            string  `json:"content"`
	Notes              *string `json:"notes"`
	IsRecurring        bool    `json:"isRecurring"`
	RecurringFrequency string  `json:"recurringFrequency"`
	RecurringEndDate   *string `json:"recurringEndDate"`
}

func (r createScheduleRequest) input() application.BookingInput {
	input := application.BookingInput{
		GradeID:            r.GradeID,
		GradeClass:         r.GradeClass,
		TeacherName:        r.TeacherName,
		Date:               r.Date,
		TimeSlotID:         r.TimeSlotID,
		EquipmentID:        r.EquipmentID,
		Content:            r.Content,
		IsRecurring:        r.IsRecurring,
		RecurringFrequency: r.RecurringFrequency,
	}
	if r.Notes != nil {
		input.Notes = *r.Notes
	}
	if r.RecurringEndDate != nil {
		input.RecurringEndDate = *r.RecurringEndDate
	}
	return input
}

type createScheduleResponse struct {
	Schedule     scheduleDTO   `json:"schedule"`
	Repetitions  []scheduleDTO `json:"repetitions"`
	TotalCreated int           `json:"totalCreated"`
	Warnings     []conflictDTO `json:"warnings"`
	Message      string        `json:"message"`
}

type updateScheduleRequest struct {
	GradeID     *int    `json:"gradeId"`
	GradeClass  *string `json:"gradeClass"`
	TeacherName *string `json:"teacherName"`
	Date        *string `json:"date"`
	TimeSlotID  *int    `json:"timeSlotId"`
	EquipmentID *int    `json:"equipmentId"`
	Content     *string `json:"content"`
	Notes       *string `json:"notes"`
	IsCompleted *bool   `json:"isCompleted"`
}

func (r updateScheduleRequest) patch() application.BookingPatch {
	return application.BookingPatch{
		GradeID:     r.GradeID,
		GradeClass:  r.GradeClass,
		TeacherName: r.TeacherName,
		Date:        r.Date,
		TimeSlotID:  r.TimeSlotID,
		EquipmentID: r.EquipmentID,
		Content:     r.Content,
		Notes:       r.Notes,
		IsCompleted: r.IsCompleted,
	}
}

type updateScheduleResponse struct {
	Schedule scheduleDTO   `json:"schedule"`
	Warnings []conflictDTO `json:"warnings"`
}

type completeScheduleRequest struct {
	IsCompleted *bool `json:"isCompleted"`
}

type weekResponse struct {
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Schedules []scheduleDTO `json:"schedules"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *ScheduleHandler) Create(c echo.Context) error {
	var req createScheduleRequest
	if err := c.Bind(&req); err != nil {
		return errBadRequestBody
	}

	ctx := c.Request().Context()
	result, err := h.service.CreateBooking(ctx, principal(c), req.input())
	if err != nil {
		return err
	}

	total := result.TotalCreated()
	message := "schedule created"
	if total > 1 {
		message = fmt.Sprintf("schedule created and repeated for %d weeks", total)
	}
	h.log(ctx, "Create", "booking_id", result.Parent.ID).InfoContext(ctx, "schedule created", "total_created", total, "warnings", len(result.Warnings))

	return c.JSON(http.StatusCreated, createScheduleResponse{
		Schedule:     toScheduleDTO(result.Parent),
		Repetitions:  toScheduleDTOs(result.Children),
		TotalCreated: total,
		Warnings:     toConflictDTOs(result.Warnings),
		Message:      message,
	})
}

func (h *ScheduleHandler) Update(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	var req updateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return errBadRequestBody
	}

	result, err := h.service.UpdateBooking(c.Request().Context(), principal(c), id, req.patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updateScheduleResponse{
		Schedule: toScheduleDTO(result.Booking),
		Warnings: toConflictDTOs(result.Warnings),
	})
}

func (h *ScheduleHandler) Delete(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteBooking(c.Request().Context(), principal(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "schedule deleted"})
}

func (h *ScheduleHandler) Complete(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	var req completeScheduleRequest
	if err := c.Bind(&req); err != nil {
		return errBadRequestBody
	}
	if req.IsCompleted == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "isCompleted must be a boolean")
	}

	booking, err := h.service.SetCompletion(c.Request().Context(), principal(c), id, *req.IsCompleted)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toScheduleDTO(booking))
}

func (h *ScheduleHandler) Get(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	booking, err := h.service.GetBooking(c.Request().Context(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toScheduleDTO(booking))
}

func (h *ScheduleHandler) Series(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	return h.respondList(c, func(ctx context.Context, p access.Principal) ([]application.Booking, error) {
		return h.service.ListSeries(ctx, p, id)
	})
}

func (h *ScheduleHandler) List(c echo.Context) error {
	return h.respondList(c, h.service.ListAll)
}

func (h *ScheduleHandler) ListByDate(c echo.Context) error {
	date, err := dateParam(c.Param("date"), "date")
	if err != nil {
		return err
	}
	return h.respondList(c, func(ctx context.Context, p access.Principal) ([]application.Booking, error) {
		return h.service.ListByDate(ctx, p, date)
	})
}

func (h *ScheduleHandler) ListByRange(c echo.Context) error {
	if c.QueryParam("startDate") == "" || c.QueryParam("endDate") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "startDate and endDate are required")
	}
	start, err := dateParam(c.QueryParam("startDate"), "startDate")
	if err != nil {
		return err
	}
	end, err := dateParam(c.QueryParam("endDate"), "endDate")
	if err != nil {
		return err
	}
	return h.respondList(c, func(ctx context.Context, p access.Principal) ([]application.Booking, error) {
		return h.service.ListByDateRange(ctx, p, start, end)
	})
}

func (h *ScheduleHandler) ListByGrade(c echo.Context) error {
	gradeID, err := strconv.Atoi(c.Param("gradeId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid grade id")
	}
	return h.respondList(c, func(ctx context.Context, p access.Principal) ([]application.Booking, error) {
		return h.service.ListByGrade(ctx, p, gradeID)
	})
}

func (h *ScheduleHandler) ListUpcoming(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	return h.respondList(c, func(ctx context.Context, p access.Principal) ([]application.Booking, error) {
		return h.service.ListUpcoming(ctx, p, limit)
	})
}

func (h *ScheduleHandler) Week(c echo.Context) error {
	var reference catalog.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := dateParam(raw, "date")
		if err != nil {
			return err
		}
		reference = d
	}

	week, err := h.service.ListWeek(c.Request().Context(), principal(c), reference)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, weekResponse{
		Start:     week.Start.String(),
		End:       week.End.String(),
		Schedules: toScheduleDTOs(week.Bookings),
	})
}

func (h *ScheduleHandler) respondList(c echo.Context, list func(context.Context, access.Principal) ([]application.Booking, error)) error {
	bookings, err := list(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toScheduleDTOs(bookings))
}

func bookingID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidBookingID
	}
	return id, nil
}

func dateParam(raw, name string) (catalog.Date, error) {
	d, err := catalog.ParseDate(raw)
	if err != nil {
		return catalog.Date{}, echo.NewHTTPError(http.StatusBadRequest, name+" must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
