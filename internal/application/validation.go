package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/example/lab-scheduler/internal/catalog"
	"github.com/example/lab-scheduler/internal/recurrence"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// structErrors runs the struct tag rules and converts failures into a ValidationError
// keyed by the camelCase field names used on the wire.
func structErrors(v any) *ValidationError {
	vErr := &ValidationError{}
	err := validate.Struct(v)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("request", err.Error())
		return vErr
	}
	for _, fe := range fieldErrs {
		vErr.add(wireName(fe.StructField()), fieldMessage(fe))
	}
	return vErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must have at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must have at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

// wireName turns GradeID into gradeId and RecurringEndDate into recurringEndDate.
func wireName(field string) string {
	if strings.HasSuffix(field, "ID") {
		field = strings.TrimSuffix(field, "ID") + "Id"
	}
	runes := []rune(field)
	if len(runes) > 0 {
		runes[0] = unicode.ToLower(runes[0])
	}
	return string(runes)
}

func normalizeBookingInput(input BookingInput) BookingInput {
	input.GradeClass = strings.ToUpper(strings.TrimSpace(input.GradeClass))
	input.TeacherName = strings.TrimSpace(input.TeacherName)
	input.Date = strings.TrimSpace(input.Date)
	input.Content = strings.TrimSpace(input.Content)
	input.Notes = strings.TrimSpace(input.Notes)
	input.RecurringFrequency = strings.ToLower(strings.TrimSpace(input.RecurringFrequency))
	input.RecurringEndDate = strings.TrimSpace(input.RecurringEndDate)
	return input
}

// buildBooking validates input against the tag rules and the school catalog and
// returns the booking it describes. An end date before the booking date is valid;
// it simply produces no weekly repetitions.
func buildBooking(input BookingInput) (Booking, *ValidationError) {
	input = normalizeBookingInput(input)
	vErr := structErrors(input)

	booking := Booking{
		GradeID:     input.GradeID,
		GradeClass:  input.GradeClass,
		TeacherName: input.TeacherName,
		TimeSlotID:  input.TimeSlotID,
		EquipmentID: input.EquipmentID,
		Content:     input.Content,
		Notes:       input.Notes,
		IsRecurring: input.IsRecurring,
	}

	grade, gradeOK := catalog.GradeByID(input.GradeID)
	if input.GradeID != 0 && !gradeOK {
		vErr.add("gradeId", "unknown grade")
	}
	if gradeOK {
		booking.Shift = grade.Shift
		if input.GradeClass != "" && !grade.HasClass(input.GradeClass) {
			vErr.add("gradeClass", fmt.Sprintf("class %s does not exist in %s", input.GradeClass, grade.Name))
		}
	}

	slot, slotOK := catalog.TimeSlotByID(input.TimeSlotID)
	if input.TimeSlotID != 0 && !slotOK {
		vErr.add("timeSlotId", "unknown time slot")
	}
	if gradeOK && slotOK && slot.Shift != grade.Shift {
		vErr.add("timeSlotId", fmt.Sprintf("time slot belongs to the %s shift but %s studies in the %s shift", slot.Shift, grade.Name, grade.Shift))
	}

	if _, ok := catalog.EquipmentByID(input.EquipmentID); input.EquipmentID != 0 && !ok {
		vErr.add("equipmentId", "unknown equipment")
	}

	if date, err := catalog.ParseDate(input.Date); err == nil {
		booking.Date = date
	} else if input.Date != "" {
		vErr.add("date", "must be a date in YYYY-MM-DD format")
	}

	if freq, err := recurrence.ParseFrequency(input.RecurringFrequency); err == nil {
		booking.RecurringFrequency = freq
	} else {
		vErr.add("recurringFrequency", "must be one of: none, weekly")
	}

	if input.RecurringEndDate != "" {
		if end, err := catalog.ParseDate(input.RecurringEndDate); err == nil {
			booking.RecurringEndDate = &end
		} else {
			vErr.add("recurringEndDate", "must be a date in YYYY-MM-DD format")
		}
	}

	return booking, vErr
}

// inputFromBooking is the inverse of buildBooking, used to re-validate merged updates.
func inputFromBooking(b Booking) BookingInput {
	input := BookingInput{
		GradeID:            b.GradeID,
		GradeClass:         b.GradeClass,
		TeacherName:        b.TeacherName,
		TimeSlotID:         b.TimeSlotID,
		EquipmentID:        b.EquipmentID,
		Content:            b.Content,
		Notes:              b.Notes,
		IsRecurring:        b.IsRecurring,
		RecurringFrequency: string(b.RecurringFrequency),
	}
	if !b.Date.IsZero() {
		input.Date = b.Date.String()
	}
	if b.RecurringEndDate != nil {
		input.RecurringEndDate = b.RecurringEndDate.String()
	}
	return input
}

func applyPatch(input BookingInput, patch BookingPatch) BookingInput {
	if patch.GradeID != nil {
		input.GradeID = *patch.GradeID
	}
	if patch.GradeClass != nil {
		input.GradeClass = *patch.GradeClass
	}
	if patch.TeacherName != nil {
		input.TeacherName = *patch.TeacherName
	}
	if patch.Date != nil {
		input.Date = *patch.Date
	}
	if patch.TimeSlotID != nil {
		input.TimeSlotID = *patch.TimeSlotID
	}
	if patch.EquipmentID != nil {
		input.EquipmentID = *patch.EquipmentID
	}
	if patch.Content != nil {
		input.Content = *patch.Content
	}
	if patch.Notes != nil {
		input.Notes = *patch.Notes
	}
	return input
}

func normalizeUserInput(input UserInput) UserInput {
	input.Username = strings.TrimSpace(input.Username)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Role = strings.TrimSpace(input.Role)
	input.AssignedClass = strings.ToUpper(strings.TrimSpace(input.AssignedClass))
	return input
}
