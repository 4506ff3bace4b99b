package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-scheduler/internal/application"
	"github.com/example/lab-scheduler/internal/catalog"
	"github.com/example/lab-scheduler/internal/config"
	"github.com/example/lab-scheduler/internal/notify"
	"github.com/example/lab-scheduler/internal/persistence/memory"
	"github.com/example/lab-scheduler/internal/recurrence"
	"github.com/example/lab-scheduler/internal/testfixtures"
)

func testConfig() config.Config {
	return config.Config{
		Storage:        config.StorageMemory,
		TokenSecret:    "test-secret",
		TokenTTL:       time.Hour,
		Location:       time.UTC,
		MaxOccurrences: 104,
		CacheTTL:       time.Minute,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type apiClient struct {
	t   *testing.T
	app *app
}

func (c apiClient) call(method, path, token string, body any) (int, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.app.router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (c apiClient) login(username, password string) string {
	c.t.Helper()
	status, body := c.call(http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(c.t, http.StatusOK, status, string(body))
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(body, &resp))
	return resp.Token
}

type scheduleView struct {
	ID                int64  `json:"id"`
	Date              string `json:"date"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurringParentID *int64 `json:"recurringParentId"`
}

// runWeeklySeriesScenario drives the API the way the booking form does: an
// administrator registers a teacher, the teacher books three weekly sessions.
func runWeeklySeriesScenario(t *testing.T, store storage) {
	clock := testfixtures.NewClock(time.Time{})
	a := newApp(testConfig(), store, application.NewMemoryQueryCache(time.Minute, 0, clock.NowFunc()), notify.Nop{}, clock.NowFunc(), discardLogger())
	api := apiClient{t: t, app: a}
	ctx := context.Background()

	require.NoError(t, createAdmin(ctx, a.users, options{adminUsername: "admin", adminDisplayName: "Administrator"}, "changeme", discardLogger()))
	adminToken := api.login("admin", "changeme")

	status, body := api.call(http.MethodPost, "/api/users", adminToken, map[string]string{
		"username": "marcia", "password": "secret1", "confirmPassword": "secret1",
		"displayName": "Márcia Santos", "role": "teacher", "assignedClass": "1A",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	teacherToken := api.login("marcia", "secret1")

	status, body = api.call(http.MethodPost, "/api/schedules", teacherToken, map[string]any{
		"gradeId": 1, "gradeClass": "A", "teacherName": "Márcia Santos",
		"date": "2024-03-04", "timeSlotId": 1, "equipmentId": 1, "content": "Digital Literacy",
		"isRecurring": true, "recurringFrequency": "weekly", "recurringEndDate": "2024-03-18",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		Schedule     scheduleView   `json:"schedule"`
		Repetitions  []scheduleView `json:"repetitions"`
		TotalCreated int            `json:"totalCreated"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, 3, created.TotalCreated)
	parentID := created.Schedule.ID

	status, body = api.call(http.MethodGet, "/api/schedules/range?startDate=2024-03-01&endDate=2024-03-31", teacherToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var listed []scheduleView
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 3)
	assert.Equal(t, []string{"2024-03-04", "2024-03-11", "2024-03-18"}, []string{listed[0].Date, listed[1].Date, listed[2].Date})
	assert.True(t, listed[0].IsRecurring)
	assert.Nil(t, listed[0].RecurringParentID)
	for _, child := range listed[1:] {
		assert.False(t, child.IsRecurring)
		require.NotNil(t, child.RecurringParentID)
		assert.Equal(t, parentID, *child.RecurringParentID)
	}

	status, _ = api.call(http.MethodDelete, "/api/schedules/"+itoa(parentID), teacherToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = api.call(http.MethodGet, "/api/schedules/"+itoa(parentID)+"/series", teacherToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var series []scheduleView
	require.NoError(t, json.Unmarshal(body, &series))
	assert.Len(t, series, 2, "children outlive their parent")

	status, _ = api.call(http.MethodPost, "/api/schedules", teacherToken, map[string]any{
		"gradeId": 2, "gradeClass": "A", "teacherName": "Márcia Santos",
		"date": "2024-03-05", "timeSlotId": 1, "equipmentId": 1, "content": "Digital Literacy",
	})
	assert.Equal(t, http.StatusForbidden, status, "teachers book only their own class")

	status, _ = api.call(http.MethodGet, "/api/users", teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestWeeklySeriesScenario_Memory(t *testing.T) {
	runWeeklySeriesScenario(t, memory.New())
}

func TestWeeklySeriesScenario_SQLite(t *testing.T) {
	runWeeklySeriesScenario(t, testfixtures.NewSQLiteHarness(t).Store)
}

func TestRunMigrateOnly(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, run(context.Background(), cfg, options{migrateOnly: true}, discardLogger()))

	cfg.Storage = config.StorageSQLite
	cfg.SQLiteDSN = t.TempDir() + "/labscheduler.db"
	require.NoError(t, run(context.Background(), cfg, options{migrateOnly: true}, discardLogger()))
}

func TestCreateAdminRequiresPassword(t *testing.T) {
	a := newApp(testConfig(), memory.New(), nil, notify.Nop{}, time.Now, discardLogger())
	err := createAdmin(context.Background(), a.users, options{adminUsername: "admin"}, "", discardLogger())
	assert.ErrorContains(t, err, "LABSCHED_ADMIN_PASSWORD")
}

func TestBookingConversionRoundTrip(t *testing.T) {
	date, err := catalog.ParseDate("2024-03-11")
	require.NoError(t, err)
	end, err := catalog.ParseDate("2024-03-18")
	require.NoError(t, err)
	parent := int64(1)

	booking := application.Booking{
		ID: 2, GradeID: 1, GradeClass: "A", TeacherName: "Márcia Santos", Date: date,
		TimeSlotID: 1, EquipmentID: 1, Content: "Digital Literacy", Notes: "bring headphones",
		Shift: catalog.ShiftAfternoon, RecurringFrequency: recurrence.FrequencyWeekly,
		RecurringEndDate: &end, RecurringParentID: &parent,
		CreatedAt: testfixtures.ReferenceTime(), UpdatedAt: testfixtures.ReferenceTime(),
	}
	row := toPersistenceBooking(booking)
	assert.Equal(t, "2024-03-11", row.Date)
	assert.Equal(t, "2024-03-18", *row.RecurringEndDate)
	assert.Equal(t, "bring headphones", *row.Notes)

	back, err := toApplicationBooking(row)
	require.NoError(t, err)
	assert.Equal(t, booking, back)

	row.Date = "11/03/2024"
	_, err = toApplicationBooking(row)
	assert.Error(t, err)

	empty := toPersistenceBooking(application.Booking{Date: date})
	assert.Nil(t, empty.Notes)
	assert.Equal(t, "none", empty.RecurringFrequency)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
