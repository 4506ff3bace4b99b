// Package http exposes the lab scheduler over a JSON API built on echo.
//
// Public endpoints:
//   - POST /api/login: exchanges {"username","password"} for a bearer token.
//     Response: {"token","expiresAt","user"}.
//   - GET /api/catalog: grades, time slots, equipment and break windows.
//   - GET /health: storage liveness.
//
// Every other endpoint requires an `Authorization: Bearer <token>` header:
//   - GET /api/schedules plus the /date/:date, /range, /grade/:gradeId,
//     /upcoming, /week, /:id and /:id/series views.
//   - POST /api/schedules creates a booking and, for weekly bookings with an end
//     date, its repetitions in one transaction. The response carries the parent,
//     the children, totalCreated and conflict warnings.
//   - PUT /api/schedules/:id, DELETE /api/schedules/:id and
//     PATCH /api/schedules/:id/complete change one booking.
//   - GET /api/me returns the caller's own account.
//   - GET and POST /api/users, POST /api/push/send-all and
//     POST /api/push/send-test are reserved to administrators.
//
// Field names follow the camelCase wire format of the booking payloads
// (`gradeId`, `timeSlotId`, `recurringEndDate`, ...). Request and response DTOs
// live next to their handlers.
package http
