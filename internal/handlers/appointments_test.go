package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

func TestGetAppointmentByIDRejectsMalformedID(t *testing.T) {
	c, w := testContext(http.MethodGet, "/api/v1/appointments/not-a-uuid")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	NewAppointmentHandler(nil).GetAppointmentByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid id format")
}

func TestRescheduleRejectsMalformedID(t *testing.T) {
	c, w := testContext(http.MethodPatch, "/api/v1/appointments/123/reschedule")
	c.Params = gin.Params{{Key: "id", Value: "123"}}

	NewAppointmentHandler(nil).RescheduleAppointment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid id format")
}

func TestGetAvailableSlotsRejectsMalformedDoctorID(t *testing.T) {
	c, w := testContext(http.MethodGet, "/api/v1/appointments/available-slots?doctorId=not-a-uuid&date=2025-03-10")

	NewAppointmentHandler(nil).GetAvailableSlots(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid id format")
}
