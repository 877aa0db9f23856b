package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the appointment routes. noteWriters guard the note
// create and update routes and may be empty.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, noteWriters ...gin.HandlerFunc) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/available-slots", h.AvailableSlots)
		appointments.POST("", h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.EditAppointment)
		appointments.DELETE("/:id", h.CancelAppointment)

		notes := appointments.Group("/:id/notes")
		notes.GET("", h.GetNote)
		notes.POST("", append(noteWriters, h.AttachNote)...)
		notes.PUT("", append(noteWriters, h.UpdateNote)...)
	}
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err, appointment.MsgMissingFields)
		return
	}

	apt, err := h.service.Book(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewMessageResponse("Appointment booked successfully", apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	patientID, ok := handler.QueryID(c, "patient_id")
	if !ok {
		return
	}
	doctorID, ok := handler.QueryID(c, "doctor_id")
	if !ok {
		return
	}

	filters := model.AppointmentFilters{
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    model.AppointmentStatus(c.Query("status")),
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) EditAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err, "")
		return
	}

	apt, err := h.service.Edit(c.Request.Context(), id, req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Appointment updated successfully", apt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Appointment cancelled successfully", apt))
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	doctorID := c.Query("doctor_id")
	day := c.Query("date")
	if doctorID == "" || day == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("doctor_id and date are required"))
		return
	}
	id, err := uuid.Parse(doctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor_id"))
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), id, day)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) AttachNote(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	var req model.DoctorNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err, "")
		return
	}

	note, err := h.service.AttachNote(c.Request.Context(), id, req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewMessageResponse("Doctor notes added successfully", note))
}

func (h *Handler) UpdateNote(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	var req model.DoctorNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err, "")
		return
	}

	note, err := h.service.UpdateNote(c.Request.Context(), id, req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Doctor notes updated successfully", note))
}

func (h *Handler) GetNote(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}

	note, err := h.service.GetNote(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(note))
}
