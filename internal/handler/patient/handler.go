package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/with-appointments", h.ListWithAppointments)
		patients.GET("/:id", h.GetPatient)
		patients.DELETE("/:id", h.DeletePatient)

		patients.GET("/:id/history", h.GetHistory)
		patients.POST("/:id/history", h.SaveHistory)
		patients.PUT("/:id/history", h.SaveHistory)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err, patient.MsgRequired)
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewMessageResponse("Patient created successfully", p))
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.List(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) ListWithAppointments(c *gin.Context) {
	doctorID, ok := handler.QueryID(c, "doctor_id")
	if !ok {
		return
	}

	patients, err := h.service.ListWithAppointments(c.Request.Context(), doctorID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Patient deleted successfully", nil))
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	history, err := h.service.GetHistory(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}

func (h *Handler) SaveHistory(c *gin.Context) {
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	var req model.MedicalHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err, "")
		return
	}

	history, err := h.service.SaveHistory(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Medical history saved successfully", history))
}
