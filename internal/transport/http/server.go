package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medisched/internal/domain"
	"medisched/internal/service/schedules"
	"medisched/internal/store"
)

type scheduleService interface {
	AddSchedule(ctx context.Context, specialistID string, in schedules.ScheduleInput) (domain.ScheduleRecord, error)
	UpdateSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID, in schedules.ScheduleInput) (domain.ScheduleRecord, error)
	DeleteSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID) error
	ListSchedules(ctx context.Context, specialistID string) ([]domain.ScheduleRecord, error)
	Clinics(ctx context.Context) ([]domain.Clinic, error)
	MonthAvailability(ctx context.Context, specialistID string, year int, month time.Month) ([]schedules.DayAvailability, error)
	WindowAvailability(ctx context.Context, specialistID string, from time.Time, days int) ([]schedules.DayAvailability, error)
	AvailableDates(ctx context.Context, specialistID string, from time.Time, days int) ([]time.Time, error)
}

type Server struct {
	svc scheduleService
	log *slog.Logger
}

func NewServer(svc scheduleService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc: svc,
		log: log.With(slog.String("component", "http.schedules")),
	}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	api.GET("/clinics", s.listClinics)

	sp := api.Group("/specialists/:specialistId")
	sp.GET("/schedules", s.listSchedules)
	sp.POST("/schedules", s.addSchedule)
	sp.PUT("/schedules/:scheduleId", s.updateSchedule)
	sp.DELETE("/schedules/:scheduleId", s.deleteSchedule)
	sp.GET("/availability/month", s.monthAvailability)
	sp.GET("/availability/window", s.windowAvailability)
	sp.GET("/availability/dates", s.availableDates)

	return r
}

type scheduleRequest struct {
	ClinicID        string  `json:"clinicId" binding:"required"`
	RoomOrUnit      string  `json:"roomOrUnit" binding:"required"`
	ValidFrom       string  `json:"validFrom" binding:"required"`
	DaysOfWeek      []int16 `json:"daysOfWeek" binding:"required"`
	StartTime       string  `json:"startTime" binding:"required"`
	EndTime         string  `json:"endTime" binding:"required"`
	DurationMinutes int     `json:"durationMinutes" binding:"required"`
}

func (r scheduleRequest) toInput() schedules.ScheduleInput {
	return schedules.ScheduleInput{
		ClinicID:        r.ClinicID,
		RoomOrUnit:      r.RoomOrUnit,
		ValidFrom:       r.ValidFrom,
		DaysOfWeek:      r.DaysOfWeek,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMinutes: r.DurationMinutes,
	}
}

func (s *Server) listClinics(c *gin.Context) {
	log := s.log.With(slog.String("handler", "ListClinics"))

	clinics, err := s.svc.Clinics(c.Request.Context())
	if err != nil {
		s.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clinics": clinics})
}

func (s *Server) listSchedules(c *gin.Context) {
	log := s.log.With(slog.String("handler", "ListSchedules"))

	specialistID := c.Param("specialistId")
	scheds, err := s.svc.ListSchedules(c.Request.Context(), specialistID)
	if err != nil {
		s.respondError(c, log, err)
		return
	}

	log.Debug("schedules listed", slog.String("specialist_id", specialistID), slog.Int("count", len(scheds)))
	c.JSON(http.StatusOK, gin.H{"schedules": scheds})
}

func (s *Server) addSchedule(c *gin.Context) {
	log := s.log.With(slog.String("handler", "AddSchedule"))

	specialistID := c.Param("specialistId")
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request body", slog.Any("err", err), slog.String("specialist_id", specialistID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	rec, err := s.svc.AddSchedule(c.Request.Context(), specialistID, req.toInput())
	if err != nil {
		s.respondError(c, log, err)
		return
	}

	log.Info("schedule created",
		slog.String("schedule_id", rec.ID.String()),
		slog.String("specialist_id", rec.SpecialistID),
		slog.String("clinic_id", rec.ClinicID),
	)
	c.JSON(http.StatusCreated, gin.H{"schedule": rec})
}

func (s *Server) updateSchedule(c *gin.Context) {
	log := s.log.With(slog.String("handler", "UpdateSchedule"))

	specialistID := c.Param("specialistId")
	scheduleID, ok := s.parseScheduleID(c, log)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request body", slog.Any("err", err), slog.String("specialist_id", specialistID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	rec, err := s.svc.UpdateSchedule(c.Request.Context(), specialistID, scheduleID, req.toInput())
	if err != nil {
		s.respondError(c, log, err)
		return
	}

	log.Info("schedule updated",
		slog.String("schedule_id", rec.ID.String()),
		slog.String("specialist_id", rec.SpecialistID),
	)
	c.JSON(http.StatusOK, gin.H{"schedule": rec})
}

func (s *Server) deleteSchedule(c *gin.Context) {
	log := s.log.With(slog.String("handler", "DeleteSchedule"))

	specialistID := c.Param("specialistId")
	scheduleID, ok := s.parseScheduleID(c, log)
	if !ok {
		return
	}

	if err := s.svc.DeleteSchedule(c.Request.Context(), specialistID, scheduleID); err != nil {
		s.respondError(c, log, err)
		return
	}

	log.Info("schedule deleted",
		slog.String("schedule_id", scheduleID.String()),
		slog.String("specialist_id", specialistID),
	)
	c.Status(http.StatusNoContent)
}

func (s *Server) monthAvailability(c *gin.Context) {
	log := s.log.With(slog.String("handler", "MonthAvailability"))

	specialistID := c.Param("specialistId")
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be an integer"})
		return
	}

	days, err := s.svc.MonthAvailability(c.Request.Context(), specialistID, year, time.Month(month))
	if err != nil {
		s.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (s *Server) windowAvailability(c *gin.Context) {
	log := s.log.With(slog.String("handler", "WindowAvailability"))

	specialistID := c.Param("specialistId")
	from, days, ok := parseWindow(c)
	if !ok {
		return
	}

	projection, err := s.svc.WindowAvailability(c.Request.Context(), specialistID, from, days)
	if err != nil {
		s.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": projection})
}

func (s *Server) availableDates(c *gin.Context) {
	log := s.log.With(slog.String("handler", "AvailableDates"))

	specialistID := c.Param("specialistId")
	from, days, ok := parseWindow(c)
	if !ok {
		return
	}

	dates, err := s.svc.AvailableDates(c.Request.Context(), specialistID, from, days)
	if err != nil {
		s.respondError(c, log, err)
		return
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	c.JSON(http.StatusOK, gin.H{"dates": out})
}

func (s *Server) parseScheduleID(c *gin.Context, log *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("specialist_id", c.Param("specialistId")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "schedule_id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseWindow(c *gin.Context) (time.Time, int, bool) {
	from, err := time.ParseInLocation("2006-01-02", c.Query("from"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a YYYY-MM-DD date"})
		return time.Time{}, 0, false
	}
	days := 30
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return time.Time{}, 0, false
		}
	}
	return from, days, true
}

func (s *Server) respondError(c *gin.Context, log *slog.Logger, err error) {
	var vErr *schedules.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}
	if errors.Is(err, domain.ErrInvalidRange) || errors.Is(err, domain.ErrInvalidTimeFormat) {
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var lockErr *schedules.ScheduleLockedError
	if errors.As(err, &lockErr) {
		log.Info("schedule locked", slog.String("reason", string(lockErr.Reason)))
		c.JSON(http.StatusConflict, gin.H{"error": lockErr.Error(), "reason": string(lockErr.Reason)})
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}

	log.Error("request failed", slog.Any("err", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
