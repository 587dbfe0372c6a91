package visit

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trialops/trialops/internal/domain/participant"
	"github.com/trialops/trialops/internal/platform/auth"
)

type Handler struct {
	svc        *Service
	presignTTL time.Duration
}

func NewHandler(svc *Service, presignTTL time.Duration) *Handler {
	return &Handler{svc: svc, presignTTL: presignTTL}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleCoordinator, auth.RoleInvestigator))
	read.GET("/participants/:id/visits", h.ListByParticipant)
	read.GET("/visits/:id", h.Get)
	read.GET("/visits/:id/options", h.Options)
	read.GET("/master-chart", h.MasterChart)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleCoordinator))
	write.POST("/participants/:id/visits", h.Create)
	write.PUT("/visits/:id/schedule", h.Schedule)
	write.POST("/visits/:id/conclude", h.Conclude)
	write.POST("/visits/:id/conclude-screening", h.ConcludeScreening)
	write.PUT("/visits/:id/voucher", h.UpdateVoucher)
	write.PATCH("/visits/:id/labs", h.ApplyLabs)
	write.POST("/visits/:id/documents/presign", h.PresignUpload)
	write.PUT("/visits/:id/documents/:field", h.AttachDocument)
	write.POST("/visits/:id/extract/echo", h.ExtractEcho)
	write.POST("/visits/:id/extract/labs", h.ExtractLabPanel)
	write.POST("/visits/:id/extract/efficacy", h.ExtractEfficacy)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/participants/:id/visits/:visitId", h.Delete)
	admin.PUT("/visits/:id/due-date", h.UpdateDueDate)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, participant.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPredecessorIncomplete),
		errors.Is(err, ErrVisitExists),
		errors.Is(err, ErrAlreadyConcluded),
		errors.Is(err, ErrVoucherUnrecorded),
		errors.Is(err, ErrNotScreening),
		errors.Is(err, ErrVisitOneUndeletable),
		errors.Is(err, participant.ErrAlreadyRandomized):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidVisitNumber),
		errors.Is(err, ErrNoValidDates),
		errors.Is(err, ErrOutsideWindow),
		errors.Is(err, ErrDisallowedWeekday),
		errors.Is(err, ErrOutcomeRequired),
		errors.Is(err, ErrInvalidOutcome),
		errors.Is(err, ErrInvalidVoucherStatus),
		errors.Is(err, ErrWrongParticipant),
		errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrUnknownField),
		errors.Is(err, ErrNoDocument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrExtractionFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func (h *Handler) Create(c echo.Context) error {
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid participant id")
	}
	var body struct {
		VisitNumber int `json:"visit_number"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.Create(c.Request().Context(), participantID, body.VisitNumber)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListByParticipant(c echo.Context) error {
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid participant id")
	}
	visits, err := h.svc.ListByParticipant(c.Request().Context(), participantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, visits)
}

func (h *Handler) Options(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	opts, err := h.svc.Options(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	dates := make([]string, 0, len(opts))
	for _, d := range opts {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"dates": dates})
}

func (h *Handler) Schedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		ScheduledOn string `json:"scheduled_on"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := parseDate(body.ScheduledOn)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_on must be YYYY-MM-DD")
	}
	if err := h.svc.Schedule(c.Request().Context(), id, d); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Conclude(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		VisitDate  string `json:"visit_date"`
		CreateNext int    `json:"create_next"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	nextCreated, err := h.svc.Conclude(c.Request().Context(), id, body.VisitDate, body.CreateNext)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"next_created": nextCreated})
}

func (h *Handler) ConcludeScreening(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Outcome      string `json:"outcome"`
		VoucherGiven *bool  `json:"voucher_given"`
		VisitDate    string `json:"visit_date"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.ConcludeScreening(c.Request().Context(), id, body.Outcome, body.VoucherGiven, body.VisitDate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) UpdateVoucher(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateVoucher(c.Request().Context(), id, body.Status); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateDueDate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		DueDate string `json:"due_date"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := parseDate(body.DueDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "due_date must be YYYY-MM-DD")
	}
	if err := h.svc.UpdateDueDate(c.Request().Context(), id, d); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Delete(c echo.Context) error {
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid participant id")
	}
	visitID, err := uuid.Parse(c.Param("visitId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	if err := h.svc.Delete(c.Request().Context(), participantID, visitID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ApplyLabs(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch map[string]interface{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ApplyLabs(c.Request().Context(), id, patch); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PresignUpload(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Field    string `json:"field"`
		Filename string `json:"filename"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "filename is required")
	}
	url, key, err := h.svc.PresignUpload(c.Request().Context(), id, body.Field, body.Filename, h.presignTTL)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url, "key": key})
}

func (h *Handler) AttachDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Key string `json:"key"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}
	if err := h.svc.AttachDocument(c.Request().Context(), id, c.Param("field"), body.Key); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ExtractEcho(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	lvef, err := h.svc.ExtractEcho(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"echo_lvef": lvef})
}

func (h *Handler) ExtractLabPanel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	values, err := h.svc.ExtractLabPanel(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, values)
}

func (h *Handler) ExtractEfficacy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	values, err := h.svc.ExtractEfficacy(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, values)
}

func (h *Handler) MasterChart(c echo.Context) error {
	rows, err := h.svc.MasterChart(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}
