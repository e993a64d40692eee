package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/normalizer"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// ReservationService is the workflow the handlers drive.  It is satisfied by
// *service.ReservationService.
type ReservationService interface {
	List(ctx context.Context) []model.Reservation
	Get(ctx context.Context, id uint64) (model.Reservation, error)
	Create(ctx context.Context, raw normalizer.Document) (model.Reservation, error)
	Update(ctx context.Context, id uint64, raw normalizer.Document) (model.Reservation, error)
	Patch(ctx context.Context, id uint64, raw normalizer.Document) (model.Reservation, error)
	Delete(ctx context.Context, id uint64) (model.Reservation, error)
}

// maxBodyBytes caps how much of a request body is read.
const maxBodyBytes = 1 << 20

// ReservationHandler exposes the reservation collection over HTTP.  Error
// bodies are {"error": message}; single-record writes answer with
// {"message": text, "data": record}.
type ReservationHandler struct {
	svc ReservationService
	log *slog.Logger
}

// NewReservationHandler constructs a ReservationHandler and panics if the
// service is nil.
func NewReservationHandler(svc ReservationService, log *slog.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, log: log}
}

// List handles GET /reservations and returns the bare list.
func (h *ReservationHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.List(c.Request().Context()))
}

// Get handles GET /reservations/:id and returns the bare record.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := reservationID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Create handles POST /reservations.  The body may use nested contact and
// valid_id objects or the flattened form fields; a body that is not a JSON
// object is treated as empty and rejected by validation.
func (h *ReservationHandler) Create(c echo.Context) error {
	raw := h.readBody(c)
	rec, err := h.svc.Create(c.Request().Context(), raw)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Reservation added successfully!",
		"data":    rec,
	})
}

// Update handles PUT /reservations/:id.
func (h *ReservationHandler) Update(c echo.Context) error {
	return h.write(c, h.svc.Update)
}

// Patch handles PATCH /reservations/:id.
func (h *ReservationHandler) Patch(c echo.Context) error {
	return h.write(c, h.svc.Patch)
}

func (h *ReservationHandler) write(c echo.Context, apply func(context.Context, uint64, normalizer.Document) (model.Reservation, error)) error {
	id, ok := reservationID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	raw := h.readBody(c)
	rec, err := apply(c.Request().Context(), id, raw)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Reservation updated successfully!",
		"data":    rec,
	})
}

// Delete handles DELETE /reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, ok := reservationID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	rec, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Reservation %d deleted successfully!", id),
		"data":    rec,
	})
}

// readBody returns the decoded request body, or an empty document when it
// cannot be read.
func (h *ReservationHandler) readBody(c echo.Context) normalizer.Document {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		h.log.Warn("reading request body failed", "err", err)
		return normalizer.Document{}
	}
	h.log.Debug("received reservation payload", "method", c.Request().Method, "path", c.Request().URL.Path, "bytes", len(body))
	return normalizer.Decode(body)
}

// fail converts service errors into responses.  Validation and lookup
// failures are the client's; anything else is logged and hidden.
func (h *ReservationHandler) fail(c echo.Context, err error) error {
	var ve *normalizer.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Reservation not found"})
	}
	h.log.Error("reservation request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save reservations"})
}

func reservationID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
