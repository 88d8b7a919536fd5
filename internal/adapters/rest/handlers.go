package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"search-analytics-service/internal/adapters/notifier"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"search-analytics-service/internal/core/port/usecases_port"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxBodyBytes      = 1 << 20
	keepAliveInterval = 15 * time.Second
)

// NotificationHub is the stream registry of the SSE notifier.
type NotificationHub interface {
	AddClient(userID uuid.UUID) notifier.ClientChannel
	RemoveClient(userID uuid.UUID, ch notifier.ClientChannel)
}

// UseCases groups the operations exposed over HTTP.
type UseCases struct {
	Search            usecases_port.SearchPropertiesUseCase
	BookingWindow     usecases_port.GetBookingWindowAnalysisUseCase
	Performance       usecases_port.GetPropertyPerformanceUseCase
	CheckAvailability usecases_port.CheckAvailabilityUseCase
	CreateBooking     usecases_port.CreateBookingUseCase
	GetBooking        usecases_port.GetBookingByIDUseCase
	ConfirmBooking    usecases_port.ConfirmBookingUseCase
	CancelBooking     usecases_port.CancelBookingUseCase
}

type Handlers struct {
	uc        UseCases
	hub       NotificationHub
	keepAlive time.Duration
}

func NewHandlers(uc UseCases, hub NotificationHub) *Handlers {
	return &Handlers{uc: uc, hub: hub, keepAlive: keepAliveInterval}
}

func (h *Handlers) SearchProperties(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SearchProperties"})

	var req SearchPropertiesRequest
	if !decodeBody(w, r, logger, &req) {
		return
	}
	if err := validateRequest(req); err != nil {
		writeUseCaseError(w, logger, err)
		return
	}
	query, err := req.toQuery()
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}

	page, err := h.uc.Search.Execute(r.Context(), query)
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toPaginatedPropertiesResponse(page))
}

func (h *Handlers) GetBookingWindow(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetBookingWindow"})

	propertyID, ok := pathID(w, r, logger, "propertyID")
	if !ok {
		return
	}
	q := r.URL.Query()
	checkInRange, err := optionalRange("from", q.Get("from"), q.Get("to"))
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}

	stat, err := h.uc.BookingWindow.Execute(r.Context(), propertyID, checkInRange)
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toBookingWindowResponse(stat))
}

func (h *Handlers) GetPropertyPerformance(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetPropertyPerformance"})

	propertyID, ok := pathID(w, r, logger, "propertyID")
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("startDate") == "" || q.Get("endDate") == "" {
		writeUseCaseError(w, logger, domain.NewValidationError("startDate", "startDate and endDate are required"))
		return
	}
	period, err := domain.ParseDateRange(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}

	summary, err := h.uc.Performance.Execute(r.Context(), propertyID, period)
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toPerformanceResponse(summary))
}

func (h *Handlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CheckAvailability"})

	unitID, ok := pathID(w, r, logger, "unitID")
	if !ok {
		return
	}
	q := r.URL.Query()
	stay, err := domain.ParseDateRange(q.Get("checkIn"), q.Get("checkOut"))
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}

	available, err := h.uc.CheckAvailability.Execute(r.Context(), unitID, stay)
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, AvailabilityResponse{
		UnitID:    unitID.String(),
		CheckIn:   stay.Start.Format(domain.DateLayout),
		CheckOut:  stay.End.Format(domain.DateLayout),
		Available: available,
	})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateBooking"})

	var req CreateBookingRequest
	if !decodeBody(w, r, logger, &req) {
		return
	}
	if err := validateRequest(req); err != nil {
		writeUseCaseError(w, logger, err)
		return
	}
	bookingReq, err := req.toDomain()
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}

	booking, err := h.uc.CreateBooking.Execute(r.Context(), bookingReq)
	if err != nil {
		writeUseCaseError(w, logger, err)
		return
	}
	logger.Info("Booking created", port.Fields{"booking_id": booking.ID.String()})
	RespondWithJSON(w, http.StatusCreated, toBookingResponse(booking))
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, "GetBooking", h.uc.GetBooking)
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, "ConfirmBooking", h.uc.ConfirmBooking)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, "CancelBooking", h.uc.CancelBooking)
}

// bookingCommand matches every use case that takes only a booking id.
type bookingCommand interface {
	Execute(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
}

func (h *Handlers) bookingAction(w http.ResponseWriter, r *http.Request, name string, uc bookingCommand) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": name})

	bookingID, ok := pathID(w, r, logger, "bookingID")
	if !ok {
		return
	}
	booking, err := uc.Execute(r.Context(), bookingID)
	if err != nil {
		writeUseCaseError(w, logger.WithFields(port.Fields{"booking_id": bookingID.String()}), err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toBookingResponse(booking))
}

// StreamNotifications keeps an SSE stream open for the caller.
func (h *Handlers) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "StreamNotifications"})

	userID, ok := contextkeys.UserIDFromContext(r.Context())
	if !ok {
		logger.Error("User ID in context for SSE subscription invalid or missing", nil, nil)
		WriteJSONError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteJSONError(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}
	handlerLogger := logger.WithFields(port.Fields{"user_id": userID.String()})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := h.hub.AddClient(userID)
	defer h.hub.RemoveClient(userID, clientChan)

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case frame := <-clientChan:
			if _, err := w.Write(frame); err != nil {
				handlerLogger.Error("Error writing to client, closing SSE connection", err, nil)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			// comment lines keep proxies from closing an idle stream
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			handlerLogger.Info("SSE client disconnected", nil)
			return
		}
	}
}

// decodeBody reads a JSON body, rejecting unknown fields and oversized payloads.
func decodeBody(w http.ResponseWriter, r *http.Request, logger port.LoggerPort, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		logger.Warn("Failed to decode request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, logger port.LoggerPort, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid ID format in URL", port.Fields{"param": param, "provided_id": raw})
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s in URL", param))
		return uuid.Nil, false
	}
	return id, true
}
