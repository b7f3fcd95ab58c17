package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"bookline/internal/database"
	"bookline/internal/domain"
	"bookline/internal/metrics"
	"bookline/internal/models"
	"bookline/internal/payment"
	"bookline/internal/service"
)

const webhookRateLimit = 60

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func isValidation(err error) bool {
	var v *domain.ValidationError
	return errors.As(err, &v)
}

// writeDomainError maps rejections and repository sentinels onto HTTP codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var rej *domain.Rejection
	if errors.As(err, &rej) {
		status := http.StatusConflict
		switch rej.Code {
		case domain.CodeScheduleNotFound, domain.CodeBookingNotFound:
			status = http.StatusNotFound
		case domain.CodeUnauthorized:
			status = http.StatusForbidden
		case domain.CodeInvalidDate:
			status = http.StatusBadRequest
		case domain.CodeCapacityCheckTimeout:
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, rej)
		return
	}

	switch {
	case errors.Is(err, database.ErrActivityHasBookings),
		errors.Is(err, database.ErrScheduleHasBookings):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrPackNotFound),
		errors.Is(err, database.ErrProviderNotFound),
		errors.Is(err, database.ErrPaymentNotFound),
		errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_activity")

	var activity models.Activity
	if err := decodeJSON(r, &activity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.activities.CreateActivity(r.Context(), &activity); err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (s *HTTPServer) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_activity")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	activity, err := s.activities.GetActivity(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (s *HTTPServer) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_activity")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	if err := s.activities.DeleteActivity(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *HTTPServer) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_availability")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	availability, err := s.activities.GetAvailability(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

func (s *HTTPServer) handleUpdateAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_availability")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	var availability models.Availability
	if err := decodeJSON(r, &availability); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	availability.ActivityID = id
	if err := s.activities.UpdateAvailability(r.Context(), &availability); err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

func (s *HTTPServer) handleGenerateSchedules(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("generate_schedules")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	type request struct {
		StartDate string            `json:"start_date"`
		EndDate   string            `json:"end_date"`
		Weekdays  []int             `json:"weekdays"`
		Slots     []models.TimeSlot `json:"time_slots"`
	}
	var body request
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}

	count, err := s.schedules.GenerateSchedules(r.Context(), service.GenerateParams{
		ActivityID: id,
		StartDate:  start,
		EndDate:    end,
		Weekdays:   body.Weekdays,
		Slots:      body.Slots,
	})
	if err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"count":   count,
		"message": fmt.Sprintf("Successfully generated %d schedules", count),
	})
}

func (s *HTTPServer) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_schedule")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	var schedule models.Schedule
	if err := decodeJSON(r, &schedule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	schedule.ActivityID = id
	if err := s.schedules.CreateSchedule(r.Context(), &schedule); err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schedule)
}

func (s *HTTPServer) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_schedules")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	schedules, err := s.schedules.SchedulesForDay(r.Context(), id, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (s *HTTPServer) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_schedule")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	if err := s.schedules.DeleteSchedule(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *HTTPServer) handleScheduleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_availability")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	participants := 1
	if raw := r.URL.Query().Get("participants"); raw != "" {
		participants, err = strconv.Atoi(raw)
		if err != nil || participants < 1 {
			writeError(w, http.StatusBadRequest, "invalid participants")
			return
		}
	}

	result, err := s.bookings.CheckAvailability(r.Context(), id, participants)
	if err != nil {
		var rej *domain.Rejection
		// Capacity refusals still carry the counts for display.
		if errors.As(err, &rej) && result != nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"schedule_id":     result.ScheduleID,
				"available_spots": result.AvailableSpots,
				"booked":          result.Booked,
				"can_accommodate": false,
				"code":            rej.Code,
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule_id":     result.ScheduleID,
		"available_spots": result.AvailableSpots,
		"booked":          result.Booked,
		"can_accommodate": true,
	})
}

func (s *HTTPServer) handleCreatePack(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_pack")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	var pack models.Pack
	if err := decodeJSON(r, &pack); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pack.ActivityID = id
	if err := s.packs.CreatePack(r.Context(), &pack); err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pack)
}

func (s *HTTPServer) handleGetActivityPacks(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_activity_packs")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	packs, err := s.packs.GetActivityPacks(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packs": packs})
}

func (s *HTTPServer) handlePackStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("pack_status")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pack id")
		return
	}
	customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	status, err := s.packs.Status(r.Context(), id, customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	type request struct {
		ScheduleID      int64     `json:"schedule_id"`
		CustomerID      int64     `json:"customer_id"`
		Participants    int       `json:"participants"`
		Date            time.Time `json:"date"`
		PackID          *int64    `json:"pack_id"`
		SpecialRequests string    `json:"special_requests"`
		ContactName     string    `json:"contact_name"`
		ContactEmail    string    `json:"contact_email"`
		ContactPhone    string    `json:"contact_phone"`
	}
	var body request
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, payReq, err := s.bookings.CreateBooking(r.Context(), &domain.BookingRequest{
		ScheduleID:      body.ScheduleID,
		CustomerID:      body.CustomerID,
		Participants:    body.Participants,
		Date:            body.Date,
		PackID:          body.PackID,
		SpecialRequests: body.SpecialRequests,
		ContactName:     body.ContactName,
		ContactEmail:    body.ContactEmail,
		ContactPhone:    body.ContactPhone,
	})
	if err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"booking":         booking,
		"payment_request": payReq,
	})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	type request struct {
		ActorID   int64  `json:"actor_id"`
		ActorRole string `json:"actor_role"`
	}
	var body request
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.bookings.CancelBooking(r.Context(), id, body.ActorID, body.ActorRole)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_provider")

	var provider models.Provider
	if err := decodeJSON(r, &provider); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.subscriptions.CreateProvider(r.Context(), &provider); err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, provider)
}

func (s *HTTPServer) handleProviderUsage(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("provider_usage")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}
	usage, err := s.subscriptions.UsageSummary(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *HTTPServer) handleLinkProcessor(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("link_processor")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}
	type request struct {
		Processor string `json:"processor"`
		AccountID string `json:"account_id"`
	}
	var body request
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var kind models.ProcessorKind
	switch body.Processor {
	case "stripe":
		kind = models.ProcessorStripe
	case "lemonsqueezy":
		kind = models.ProcessorLemonSqueezy
	default:
		writeError(w, http.StatusBadRequest, "processor must be stripe or lemonsqueezy")
		return
	}
	if err := s.subscriptions.LinkProcessor(r.Context(), id, kind, body.AccountID); err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"linked": true})
}

func (s *HTTPServer) handlePayfastWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payfast_webhook")

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	allowed, err := s.processed.CheckRateLimit(r.Context(), "webhook:"+host, webhookRateLimit, time.Minute)
	if err == nil && !allowed {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	fields, err := payment.ParseNotification(string(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification body")
		return
	}
	if !s.payfast.ValidateCallback(fields) {
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	if err := s.settlement.HandleCallback(r.Context(), fields); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
