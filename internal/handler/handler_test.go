package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/dto"
	"github.com/prohmpiriya/sport-slots-booker/internal/feed"
	"github.com/prohmpiriya/sport-slots-booker/pkg/middleware"
)

// MockSlotService is a mock implementation of SlotService for testing
type MockSlotService struct {
	ResolveSlotFunc func(ctx context.Context, ref string) (*domain.Slot, error)
}

func (m *MockSlotService) ResolveSlot(ctx context.Context, ref string) (*domain.Slot, error) {
	if m.ResolveSlotFunc != nil {
		return m.ResolveSlotFunc(ctx, ref)
	}
	return nil, domain.ErrSlotNotFound
}

// MockAvailabilityService is a mock implementation of AvailabilityService for testing
type MockAvailabilityService struct {
	IsBookedFunc    func(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error)
	IsAvailableFunc func(ctx context.Context, slotID string) (bool, error)
	CheckSlotFunc   func(ctx context.Context, slot *domain.Slot) (bool, error)
	hub             *feed.Hub
}

func (m *MockAvailabilityService) IsBooked(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error) {
	if m.IsBookedFunc != nil {
		return m.IsBookedFunc(ctx, venueID, sportID, slotTime)
	}
	return false, nil
}

func (m *MockAvailabilityService) IsAvailable(ctx context.Context, slotID string) (bool, error) {
	if m.IsAvailableFunc != nil {
		return m.IsAvailableFunc(ctx, slotID)
	}
	return true, nil
}

func (m *MockAvailabilityService) CheckSlot(ctx context.Context, slot *domain.Slot) (bool, error) {
	if m.CheckSlotFunc != nil {
		return m.CheckSlotFunc(ctx, slot)
	}
	return true, nil
}

func (m *MockAvailabilityService) Subscribe(venueID, sportID string) *feed.Subscription {
	if m.hub == nil {
		m.hub = feed.NewHub(4, nil)
	}
	return m.hub.Subscribe(venueID, sportID)
}

// MockBookingService is a mock implementation of BookingService for testing
type MockBookingService struct {
	BookSlotFunc      func(ctx context.Context, userID, ref string, contact domain.Contact) (*domain.BookingAttempt, error)
	SubmitBookingFunc func(ctx context.Context, userID string, slot *domain.Slot, contact domain.Contact) (*domain.BookingAttempt, error)
	GetBookingFunc    func(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
}

func (m *MockBookingService) BookSlot(ctx context.Context, userID, ref string, contact domain.Contact) (*domain.BookingAttempt, error) {
	if m.BookSlotFunc != nil {
		return m.BookSlotFunc(ctx, userID, ref, contact)
	}
	return nil, domain.ErrSlotNotFound
}

func (m *MockBookingService) SubmitBooking(ctx context.Context, userID string, slot *domain.Slot, contact domain.Contact) (*domain.BookingAttempt, error) {
	if m.SubmitBookingFunc != nil {
		return m.SubmitBookingFunc(ctx, userID, slot, contact)
	}
	return nil, domain.ErrSlotNotFound
}

func (m *MockBookingService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	if m.GetBookingFunc != nil {
		return m.GetBookingFunc(ctx, bookingID, userID)
	}
	return nil, domain.ErrBookingNotFound
}

const (
	testVenueID   = "0b9f1c2e-6a53-4d8e-9a51-2f0d4c7e8a11"
	testSportID   = "5d3e7a90-1c24-4b6f-8e0a-7c9b2d4f6e22"
	testBookingID = "9a7c5e31-2b4d-4f68-a0c2-e4b6d8f0a133"
)

func testSlot() *domain.Slot {
	return &domain.Slot{
		Ref:       "virtual-ref",
		Kind:      domain.SlotKindVirtual,
		VenueID:   "venue-1",
		SportID:   "sport-1",
		VenueName: "Central Courts",
		SportName: "Tennis",
		Date:      "2025-03-07",
		StartTime: "18:00:00",
		EndTime:   "18:30:00",
		SlotTime:  time.Date(2025, 3, 7, 18, 0, 0, 0, time.UTC),
		Price:     800,
		Available: true,
	}
}

func confirmedAttempt(userID string) *domain.BookingAttempt {
	slot := testSlot()
	attempt := domain.NewBookingAttempt(userID, slot, domain.Contact{})
	_ = attempt.Advance(domain.CommitStateChecking)
	_ = attempt.Advance(domain.CommitStateCommitting)
	_ = attempt.Confirm(domain.NewBooking(userID, slot, domain.Contact{FullName: "A", Phone: "0812345678"}, time.Now()))
	return attempt
}

func setupTestRouter(slots *MockSlotService, availability *MockAvailabilityService, bookings *MockBookingService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	slotHandler := NewSlotHandler(slots, availability)
	bookingHandler := NewBookingHandler(bookings)
	feedHandler := NewFeedHandler(availability, time.Hour)

	withUser := func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	}

	v1 := router.Group("/api/v1")
	v1.GET("/slots/:ref", slotHandler.GetSlot)
	v1.GET("/slots/:ref/availability", slotHandler.GetSlotAvailability)
	v1.GET("/availability", slotHandler.CheckAvailability)
	v1.GET("/feed", feedHandler.Stream)
	v1.POST("/bookings", withUser, bookingHandler.CreateBooking)
	v1.GET("/bookings/:id", withUser, bookingHandler.GetBooking)

	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetSlot(t *testing.T) {
	tests := []struct {
		name         string
		resolveErr   error
		wantStatus   int
		wantCode     string
		wantRedirect bool
	}{
		{"resolved", nil, http.StatusOK, "", false},
		{"malformed", domain.ErrMalformedReference, http.StatusBadRequest, "MALFORMED_REFERENCE", true},
		{"already booked", domain.ErrSlotAlreadyBooked, http.StatusConflict, "SLOT_ALREADY_BOOKED", true},
		{"venue missing", domain.ErrVenueNotFound, http.StatusNotFound, "NOT_FOUND", true},
		{"storage down", domain.ErrTransientIO, http.StatusServiceUnavailable, "TEMPORARILY_UNAVAILABLE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := &MockSlotService{
				ResolveSlotFunc: func(ctx context.Context, ref string) (*domain.Slot, error) {
					if tt.resolveErr != nil {
						return nil, tt.resolveErr
					}
					return testSlot(), nil
				},
			}
			router := setupTestRouter(slots, &MockAvailabilityService{}, &MockBookingService{}, "")

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/slots/some-ref", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.resolveErr == nil {
				var resp dto.SlotResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, int64(800), resp.Price)
				assert.Equal(t, "evening", resp.Session)
				assert.Equal(t, "18:00 - 18:30", resp.DisplayTime)
				assert.Equal(t, "Fri, 07 Mar 2025", resp.DisplayDate)
				return
			}
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantRedirect, resp.Redirect != "")
		})
	}
}

func TestGetSlotAvailability_TakenSlotIsNotAnError(t *testing.T) {
	slots := &MockSlotService{
		ResolveSlotFunc: func(ctx context.Context, ref string) (*domain.Slot, error) {
			return nil, domain.ErrSlotAlreadyBooked
		},
	}
	router := setupTestRouter(slots, &MockAvailabilityService{}, &MockBookingService{}, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/slots/abc/availability", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
}

func TestCheckAvailability(t *testing.T) {
	storageCalls := 0
	availability := &MockAvailabilityService{
		IsBookedFunc: func(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error) {
			storageCalls++
			return slotTime.Hour() == 18, nil
		},
	}
	router := setupTestRouter(&MockSlotService{}, availability, &MockBookingService{}, "")
	ids := "venue_id=" + testVenueID + "&sport_id=" + testSportID

	tests := []struct {
		name          string
		query         string
		wantStatus    int
		wantAvailable bool
	}{
		{"booked", ids + "&slot_time=2025-03-07T18:00:00Z", http.StatusOK, false},
		{"free", ids + "&slot_time=2025-03-07T19:00:00Z", http.StatusOK, true},
		{"missing sport", "venue_id=" + testVenueID + "&slot_time=2025-03-07T19:00:00Z", http.StatusBadRequest, false},
		{"bad time", ids + "&slot_time=tonight", http.StatusBadRequest, false},
		{"venue not a uuid", "venue_id=abc&sport_id=" + testSportID + "&slot_time=2025-03-07T19:00:00Z", http.StatusBadRequest, false},
		{"sport not a uuid", "venue_id=" + testVenueID + "&sport_id=abc&slot_time=2025-03-07T19:00:00Z", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/availability?"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp dto.AvailabilityResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantAvailable, resp.Available)
				return
			}
			assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
		})
	}
	assert.Equal(t, 2, storageCalls, "rejected queries never reach storage")
}

func postBooking(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBooking_Success(t *testing.T) {
	var gotContact domain.Contact
	bookings := &MockBookingService{
		BookSlotFunc: func(ctx context.Context, userID, ref string, contact domain.Contact) (*domain.BookingAttempt, error) {
			gotContact = contact
			return confirmedAttempt(userID), nil
		},
	}
	router := setupTestRouter(&MockSlotService{}, &MockAvailabilityService{}, bookings, "user-1")

	w := postBooking(router, dto.CreateBookingRequest{SlotRef: "virtual-ref", FullName: "Somchai", Phone: "0812345678"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp dto.CreateBookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.State)
	assert.Equal(t, "user-1", resp.Booking.UserID)
	assert.Empty(t, resp.Warning)
	assert.Equal(t, "Somchai", gotContact.FullName)
}

func TestCreateBooking_FlagInconsistencyStillCreated(t *testing.T) {
	bookings := &MockBookingService{
		BookSlotFunc: func(ctx context.Context, userID, ref string, contact domain.Contact) (*domain.BookingAttempt, error) {
			return confirmedAttempt(userID), domain.ErrSlotFlagInconsistent
		},
	}
	router := setupTestRouter(&MockSlotService{}, &MockAvailabilityService{}, bookings, "user-1")

	w := postBooking(router, dto.CreateBookingRequest{SlotRef: "ref", FullName: "A", Phone: "0812345678"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp dto.CreateBookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Warning)
	assert.NotNil(t, resp.Booking)
}

func TestCreateBooking_Errors(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       interface{}
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no user", "", dto.CreateBookingRequest{SlotRef: "r"}, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing slot ref", "user-1", map[string]string{"full_name": "A"}, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"short phone", "user-1", dto.CreateBookingRequest{SlotRef: "r"}, domain.ErrInvalidPhone, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", "user-1", dto.CreateBookingRequest{SlotRef: "r"}, domain.ErrSlotConflict, http.StatusConflict, "SLOT_CONFLICT"},
		{"already booked", "user-1", dto.CreateBookingRequest{SlotRef: "r"}, domain.ErrSlotAlreadyBooked, http.StatusConflict, "SLOT_ALREADY_BOOKED"},
		{"malformed", "user-1", dto.CreateBookingRequest{SlotRef: "r"}, domain.ErrMalformedReference, http.StatusBadRequest, "MALFORMED_REFERENCE"},
		{"transient", "user-1", dto.CreateBookingRequest{SlotRef: "r"}, errors.Join(domain.ErrTransientIO, errors.New("reset")), http.StatusServiceUnavailable, "TEMPORARILY_UNAVAILABLE"},
		{"unknown", "user-1", dto.CreateBookingRequest{SlotRef: "r"}, errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := &MockBookingService{
				BookSlotFunc: func(ctx context.Context, userID, ref string, contact domain.Contact) (*domain.BookingAttempt, error) {
					return nil, tt.err
				},
			}
			router := setupTestRouter(&MockSlotService{}, &MockAvailabilityService{}, bookings, tt.userID)

			w := postBooking(router, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestGetBooking(t *testing.T) {
	bookings := &MockBookingService{
		GetBookingFunc: func(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
			if bookingID == testBookingID && userID == "owner" {
				return &domain.Booking{ID: testBookingID, UserID: "owner", Status: domain.BookingStatusConfirmed}, nil
			}
			return nil, domain.ErrBookingNotFound
		},
	}

	owner := setupTestRouter(&MockSlotService{}, &MockAvailabilityService{}, bookings, "owner")
	w := httptest.NewRecorder()
	owner.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+testBookingID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	stranger := setupTestRouter(&MockSlotService{}, &MockAvailabilityService{}, bookings, "stranger")
	w = httptest.NewRecorder()
	stranger.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+testBookingID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BOOKING_NOT_FOUND", decodeError(t, w).Code)
}

func TestGetBooking_MalformedIDIsNotFound(t *testing.T) {
	lookups := 0
	bookings := &MockBookingService{
		GetBookingFunc: func(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
			lookups++
			return nil, errors.Join(domain.ErrTransientIO, errors.New("invalid input syntax for type uuid"))
		},
	}
	router := setupTestRouter(&MockSlotService{}, &MockAvailabilityService{}, bookings, "owner")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/abc", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BOOKING_NOT_FOUND", decodeError(t, w).Code)
	assert.Zero(t, lookups)
}

// closeNotifyingRecorder lets gin's Stream run against a recorder
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestFeedStream(t *testing.T) {
	hub := feed.NewHub(4, nil)
	availability := &MockAvailabilityService{hub: hub}
	router := setupTestRouter(&MockSlotService{}, availability, &MockBookingService{}, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed?venue_id="+strings.ToUpper(testVenueID)+"&sport_id="+testSportID, nil).WithContext(ctx)
	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(domain.SlotEvent{ID: "e1", Type: domain.SlotEventBookingConfirmed, VenueID: testVenueID, SportID: testSportID})
	hub.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"), w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(body, "event:booking.confirmed"), body)
	assert.True(t, strings.Contains(body, `"id":"e1"`), body)
}

func TestFeedStream_RequiresTopic(t *testing.T) {
	router := setupTestRouter(&MockSlotService{}, &MockAvailabilityService{}, &MockBookingService{}, "")

	for _, query := range []string{
		"venue_id=" + testVenueID,
		"venue_id=abc&sport_id=" + testSportID,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/feed?"+query, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
	}{
		{"all healthy", map[string]HealthChecker{"database": stubChecker{}, "redis": stubChecker{}}, http.StatusOK},
		{"redis down", map[string]HealthChecker{"database": stubChecker{}, "redis": stubChecker{err: errors.New("refused")}}, http.StatusServiceUnavailable},
		{"nil skipped", map[string]HealthChecker{"database": stubChecker{}, "redis": nil}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks)
			router := gin.New()
			router.GET("/health", h.Health)
			router.GET("/ready", h.Ready)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, w.Code)

			w = httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
