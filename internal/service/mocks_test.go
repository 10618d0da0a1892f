package service

import (
	"context"
	"sync"
	"time"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/pkg/kafka"
)

// MockBookingRepository is a mock implementation of BookingRepository
type MockBookingRepository struct {
	CreateFunc          func(ctx context.Context, booking *domain.Booking) error
	GetByIDFunc         func(ctx context.Context, id string) (*domain.Booking, error)
	ExistsConfirmedFunc func(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error)

	mu    sync.Mutex
	calls int
}

func (m *MockBookingRepository) called() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

// Calls returns how many repository methods were invoked
func (m *MockBookingRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	m.called()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, booking)
	}
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.called()
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *MockBookingRepository) ExistsConfirmed(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error) {
	m.called()
	if m.ExistsConfirmedFunc != nil {
		return m.ExistsConfirmedFunc(ctx, venueID, sportID, slotTime)
	}
	return false, nil
}

// MockSlotRepository is a mock implementation of SlotRepository
type MockSlotRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*domain.PersistedSlot, error)
	IsAvailableFunc     func(ctx context.Context, id string) (bool, error)
	MarkUnavailableFunc func(ctx context.Context, id string) error

	mu    sync.Mutex
	calls int
}

func (m *MockSlotRepository) called() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

// Calls returns how many repository methods were invoked
func (m *MockSlotRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSlotRepository) GetByID(ctx context.Context, id string) (*domain.PersistedSlot, error) {
	m.called()
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrSlotNotFound
}

func (m *MockSlotRepository) IsAvailable(ctx context.Context, id string) (bool, error) {
	m.called()
	if m.IsAvailableFunc != nil {
		return m.IsAvailableFunc(ctx, id)
	}
	return true, nil
}

func (m *MockSlotRepository) MarkUnavailable(ctx context.Context, id string) error {
	m.called()
	if m.MarkUnavailableFunc != nil {
		return m.MarkUnavailableFunc(ctx, id)
	}
	return nil
}

// MockCatalogRepository is a mock implementation of CatalogRepository
type MockCatalogRepository struct {
	GetVenueFunc         func(ctx context.Context, id string) (*domain.Venue, error)
	GetSportFunc         func(ctx context.Context, id string) (*domain.Sport, error)
	ListPricingRulesFunc func(ctx context.Context, venueID string) ([]domain.PricingRule, error)
}

func (m *MockCatalogRepository) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	if m.GetVenueFunc != nil {
		return m.GetVenueFunc(ctx, id)
	}
	return &domain.Venue{ID: id, Name: "Test Venue"}, nil
}

func (m *MockCatalogRepository) GetSport(ctx context.Context, id string) (*domain.Sport, error) {
	if m.GetSportFunc != nil {
		return m.GetSportFunc(ctx, id)
	}
	return &domain.Sport{ID: id, Name: "Tennis"}, nil
}

func (m *MockCatalogRepository) ListPricingRules(ctx context.Context, venueID string) ([]domain.PricingRule, error) {
	if m.ListPricingRulesFunc != nil {
		return m.ListPricingRulesFunc(ctx, venueID)
	}
	return nil, nil
}

// MockSlotService is a mock implementation of SlotService
type MockSlotService struct {
	ResolveSlotFunc func(ctx context.Context, ref string) (*domain.Slot, error)
	calls           int
}

func (m *MockSlotService) ResolveSlot(ctx context.Context, ref string) (*domain.Slot, error) {
	m.calls++
	if m.ResolveSlotFunc != nil {
		return m.ResolveSlotFunc(ctx, ref)
	}
	return nil, domain.ErrSlotNotFound
}

// recordingPublisher captures published events on a channel
type recordingPublisher struct {
	events chan *domain.SlotEvent
	err    error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(chan *domain.SlotEvent, 16)}
}

func (p *recordingPublisher) PublishSlotEvent(ctx context.Context, event *domain.SlotEvent) error {
	p.events <- event
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// MockProducer is a mock implementation of MessageProducer
type MockProducer struct {
	ProduceFunc func(ctx context.Context, msg *kafka.Message) error
	messages    []*kafka.Message
	closed      bool
}

func (m *MockProducer) Produce(ctx context.Context, msg *kafka.Message) error {
	m.messages = append(m.messages, msg)
	if m.ProduceFunc != nil {
		return m.ProduceFunc(ctx, msg)
	}
	return nil
}

func (m *MockProducer) Close() { m.closed = true }
