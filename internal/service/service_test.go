package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/event"
	memmedia "github.com/N1kunj1998/ECOMMERCE/internal/media/memory"
	memrepo "github.com/N1kunj1998/ECOMMERCE/internal/repository/memory"
	pkgkafka "github.com/N1kunj1998/ECOMMERCE/pkg/kafka"
)

// --- Test doubles ---

type recordedEvent struct {
	topic string
	event *pkgkafka.Event
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (r *eventRecorder) Publish(_ context.Context, topic string, evt *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic: topic, event: evt})
	return nil
}

func (r *eventRecorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.topic)
	}
	return out
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, folder string, data []byte, contentType string) (domain.Image, error) {
	args := m.Called(ctx, folder, data, contentType)
	return args.Get(0).(domain.Image), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, publicID string) error {
	args := m.Called(ctx, publicID)
	return args.Error(0)
}

// --- Test Helpers ---

type fixture struct {
	products *memrepo.ProductRepository
	orders   *memrepo.OrderRepository
	media    *memmedia.Storage
	events   *eventRecorder
	catalog  *CatalogService
	reviews  *ReviewService
	ledger   *OrderService
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products: memrepo.NewProductRepository(),
		orders:   memrepo.NewOrderRepository(),
		media:    memmedia.New("http://media.test"),
		events:   &eventRecorder{},
	}
	logger := newTestLogger()
	producer := event.NewProducer(f.events, logger)
	f.catalog = NewCatalogService(f.products, f.media, producer, logger)
	f.reviews = NewReviewService(f.products, producer, logger)
	f.ledger = NewOrderService(f.orders, f.products, domain.DefaultPricing(), producer, logger)
	return f
}

// seedProduct stores a product directly in the repository.
func (f *fixture) seedProduct(t *testing.T, id, name, category string, price float64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:          id,
		Name:        name,
		Description: name + " description",
		Price:       price,
		Category:    category,
		Stock:       stock,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func dataURI(contentType, payload string) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString([]byte(payload)))
}
