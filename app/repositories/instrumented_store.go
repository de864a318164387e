package repositories

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quill/app/models"
	"quill/app/query"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_store_operations_total",
			Help: "Store operations by backend, collection, operation and result.",
		},
		[]string{"backend", "collection", "op", "result"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_store_operation_duration_seconds",
			Help:    "Store operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "collection", "op"},
	)
)

// InstrumentedStore records a counter and a latency observation for every
// call on the wrapped store.
type InstrumentedStore[T models.Record] struct {
	next    Store[T]
	backend string
}

func NewInstrumentedStore[T models.Record](next Store[T], backend string) *InstrumentedStore[T] {
	return &InstrumentedStore[T]{next: next, backend: backend}
}

func (s *InstrumentedStore[T]) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	collection := s.next.Collection()
	storeOperationsTotal.WithLabelValues(s.backend, collection, op, result).Inc()
	storeOperationDuration.WithLabelValues(s.backend, collection, op).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStore[T]) Collection() string {
	return s.next.Collection()
}

func (s *InstrumentedStore[T]) FindAll(ctx context.Context) (records []T, err error) {
	defer func(start time.Time) { s.observe("find_all", start, err) }(time.Now())
	return s.next.FindAll(ctx)
}

func (s *InstrumentedStore[T]) FindPage(ctx context.Context, p query.Pagination) (page *query.Page[T], err error) {
	defer func(start time.Time) { s.observe("find_page", start, err) }(time.Now())
	return s.next.FindPage(ctx, p)
}

func (s *InstrumentedStore[T]) FindByID(ctx context.Context, id string) (record T, found bool, err error) {
	defer func(start time.Time) { s.observe("find_by_id", start, err) }(time.Now())
	return s.next.FindByID(ctx, id)
}

func (s *InstrumentedStore[T]) FindByField(ctx context.Context, field, value string) (records []T, err error) {
	defer func(start time.Time) { s.observe("find_by_field", start, err) }(time.Now())
	return s.next.FindByField(ctx, field, value)
}

func (s *InstrumentedStore[T]) Create(ctx context.Context, record T) (created T, err error) {
	defer func(start time.Time) { s.observe("create", start, err) }(time.Now())
	return s.next.Create(ctx, record)
}

func (s *InstrumentedStore[T]) Update(ctx context.Context, id string, patch Patch[T]) (updated T, found bool, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	return s.next.Update(ctx, id, patch)
}

func (s *InstrumentedStore[T]) Delete(ctx context.Context, id string) (removed bool, err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, id)
}

func (s *InstrumentedStore[T]) DeleteByField(ctx context.Context, field, value string) (n int, err error) {
	defer func(start time.Time) { s.observe("delete_by_field", start, err) }(time.Now())
	return s.next.DeleteByField(ctx, field, value)
}

func (s *InstrumentedStore[T]) Exists(ctx context.Context, id string) (found bool, err error) {
	defer func(start time.Time) { s.observe("exists", start, err) }(time.Now())
	return s.next.Exists(ctx, id)
}

func (s *InstrumentedStore[T]) Count(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { s.observe("count", start, err) }(time.Now())
	return s.next.Count(ctx)
}
