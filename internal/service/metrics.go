package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed",
		},
	)

	orderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order status transitions by outcome",
		},
		[]string{"from", "to", "result"},
	)

	stockClampsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_stock_clamps_total",
			Help: "Stock decrements that would have gone below zero",
		},
	)

	reviewWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_review_writes_total",
			Help: "Review writes by operation and result",
		},
		[]string{"op", "result"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
