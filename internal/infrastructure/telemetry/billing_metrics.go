// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BillingMetrics provides business metrics for the invoicing and payment
// pipeline. It tracks payment initiation, completion and refund activity.
type BillingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	paymentInitiatedTotal *Counter
	paymentCompletedTotal *Counter
	paymentAmountTotal    *Counter
	refundCompletedTotal  *Counter
	refundAmountTotal     *Counter
}

// BillingMetricsConfig holds configuration for billing metrics.
type BillingMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBillingMetrics creates a new BillingMetrics instance.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	bm.paymentInitiatedTotal, err = NewCounter(
		cfg.Meter,
		"wasatpay_payment_initiated_total",
		"Total number of payments initiated",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentCompletedTotal, err = NewCounter(
		cfg.Meter,
		"wasatpay_payment_completed_total",
		"Total number of payments completed",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"wasatpay_payment_amount_total",
		"Total completed payment amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.refundCompletedTotal, err = NewCounter(
		cfg.Meter,
		"wasatpay_refund_completed_total",
		"Total number of refunds completed",
		"{refunds}",
	)
	if err != nil {
		return nil, err
	}

	bm.refundAmountTotal, err = NewCounter(
		cfg.Meter,
		"wasatpay_refund_amount_total",
		"Total refunded amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordPaymentInitiated records a payment initiation event.
// This should be called from the application layer when a payment is created.
func (bm *BillingMetrics) RecordPaymentInitiated(ctx context.Context, provider, method string) {
	bm.paymentInitiatedTotal.Inc(ctx,
		AttrPaymentProvider.String(provider),
		AttrPaymentMethod.String(method),
	)
}

// RecordPaymentCompleted records a completed payment and its amount.
// Amount is converted to the smallest currency unit (cents) for the counter.
func (bm *BillingMetrics) RecordPaymentCompleted(ctx context.Context, provider string, amount float64) {
	bm.paymentCompletedTotal.Inc(ctx,
		AttrPaymentProvider.String(provider),
	)
	bm.paymentAmountTotal.Add(ctx, toCents(amount),
		AttrPaymentProvider.String(provider),
	)
}

// RecordRefundCompleted records a completed refund and its amount.
func (bm *BillingMetrics) RecordRefundCompleted(ctx context.Context, provider string, amount float64) {
	bm.refundCompletedTotal.Inc(ctx,
		AttrPaymentProvider.String(provider),
	)
	bm.refundAmountTotal.Add(ctx, toCents(amount),
		AttrPaymentProvider.String(provider),
	)
}

// toCents converts a decimal amount to cents without float drift
func toCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).IntPart()
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBillingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Billing metrics attribute keys not already defined in metrics.go
var (
	AttrPaymentProvider = attribute.Key("payment_provider")
)
