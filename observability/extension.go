// Package observability provides a metrics extension for tokenledger that
// records journal activity through a MetricFactory.
package observability

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnShutdown       = (*MetricsExtension)(nil)
	_ plugin.OnTransfer       = (*MetricsExtension)(nil)
	_ plugin.OnApproval       = (*MetricsExtension)(nil)
	_ plugin.OnRejected       = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger metrics.
// Register it as a ledger plugin to track transfers, approvals and
// journal throughput.
type MetricsExtension struct {
	factory MetricFactory

	// Lifecycle metrics
	LedgerStarted Counter
	LedgerStopped Counter

	// Transfer metrics
	TransfersTotal     Counter
	TransfersDelegated Counter
	TransferVolume     Counter
	TransferAmount     Histogram

	// Allowance metrics
	ApprovalsTotal   Counter
	ApprovalsCleared Counter

	// Rejection metrics
	RejectionsTotal Counter

	// Journal metrics
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram
	JournalRecords      Counter

	mu         sync.Mutex
	rejections map[string]Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		LedgerStarted: factory.Counter("tokenledger.ledger.started"),
		LedgerStopped: factory.Counter("tokenledger.ledger.stopped"),

		TransfersTotal:     factory.Counter("tokenledger.transfer.total"),
		TransfersDelegated: factory.Counter("tokenledger.transfer.delegated"),
		TransferVolume:     factory.Counter("tokenledger.transfer.volume"),
		TransferAmount:     factory.Histogram("tokenledger.transfer.amount"),

		ApprovalsTotal:   factory.Counter("tokenledger.approval.total"),
		ApprovalsCleared: factory.Counter("tokenledger.approval.cleared"),

		RejectionsTotal: factory.Counter("tokenledger.rejected.total"),

		JournalBatchSize:    factory.Histogram("tokenledger.journal.batch.size"),
		JournalFlushLatency: factory.Histogram("tokenledger.journal.flush.latency_ms"),
		JournalRecords:      factory.Counter("tokenledger.journal.records"),

		rejections: make(map[string]Counter),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	m.LedgerStarted.Inc()
	return nil
}

// OnShutdown implements plugin.OnShutdown.
func (m *MetricsExtension) OnShutdown(_ context.Context) error {
	m.LedgerStopped.Inc()
	return nil
}

// OnTransfer implements plugin.OnTransfer. Genesis is not counted as
// transfer volume.
func (m *MetricsExtension) OnTransfer(_ context.Context, rec *event.Record) error {
	if rec.Transfer == nil || rec.IsGenesis() {
		return nil
	}
	m.TransfersTotal.Inc()
	if rec.Delegated {
		m.TransfersDelegated.Inc()
	}
	amount := approxFloat(rec.Transfer.Amount.BigInt())
	m.TransferVolume.Add(amount)
	m.TransferAmount.Observe(amount)
	return nil
}

// OnApproval implements plugin.OnApproval.
func (m *MetricsExtension) OnApproval(_ context.Context, rec *event.Record) error {
	m.ApprovalsTotal.Inc()
	if rec.Approval != nil && rec.Approval.Amount.IsZero() {
		m.ApprovalsCleared.Inc()
	}
	return nil
}

// OnRejected implements plugin.OnRejected.
func (m *MetricsExtension) OnRejected(_ context.Context, rej *event.Rejection) error {
	m.RejectionsTotal.Inc()
	m.rejectionCounter(rej.Kind).Inc()
	return nil
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalRecords.Add(float64(count))
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// rejectionCounter returns the per-kind rejection counter, creating it on
// first use.
func (m *MetricsExtension) rejectionCounter(kind string) Counter {
	if kind == "" {
		kind = "unknown"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rejections[kind]
	if !ok {
		c = m.factory.Counter("tokenledger.rejected." + kind)
		m.rejections[kind] = c
	}
	return c
}

// approxFloat converts a base-unit amount to float64. Large amounts lose
// precision.
func approxFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
