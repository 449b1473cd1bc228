package observability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"subbets/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the settlement engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	betsPlacedCounter            metric.Int64Counter
	settlementsCounter           metric.Int64Counter
	ledgerEntriesCounter         metric.Int64Counter
	transactionAttemptsCounter   metric.Int64Counter
	transactionConflictsCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Println("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Println("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Println("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.Printf("Using OTLP metric exporter: %s", mp.config.OTelOTLPEndpoint)

	case "none":
		log.Println("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)

	mp.meter = mp.meterProvider.Meter("subbets")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Println("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.betsPlacedCounter, err = mp.meter.Int64Counter(
		BetsPlacedTotal,
		metric.WithDescription("Total number of bets placed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets placed counter: %w", err)
	}

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Total number of market settlements"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	mp.ledgerEntriesCounter, err = mp.meter.Int64Counter(
		LedgerEntriesTotal,
		metric.WithDescription("Total number of ledger entries recorded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entries counter: %w", err)
	}

	mp.transactionAttemptsCounter, err = mp.meter.Int64Counter(
		TransactionAttemptsTotal,
		metric.WithDescription("Total number of optimistic transaction attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction attempts counter: %w", err)
	}

	mp.transactionConflictsCounter, err = mp.meter.Int64Counter(
		TransactionConflictsTotal,
		metric.WithDescription("Total number of optimistic transaction conflicts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction conflicts counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// IncBetPlaced records a placed bet
func (mp *MetricsProvider) IncBetPlaced(ctx context.Context, subreddit, side string) {
	if !mp.isEnabled() {
		return
	}

	mp.betsPlacedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelSubreddit, subreddit),
			attribute.String(LabelSide, side),
		),
	)
}

// IncSettlement records a completed settlement
func (mp *MetricsProvider) IncSettlement(ctx context.Context, subreddit, outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.settlementsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelSubreddit, subreddit),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// IncLedgerEntry records a ledger entry append
func (mp *MetricsProvider) IncLedgerEntry(ctx context.Context, subreddit, entryType string) {
	if !mp.isEnabled() {
		return
	}

	mp.ledgerEntriesCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelSubreddit, subreddit),
			attribute.String(LabelEntryType, entryType),
		),
	)
}

// IncTransactionAttempt records one optimistic transaction attempt
func (mp *MetricsProvider) IncTransactionAttempt(ctx context.Context, subreddit string) {
	if !mp.isEnabled() {
		return
	}

	mp.transactionAttemptsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelSubreddit, subreddit),
		),
	)
}

// IncTransactionConflict records one optimistic transaction conflict
func (mp *MetricsProvider) IncTransactionConflict(ctx context.Context, subreddit string) {
	if !mp.isEnabled() {
		return
	}

	mp.transactionConflictsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelSubreddit, subreddit),
		),
	)
}

// IncNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) IncNATSMessagePublished(ctx context.Context, eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// isEnabled checks if metrics are enabled and initialized. Safe on a nil
// provider so uninstrumented tests can skip initialization entirely.
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.config.OTelExporterType != "none"
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider. May be nil before
// initialization; all recording methods tolerate that.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
