package observability

// Metric name prefixes
const (
	MetricPrefix = "subbets"
)

// Metric names
const (
	// Betting metrics
	BetsPlacedTotal = MetricPrefix + ".bets.placed_total"

	// Settlement metrics
	SettlementsTotal = MetricPrefix + ".settlements.total"

	// Ledger metrics
	LedgerEntriesTotal = MetricPrefix + ".ledger.entries_total"

	// Transaction runner metrics
	TransactionAttemptsTotal  = MetricPrefix + ".transactions.attempts_total"
	TransactionConflictsTotal = MetricPrefix + ".transactions.conflicts_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelSubreddit = "subreddit"
	LabelSide      = "side"
	LabelOutcome   = "outcome"
	LabelEntryType = "entry_type"
	LabelEventType = "event_type"
)
