package cloudqueue

import "github.com/cloudqueue/cloudqueue/retry"

// Fixed, compatibility-critical names. Changing any of these changes the
// on-the-wire layout of overflow blobs and persisted records.
const (
	defaultOverflowContainer  = "lokad-cloud-overflowing-messages"
	defaultPersistedContainer = "lokad-cloud-persisted-messages"
	defaultPoisonStore        = "failing-messages"

	// defaultMaxMessageSize is the queue service's advertised maximum
	// base-64 character count per message. The actual threshold used by
	// Put is derived from this: (MaxMessageSize-1)*3/4.
	defaultMaxMessageSize = 65536
)

// ProviderConfig holds everything Provider needs beyond its two backing
// services. Zero-value fields are filled in by withDefaults.
type ProviderConfig struct {
	Logger  Logger
	Metrics Metrics
	Clock   Clock

	Serializer Serializer

	OverflowContainer  string
	PersistedContainer string
	DefaultPoisonStore string
	MaxMessageSize     int

	TransientRetryPolicy    retry.Policy
	SlowInstantiationPolicy retry.Policy
}

// Option configures a ProviderConfig.
type Option func(*ProviderConfig)

// WithLogger sets the Logger used for swallowed errors. Defaults to
// NopLogger.
func WithLogger(l Logger) Option {
	return func(c *ProviderConfig) { c.Logger = l }
}

// WithMetrics sets the Metrics sink. Defaults to NopMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *ProviderConfig) { c.Metrics = m }
}

// WithClock overrides the source of time used for persisted-record
// timestamps. Defaults to SystemClock.
func WithClock(clk Clock) Option {
	return func(c *ProviderConfig) { c.Clock = clk }
}

// WithSerializer overrides the wire codec used for payloads, envelopes,
// wrappers and persisted records. Defaults to JSONSerializer.
func WithSerializer(s Serializer) Option {
	return func(c *ProviderConfig) { c.Serializer = s }
}

// WithOverflowContainer overrides the blob container used for overflow
// payloads. Changing this from the default breaks compatibility with any
// existing overflow blobs written under the default name.
func WithOverflowContainer(name string) Option {
	return func(c *ProviderConfig) { c.OverflowContainer = name }
}

// WithPersistedContainer overrides the blob container used for poison and
// persisted records.
func WithPersistedContainer(name string) Option {
	return func(c *ProviderConfig) { c.PersistedContainer = name }
}

// WithDefaultPoisonStore overrides the poison store name used by Get when
// no store is supplied explicitly.
func WithDefaultPoisonStore(name string) Option {
	return func(c *ProviderConfig) { c.DefaultPoisonStore = name }
}

// WithMaxMessageSize overrides the queue service's advertised maximum
// base-64 character count per message, from which the overflow threshold
// is derived.
func WithMaxMessageSize(size int) Option {
	return func(c *ProviderConfig) { c.MaxMessageSize = size }
}

// WithTransientRetryPolicy overrides the policy used to retry transient
// server faults on remote calls. Defaults to retry.TransientServerErrorBackoff().
func WithTransientRetryPolicy(p retry.Policy) Option {
	return func(c *ProviderConfig) { c.TransientRetryPolicy = p }
}

// WithSlowInstantiationPolicy overrides the policy used around
// eventual-consistency windows such as "queue was just created". Defaults
// to retry.SlowInstantiation().
func WithSlowInstantiationPolicy(p retry.Policy) Option {
	return func(c *ProviderConfig) { c.SlowInstantiationPolicy = p }
}

// DefaultConfig returns a ProviderConfig with every field set to its
// default, before any Option is applied.
func DefaultConfig() ProviderConfig {
	c := ProviderConfig{}
	c.withDefaults()
	return c
}

// withDefaults fills in every zero-value field of c with its default.
func (c *ProviderConfig) withDefaults() {
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Serializer == nil {
		c.Serializer = JSONSerializer{}
	}
	if c.OverflowContainer == "" {
		c.OverflowContainer = defaultOverflowContainer
	}
	if c.PersistedContainer == "" {
		c.PersistedContainer = defaultPersistedContainer
	}
	if c.DefaultPoisonStore == "" {
		c.DefaultPoisonStore = defaultPoisonStore
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.TransientRetryPolicy == nil {
		c.TransientRetryPolicy = retry.TransientServerErrorBackoff()
	}
	if c.SlowInstantiationPolicy == nil {
		c.SlowInstantiationPolicy = retry.SlowInstantiation()
	}
}

// messageThreshold returns the maximum number of raw serialized bytes a
// message may occupy before Put takes the overflow path.
func (c *ProviderConfig) messageThreshold() int {
	return (c.MaxMessageSize - 1) * 3 / 4
}
