package models

// TrackedEvent is a storefront analytics event. The bridge never mutates it
// after it has been published, it only forwards it.
type TrackedEvent struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"` // checkout_started|payment_info_submitted|...
	TSUTC int64          `json:"ts_utc"`
	TSISO string         `json:"ts_iso"`
	Data  map[string]any `json:"data"` // arbitrary JSON
}

type Batch struct {
	Events []TrackedEvent `json:"events"`
}

// RoutingOptions restricts which tracker integrations receive an event.
// A nil *RoutingOptions means no restriction.
type RoutingOptions struct {
	Plugins map[string]bool `json:"plugins"`
}

type TrackingConfiguration struct {
	TrackEvents       []string `json:"track_events" yaml:"track_events"`
	GA4ExcludedEvents []string `json:"ga4_excluded_events" yaml:"ga4_excluded_events"`
}

// InitializeFunc is the bridge's initialization entry point. It is passed to
// tracker sinks as an opaque callback; the bridge itself never invokes it.
type InitializeFunc func(config TrackingConfiguration)
