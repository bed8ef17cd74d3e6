// Package routing decides which tracker integrations an event is sent to.
package routing

import (
	"slices"

	"github.com/vincentbai/pixel-bridge/internal/models"
)

// GoogleAnalyticsPlugin is the integration disabled for excluded events.
const GoogleAnalyticsPlugin = "google-analytics"

// ResolveOptions returns nil when event.Name is not in excluded, otherwise
// options that keep every integration enabled except Google Analytics.
// A fresh value is built on every call.
func ResolveOptions(event models.TrackedEvent, excluded []string) *models.RoutingOptions {
	if !slices.Contains(excluded, event.Name) {
		return nil
	}
	return &models.RoutingOptions{
		Plugins: map[string]bool{
			"all":                 true,
			GoogleAnalyticsPlugin: false,
		},
	}
}

// Sink receives forwarded events. The callback is handed through untouched.
type Sink interface {
	TrackEvent(event models.TrackedEvent, options *models.RoutingOptions, callback models.InitializeFunc)
}

// Forward hands the event to the sink. Nothing the sink does is consulted.
func Forward(sink Sink, event models.TrackedEvent, options *models.RoutingOptions, callback models.InitializeFunc) {
	sink.TrackEvent(event, options, callback)
}
