// Package gate holds checkout events back until the tracking script has been
// loaded and the tracker has announced it is ready, then forwards them in
// arrival order.
package gate

import (
	"log"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vincentbai/pixel-bridge/internal/models"
	"github.com/vincentbai/pixel-bridge/internal/routing"
)

// ReadySignal is dispatched by the tracker once it accepts events.
const ReadySignal = "fueled-shopify-ready"

type ScriptLoader interface {
	LoadScript(url string)
}

type EventBus interface {
	Subscribe(eventName string, handler func(models.TrackedEvent))
}

type ReadinessSignal interface {
	AddEventListener(signalName string, handler func())
}

type TrackerSink interface {
	routing.Sink
}

// Bridge wires the external collaborators together. Every call to
// Initialize produces a new, independent Gate.
type Bridge struct {
	loader    ScriptLoader
	bus       EventBus
	signal    ReadinessSignal
	sink      TrackerSink
	scriptURL string
	callback  models.InitializeFunc
	now       func() time.Time
}

func NewBridge(loader ScriptLoader, bus EventBus, signal ReadinessSignal, sink TrackerSink, scriptURL string) *Bridge {
	b := &Bridge{
		loader:    loader,
		bus:       bus,
		signal:    signal,
		sink:      sink,
		scriptURL: scriptURL,
		now:       time.Now,
	}
	b.callback = func(config models.TrackingConfiguration) { b.Initialize(config) }
	return b
}

// Callback is the stable reference handed to the tracker sink with every
// forwarded event.
func (b *Bridge) Callback() models.InitializeFunc {
	return b.callback
}

// Initialize subscribes to every configured event name and listens for the
// readiness signal once. Calling it again is not deduplicated: the new Gate
// shares nothing with earlier ones.
func (b *Bridge) Initialize(config models.TrackingConfiguration) *Gate {
	g := &Gate{
		bridge: b,
		config: models.TrackingConfiguration{
			TrackEvents:       slices.Clone(config.TrackEvents),
			GA4ExcludedEvents: slices.Clone(config.GA4ExcludedEvents),
		},
	}
	for _, name := range g.config.TrackEvents {
		b.bus.Subscribe(name, g.handleEvent)
	}
	b.signal.AddEventListener(ReadySignal, g.handleReady)
	log.Printf("Tracking %d event names, script %s", len(g.config.TrackEvents), b.scriptURL)
	return g
}

// Gate is the gating state for one Initialize call.
type Gate struct {
	bridge *Bridge
	config models.TrackingConfiguration

	mu           sync.Mutex
	scriptLoaded bool
	trackerReady bool
	readySince   time.Time
	buffer       []models.TrackedEvent
}

type Snapshot struct {
	ScriptLoaded bool      `json:"script_loaded"`
	TrackerReady bool      `json:"tracker_ready"`
	Buffered     int       `json:"buffered"`
	ReadySince   time.Time `json:"ready_since"`
}

func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		ScriptLoaded: g.scriptLoaded,
		TrackerReady: g.trackerReady,
		Buffered:     len(g.buffer),
		ReadySince:   g.readySince,
	}
}

func (g *Gate) handleEvent(event models.TrackedEvent) {
	if g.claimScriptLoad() {
		g.loadScript()
	}

	// Held while forwarding so a drain in progress finishes first.
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.trackerReady {
		g.forward(event)
		return
	}
	g.buffer = append(g.buffer, event)
}

// claimScriptLoad flips scriptLoaded and reports whether this caller did it.
func (g *Gate) claimScriptLoad() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.scriptLoaded {
		return false
	}
	g.scriptLoaded = true
	return true
}

func (g *Gate) handleReady() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.trackerReady {
		return
	}
	g.trackerReady = true
	g.readySince = g.bridge.now()

	buffered := g.buffer
	g.buffer = nil
	for _, event := range buffered {
		g.forward(event)
	}
	log.Printf("Tracker ready, flushed %s buffered events", humanize.Comma(int64(len(buffered))))
}

// loadScript does not retry: scriptLoaded stays set even if the loader panics.
func (g *Gate) loadScript() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Script loader error: %v", r)
		}
	}()
	g.bridge.loader.LoadScript(g.bridge.scriptURL)
}

func (g *Gate) forward(event models.TrackedEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Tracker sink error for %q: %v", event.Name, r)
		}
	}()
	options := routing.ResolveOptions(event, g.config.GA4ExcludedEvents)
	routing.Forward(g.bridge.sink, event, options, g.bridge.callback)
}
