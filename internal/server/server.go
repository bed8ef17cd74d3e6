package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/vincentbai/pixel-bridge/internal/bus"
	"github.com/vincentbai/pixel-bridge/internal/database"
	"github.com/vincentbai/pixel-bridge/internal/gate"
	"github.com/vincentbai/pixel-bridge/internal/loader"
	"github.com/vincentbai/pixel-bridge/internal/models"
	"github.com/vincentbai/pixel-bridge/internal/readiness"
)

type Server struct {
	db       *database.Database
	bus      *bus.Bus
	signal   *readiness.Signal
	document *loader.Document
	gate     *gate.Gate
	address  string
	server   *http.Server
	now      func() time.Time
}

func NewServer(db *database.Database, eventBus *bus.Bus, readySignal *readiness.Signal, document *loader.Document, g *gate.Gate, address string) *Server {
	return &Server{
		db:       db,
		bus:      eventBus,
		signal:   readySignal,
		document: document,
		gate:     g,
		address:  address,
		now:      time.Now,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleEvents(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var batch models.Batch
	if err := json.NewDecoder(request.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(batch.Events) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Reject the whole batch before publishing anything.
	for i := range batch.Events {
		s.fillDefaults(&batch.Events[i])
		if err := database.ValidateEvent(batch.Events[i]); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	delivered := 0
	for _, event := range batch.Events {
		delivered += s.bus.Publish(event)
	}
	if delivered == 0 {
		log.Printf("No subscribers for batch of %d events", len(batch.Events))
	}
	w.WriteHeader(http.StatusNoContent) // success, no body
}

func (s *Server) fillDefaults(event *models.TrackedEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.TSUTC == 0 {
		now := s.now().UTC()
		event.TSUTC = now.UnixMilli()
		event.TSISO = now.Format(time.RFC3339)
	}
}

func (s *Server) handleReady(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	listeners := s.signal.Dispatch(gate.ReadySignal)
	log.Printf("Dispatched %s to %d listeners", gate.ReadySignal, listeners)
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	gate.Snapshot
	ReadySinceHuman string `json:"ready_since_human,omitempty"`
	Tracked         int64  `json:"tracked"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.gate.Snapshot()
	tracked, err := s.db.CountTrackedEvents()
	if err != nil {
		log.Printf("Database error: %v", err)
		http.Error(w, "Failed to read tracked events", http.StatusInternalServerError)
		return
	}
	response := statusResponse{Snapshot: snapshot, Tracked: tracked}
	if snapshot.TrackerReady {
		response.ReadySinceHuman = humanize.RelTime(snapshot.ReadySince, s.now(), "ago", "from now")
	}
	writeJSON(w, response)
}

func (s *Server) handleScripts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.document.Scripts())
}

func (s *Server) handleTracked(w http.ResponseWriter, request *http.Request) {
	limit := 100
	if raw := request.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	records, err := s.db.ListTrackedEvents(limit)
	if err != nil {
		log.Printf("Database error: %v", err)
		http.Error(w, "Failed to read tracked events", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []database.TrackedRecord{}
	}
	writeJSON(w, records)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/scripts", s.handleScripts)
	mux.HandleFunc("/tracked", s.handleTracked)
	return mux
}

func (s *Server) Start() error {
	mux := s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Pixel bridge listening on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdownChannel:
	}
	log.Println("Shutting down server...")

	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		return err
	}

	if tracked, err := s.db.CountTrackedEvents(); err == nil {
		log.Printf("Server exited after tracking %s events", humanize.Comma(tracked))
	}
	return nil
}
