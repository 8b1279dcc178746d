package infra

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/internal/logger"
)

// feedEvent is the wire format pushed to feed subscribers.
type feedEvent struct {
	Type      string `json:"type"` // "result" or "spot"
	Timestamp string `json:"timestamp"`

	// result fields
	Route    string `json:"route,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Borrowed string `json:"borrowed,omitempty"`
	Fee      string `json:"fee,omitempty"`
	Final    string `json:"final,omitempty"`
	Profit   string `json:"profit,omitempty"`
	Error    string `json:"error,omitempty"`

	// spot fields
	Venue string `json:"venue,omitempty"`
	Price string `json:"price,omitempty"`
}

// FeedServer implements Reporter as a websocket broadcast: every
// settled attempt and spot refresh is pushed to all connected clients
// as JSON.
type FeedServer struct {
	log    logger.LoggerInterface
	server *http.Server

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewFeedServer creates a feed server listening on the given port.
func NewFeedServer(log logger.LoggerInterface, port int) *FeedServer {
	s := &FeedServer{
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleSubscribe)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins accepting subscribers.
func (s *FeedServer) Start(ctx context.Context) error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error(ctx, "feed server stopped", "error", err)
		}
	}()

	s.log.Info(ctx, "feed server listening", "addr", s.server.Addr)
	return nil
}

func (s *FeedServer) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Drain reads so pings and close frames are processed. The
	// subscriber never sends application data.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
}

// Report broadcasts a settled attempt.
func (s *FeedServer) Report(res *domain.Result) {
	ev := feedEvent{
		Type:      "result",
		Timestamp: res.Timestamp.Format(time.RFC3339Nano),
		Route:     res.Route.String(),
		Outcome:   res.Outcome.String(),
		Borrowed:  res.Borrowed.String(),
		Fee:       res.Fee.String(),
		Final:     res.Final.String(),
		Profit:    res.ProfitDecimal().String(),
		Error:     res.Err,
	}
	s.broadcast(ev)
}

// UpdateSpot broadcasts a venue spot price.
func (s *FeedServer) UpdateSpot(venue string, price decimal.Decimal) {
	s.broadcast(feedEvent{
		Type:      "spot",
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Venue:     venue,
		Price:     price.String(),
	})
}

func (s *FeedServer) broadcast(ev feedEvent) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := wsjson.Write(ctx, c, ev); err != nil {
			// Slow or gone, the read loop will clean it up.
			c.Close(websocket.StatusPolicyViolation, "write timeout")
		}
		cancel()
	}
}

// Stop disconnects all subscribers and shuts the server down.
func (s *FeedServer) Stop() error {
	s.mu.Lock()
	for c := range s.clients {
		c.Close(websocket.StatusGoingAway, "shutting down")
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
