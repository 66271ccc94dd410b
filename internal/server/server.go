package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"github.com/gravitas-games/craftgrid/internal/catalog"
	"github.com/gravitas-games/craftgrid/internal/config"
	"github.com/gravitas-games/craftgrid/internal/journal"
	"github.com/gravitas-games/craftgrid/internal/network"
	"github.com/gravitas-games/craftgrid/pkg/workbench"
)

// Server represents the crafting server
type Server struct {
	config       *config.Config
	catalog      *catalog.Catalog
	session      *Session
	bus          *workbench.SimpleEventBus
	journal      *journal.CraftJournal
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator
	redis        *redis.Client

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, cat *catalog.Catalog) (*Server, error) {
	log.Println("Initializing server...")

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:      cfg,
		catalog:     cat,
		bus:         workbench.NewSimpleEventBus(),
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		srv.redis = redisClient
		log.Println("Connected to Redis")
	} else {
		log.Println("Redis not configured, token blacklist disabled")
	}

	if cfg.Journal.Enabled {
		j := journal.NewCraftJournal(cfg.Journal.Dir)
		j.Attach(srv.bus)
		srv.journal = j
		log.Printf("Craft journal writing to %s", cfg.Journal.Dir)
	}

	jwtValidator, err := NewJWTValidator(ctx, cfg, srv.redis)
	if err != nil {
		srv.release()
		return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
	}
	srv.jwtValidator = jwtValidator

	factory, err := NewStationFactory(cfg, cat, srv.bus)
	if err != nil {
		srv.release()
		return nil, fmt.Errorf("failed to configure stations: %w", err)
	}
	srv.session = NewSession("main", cfg.Session.MaxPlayers, factory)

	log.Println("Server initialized successfully")
	return srv, nil
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	log.Printf("Starting WebSocket server on %s", addr)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("WebSocket endpoint: ws://%s/ws", addr)
	log.Printf("Health endpoint: http://%s/health", addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	// Closing a connection cancels its drag, so this runs before the
	// journal is closed.
	s.connMu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connMu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}

	s.release()

	log.Println("Server shutdown complete")
	return nil
}

func (s *Server) release() {
	s.cancel()
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			log.Printf("Craft journal close error: %v", err)
		}
	}
	s.closeRedis()
}

func (s *Server) closeRedis() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log.Printf("New WebSocket connection request from %s", r.RemoteAddr)

	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		log.Printf("Missing JWT token from %s", r.RemoteAddr)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	player, err := s.jwtValidator.ValidateToken(tokenString)
	if err != nil {
		log.Printf("Invalid JWT token from %s: %v", r.RemoteAddr, err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	log.Printf("Authenticated user: %s (%s) from %s", player.Username, player.ID, r.RemoteAddr)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(ws, s)
	if err := conn.Join(player); err != nil {
		log.Printf("Join failed for %s: %v", player.Username, err)
		conn.Reject("join_failed", err.Error())
		return
	}

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	log.Printf("WebSocket connection established: %s (%s)", player.Username, r.RemoteAddr)

	// Handle connection (blocking)
	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	log.Printf("WebSocket connection closed: %s (%s)", player.Username, r.RemoteAddr)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"session": s.session.GetStatus(),
		"items":   s.catalog.Items.Len(),
		"recipes": s.catalog.Recipes.Count(),
	})
}

// itemInfo lists the catalog for the welcome message
func itemInfo(cat *catalog.Catalog) []network.ItemInfo {
	defs := cat.Items.Export()
	out := make([]network.ItemInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, network.ItemInfo{
			ID:        string(d.ID),
			Name:      d.Name,
			Category:  string(d.Category),
			Width:     d.Width,
			Height:    d.Height,
			CanRotate: d.CanRotate,
			MaxStack:  d.MaxStack,
		})
	}
	return out
}
