// Package server hosts the bot's HTTP surface: the platform webhook and
// the picture delivery endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/grouprpg/sheetbot/internal/transport"
)

const shutdownTimeout = 10 * time.Second

// Dispatcher turns one inbound message into outbound replies.
type Dispatcher interface {
	Handle(ctx context.Context, msg transport.Inbound) ([]transport.Message, error)
}

// Server serves the webhook and picture endpoints until its context ends.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	dispatcher Dispatcher
	sender     transport.Sender
	webhookKey string
	pictureDir string
	locks      userLocks
	logger     *log.Logger
}

// New creates a server bound to addr. An empty webhookKey disables
// webhook authentication.
func New(addr string, dispatcher Dispatcher, sender transport.Sender, pictureDir, webhookKey string, logger *log.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		listener:   listener,
		dispatcher: dispatcher,
		sender:     sender,
		webhookKey: webhookKey,
		pictureDir: pictureDir,
		logger:     logger,
	}
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/incoming", s.handleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/picture/{file}", s.handlePicture).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return router
}

// Serve blocks until the HTTP server fails or the context ends, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.logger.Printf("server listening at %v", s.listener.Addr())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.httpServer.Serve(s.listener)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleWebhook processes one platform delivery. Messages of distinct
// users run concurrently; messages of the same user are serialized so
// the conversation state never interleaves.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookKey != "" && r.Header.Get("X-Api-Key") != s.webhookKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	inbound, err := transport.DecodeInbound(r.Body)
	if err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	for _, msg := range inbound {
		msg := msg
		g.Go(func() error {
			unlock := s.locks.lock(msg.FromUser)
			defer unlock()

			replies, err := s.dispatcher.Handle(ctx, msg)
			if err != nil {
				s.logger.Printf("dispatch for %s failed: %v", msg.FromUser, err)
				return nil
			}
			if len(replies) == 0 {
				return nil
			}
			if err := s.sender.Send(ctx, msg.FromUser, msg.ChatID, replies); err != nil {
				s.logger.Printf("send to %s failed: %v", msg.FromUser, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handlePicture serves a stored picture file by its bare name.
func (s *Server) handlePicture(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	if file == "" || file != filepath.Base(file) || strings.HasPrefix(file, ".") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.pictureDir, file))
}
