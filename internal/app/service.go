package app

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/config"
	"edrs-docstore/internal/http"
	"edrs-docstore/internal/repository/postgres"
)

const serverAddrPrefix = ":"

// Service represents the document store process
type Service struct {
	config     *config.Config
	db         *postgres.DB
	audit      *audit.Logger
	server     *http.Server
	closeCache func()
}

// Start blocks serving HTTP until the server is shut down.
func (s *Service) Start() error {
	log.Printf("Starting HTTP server on port %s", s.config.Server.Port)
	if err := s.server.Start(serverAddrPrefix + s.config.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains pending audit writes and closes the pools.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if waitErr := s.audit.Wait(ctx); waitErr != nil {
		log.Printf("Audit writes still pending at shutdown: %v", waitErr)
	}
	s.closeCache()
	s.db.Close()
	return err
}
