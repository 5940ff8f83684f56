package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/TanveerShahriar/Thesis/internal/audit"
	"github.com/TanveerShahriar/Thesis/internal/builtin"
	"github.com/TanveerShahriar/Thesis/internal/catalog"
	"github.com/TanveerShahriar/Thesis/internal/controlplane"
	"github.com/TanveerShahriar/Thesis/internal/scheduler"
	"github.com/TanveerShahriar/Thesis/internal/store"
)

var (
	listenAddr   string
	dbPath       string
	poolSize     int
	manifestPath string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the spread daemon",
	Long:  `Starts the worker pool and the HTTP API used to invoke functions and watch the workers.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	daemonCmd.Flags().IntVar(&poolSize, "workers", 0, "Number of workers (default: number of CPUs)")
	daemonCmd.Flags().StringVar(&manifestPath, "manifest", "", "Function manifest to import at startup")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen = listenAddr
	}
	if cmd.Flags().Changed("db") {
		cfg.DB = dbPath
	}
	if cmd.Flags().Changed("workers") {
		cfg.Pool.PoolSize = poolSize
	}
	if cmd.Flags().Changed("manifest") {
		cfg.Manifest = manifestPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Printf("Starting spread daemon (instance %s)...", uuid.New().String())

	// Initialize store
	s, err := store.New(cfg.DB)
	if err != nil {
		return err
	}
	pdr := audit.NewPDRWriter(s)

	if err := seedCatalog(s, pdr, cfg.Manifest); err != nil {
		s.Close()
		return err
	}

	// Build the dispatch table and start the pool
	table := scheduler.NewTable()
	if err := builtin.Register(table); err != nil {
		s.Close()
		return err
	}
	pool, err := scheduler.New(&cfg.Pool, table)
	if err != nil {
		s.Close()
		return err
	}
	if err := pool.Initialize(); err != nil {
		s.Close()
		return err
	}

	service := controlplane.NewService(s, pdr, pool)
	server := controlplane.NewServer(service, s, cfg.Listen)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			runErr = err
		}
	}

	// The HTTP server goes first so no new invocations are admitted while
	// the pool drains.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Draining worker pool...")
	if err := pool.Shutdown(); err != nil {
		log.Printf("Pool shutdown error: %v", err)
	}

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return runErr
}

// seedCatalog records the built-in functions and imports the optional manifest.
func seedCatalog(s *store.Store, pdr *audit.PDRWriter, manifest string) error {
	for _, info := range builtin.Infos() {
		info := info
		if _, err := s.UpsertFunction(&info); err != nil {
			return fmt.Errorf("seed builtin %s: %w", info.Signature, err)
		}
	}

	if manifest == "" {
		return nil
	}
	m, err := catalog.LoadManifest(manifest)
	if err != nil {
		return err
	}
	imported, err := catalog.Import(s, m)
	if err != nil {
		return err
	}
	pdr.Record(audit.ActionCatalogImport, m, "success", manifest, fmt.Sprintf("%d functions", len(imported)))
	log.Printf("Imported %d functions from %s", len(imported), manifest)
	return nil
}
