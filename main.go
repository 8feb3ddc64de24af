package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"photo-discovery/internal/cache"
	"photo-discovery/internal/discovery"
	"photo-discovery/internal/filesystem"
	"photo-discovery/internal/logging"
	"photo-discovery/internal/media"
	"photo-discovery/internal/memory"
	"photo-discovery/internal/metrics"
	"photo-discovery/internal/middleware"
	"photo-discovery/internal/store"
	"photo-discovery/internal/watcher"
)

func main() {
	folder := flag.String("folder", ".", "folder to scan for images")
	mode := flag.String("mode", "sync", "discovery mode: sync, async, paginated, memory-aware")
	batchSize := flag.Int("batch", discovery.DefaultBatchSize, "batch size for async and paginated modes")
	listen := flag.String("listen", "", "optional address for the metrics and introspection server")
	storePath := flag.String("store", "", "optional SQLite path for persisting validation verdicts")
	watch := flag.Bool("watch", false, "watch the folder and invalidate cache entries on changes")
	folderCache := flag.Bool("folder-cache", false, "serve repeated scans from the folder-level cache")
	useVips := flag.Bool("vips", false, "validate with libvips instead of the pure-Go decoders")
	nfsRetry := flag.Bool("nfs-retry", false, "retry filesystem operations on NFS stale file handles")
	flag.Parse()

	memory.ConfigureFromEnv()
	metrics.InitializeMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var validator media.Validator = media.ImagingValidator{}
	if *useVips {
		if err := media.InitVips(); err != nil {
			logging.Fatal("Failed to initialize libvips: %v", err)
		}
		defer media.ShutdownVips()
		validator = media.VipsValidator{}
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	c := cache.New(cache.Config{})
	opts := []discovery.Option{
		discovery.WithCache(c),
		discovery.WithValidator(validator),
		discovery.WithFolderCache(*folderCache),
		discovery.WithMonitor(monitor),
	}
	if *nfsRetry {
		opts = append(opts, discovery.WithFs(
			filesystem.NewRetryFs(afero.NewOsFs(), filesystem.DefaultRetryConfig())))
	}
	svc := discovery.NewService(opts...)
	maw := discovery.NewMemoryAware(svc, discovery.MemoryAwareConfig{})

	var st *store.Store
	if *storePath != "" {
		var err error
		st, err = store.Open(ctx, *storePath)
		if err != nil {
			logging.Fatal("Failed to open validation store: %v", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logging.Warn("Store close error: %v", err)
			}
		}()
		warmStart(ctx, st, c)
	}

	var w *watcher.Watcher
	if *watch {
		var err error
		w, err = watcher.New(c)
		if err != nil {
			logging.Fatal("Failed to create watcher: %v", err)
		}
		if err := w.Watch(*folder); err != nil {
			logging.Fatal("Failed to watch %s: %v", *folder, err)
		}
		w.Start()
		defer func() {
			if err := w.Stop(); err != nil {
				logging.Warn("Watcher stop error: %v", err)
			}
		}()
	}

	if err := runScan(ctx, *mode, *folder, *batchSize, svc, maw); err != nil {
		logging.Fatal("Discovery failed: %v", err)
	}

	if st != nil {
		persistScan(ctx, st, svc, *folder)
	}

	if *listen != "" {
		serve(ctx, *listen, svc, maw, c)
	}
}

func runScan(ctx context.Context, mode, folder string, batchSize int, svc *discovery.Service, maw *discovery.MemoryAwareService) error {
	start := time.Now()

	switch mode {
	case "sync":
		paths, err := svc.Discover(folder)
		if err != nil {
			return err
		}
		printPaths(paths)

	case "async":
		out, err := svc.DiscoverAsync(ctx, folder, batchSize, func(processed, total int, message string) {
			logging.Info("Progress %d/%d: %s", processed, total, message)
		})
		if err != nil {
			return err
		}
		for path := range out {
			fmt.Println(path)
		}

	case "paginated":
		paged := discovery.NewPaginated(svc, batchSize)
		init, err := paged.Initialize(folder)
		if err != nil {
			return err
		}
		logging.Info("Paginating %d files in %d batches", init.TotalFiles, init.TotalBatches)
		for batch := range paged.Batches() {
			logging.Info("Batch %d/%d (%d files)", batch.BatchNumber, batch.TotalBatches, len(batch.Files))
			printPaths(batch.Files)
		}

	case "memory-aware":
		paths, err := maw.DiscoverWithMemoryManagement(folder)
		if err != nil {
			return err
		}
		printPaths(paths)

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	stats := svc.Stats()
	logging.Info("Scan complete in %v: %d scans, %d entries examined, %d valid images",
		time.Since(start), stats.TotalScans, stats.TotalFilesScanned, stats.TotalFilesFound)
	return nil
}

func printPaths(paths []string) {
	for _, path := range paths {
		fmt.Println(path)
	}
}

// warmStart seeds the validation tier from persisted verdicts so an
// unchanged library needs no re-validation after a restart.
func warmStart(ctx context.Context, st *store.Store, c *cache.MultiTierCache) {
	validations, err := st.LoadValidations(ctx, 24*time.Hour)
	if err != nil {
		logging.Warn("Store warm start failed: %v", err)
		return
	}
	for _, v := range validations {
		c.SetValidation(v.Path, v.ModTime, v.IsValid)
	}
	logging.Info("Warm start loaded %d validation verdicts", len(validations))
}

// persistScan flushes the scan's verdicts. The folder result is
// cached, so the extra call costs no validator work.
func persistScan(ctx context.Context, st *store.Store, svc *discovery.Service, folder string) {
	scan, err := svc.DiscoverScan(folder)
	if err != nil {
		logging.Warn("Could not collect verdicts for persistence: %v", err)
		return
	}
	validations := make([]store.Validation, 0, len(scan.FileResults))
	for _, fr := range scan.FileResults {
		validations = append(validations, store.Validation{
			Path:    fr.Path,
			ModTime: fr.ModTime,
			Size:    fr.Size,
			IsValid: fr.IsValid,
		})
	}
	if err := st.SaveValidations(ctx, validations); err != nil {
		logging.Warn("Failed to persist validations: %v", err)
	}
}

func serve(ctx context.Context, addr string, svc *discovery.Service, maw *discovery.MemoryAwareService, c *cache.MultiTierCache) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods("GET")
	router.HandleFunc("/api/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, svc.Stats())
	}).Methods("GET")
	router.HandleFunc("/api/memory", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, maw.Status())
	}).Methods("GET")
	router.HandleFunc("/api/cache", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, c.Stats())
	}).Methods("GET")

	handler := middleware.Logger(middleware.DefaultLoggingConfig())(
		middleware.Metrics(middleware.DefaultMetricsConfig())(router))

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logging.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		}
	}()

	logging.Info("Introspection server listening on %s", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Error("Server error: %v", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode response: %v", err)
	}
}
