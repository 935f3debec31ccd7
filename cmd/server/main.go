package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Brownie44l1/cancer-api/internal/config"
	"github.com/Brownie44l1/cancer-api/internal/handlers"
	"github.com/Brownie44l1/cancer-api/internal/imaging"
	"github.com/Brownie44l1/cancer-api/internal/metrics"
	"github.com/Brownie44l1/cancer-api/internal/model"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
	"github.com/Brownie44l1/cancer-api/internal/store"
	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := store.Open(ctx, store.Options{
		Driver:              store.Driver(cfg.StoreDriver),
		SQLitePath:          cfg.SQLitePath,
		PostgresDSN:         cfg.DatabaseURL,
		FirestoreProject:    cfg.FirestoreProjectID,
		FirestoreCollection: cfg.FirestoreCollection,
	})
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer records.Close()
	log.Printf("Prediction store: %s", cfg.StoreDriver)

	fetcher := &model.ArtifactFetcher{HTTPClient: &http.Client{Timeout: 5 * time.Minute}}
	if strings.HasPrefix(cfg.ModelURL, "s3://") || strings.HasPrefix(cfg.ModelMetadataURL, "s3://") {
		client, err := model.NewS3Client(ctx, model.S3Config{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}
		fetcher.S3 = client
	}

	// A missing runtime leaves the engine unable to open a session; the
	// server still starts and reports not ready.
	if err := model.InitRuntime(cfg.ORTLibraryPath); err != nil {
		log.Printf("ONNX runtime unavailable: %v", err)
	}
	defer model.DestroyRuntime()

	engine := model.NewEngine(model.Config{
		ModelURL:    cfg.ModelURL,
		MetadataURL: cfg.ModelMetadataURL,
	}, fetcher, model.OpenONNX)
	defer engine.Close()

	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = cfg.ModelLoadMaxElapsed
	loaded := engine.LoadAsync(ctx, retry)

	service := prediction.NewService(engine, engineNormalizer{engine: engine, maxPixels: cfg.ImageMaxPixels}, records)
	m := metrics.New(func() bool { return engine.Status() == model.Ready })
	handler := handlers.NewHandler(service, engine, m, cfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.NewRouter(handler),
	}

	go func() {
		if err := <-loaded; err != nil {
			log.Printf("Model not loaded, predictions will fail until restart: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	log.Println("Endpoints:")
	log.Println("  GET  /health            - Health check")
	log.Println("  POST /predict           - Predict from image upload")
	log.Println("  GET  /predict/histories - Prediction history")
	log.Println("  GET  /metrics           - Prometheus metrics")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}
	log.Println("Server stopped")
}

// engineNormalizer sizes tensors from the loaded model's metadata.
type engineNormalizer struct {
	engine    *model.Engine
	maxPixels int64
}

func (n engineNormalizer) Normalize(raw []byte) (imaging.Tensor, error) {
	meta := n.engine.Metadata()
	norm := imaging.NewNormalizer(meta.ImageSize, meta.Layout)
	norm.MaxPixels = n.maxPixels
	return norm.Normalize(raw)
}
