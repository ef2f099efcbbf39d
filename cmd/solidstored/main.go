// Command solidstored runs a Solid storage server: it wires the Storage
// Space, Object Store backend, Repo Core, Derived-Content layers, and
// Access-Control Triad into a single pkg/httpapi.Dispatcher and serves it
// over HTTP, following the teacher's cmd/spoke wiring sequence (load
// config, build logger, init OTel, pick a backend, build the handler
// chain, start a separate health/metrics server, wait on
// observability.ShutdownManager).
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/solidstack/podspace/pkg/access"
	"github.com/solidstack/podspace/pkg/config"
	"github.com/solidstack/podspace/pkg/httpapi"
	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/observability"
	"github.com/solidstack/podspace/pkg/repo"
	"github.com/solidstack/podspace/pkg/repolayers"
	"github.com/solidstack/podspace/pkg/semslot"
	"github.com/solidstack/podspace/pkg/space"
	"github.com/solidstack/podspace/pkg/webid"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting solidstored")

	ctx := context.Background()
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OpenTelemetry")
	}

	metricsRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(metricsRegistry)

	sp, err := buildSpace()
	if err != nil {
		log.Fatalf("failed to build storage space: %v", err)
	}

	backendName := getEnv("SOLID_BACKEND", "filesystem")
	rawStore, err := buildBackend(ctx)
	if err != nil {
		log.Fatalf("failed to initialize object store backend: %v", err)
	}
	logger.Infof("object store backend: %s", backendName)
	store := object.Store(object.NewInstrumentedStore(rawStore, metrics, backendName))

	basicRepo := repo.New(sp, store)

	acrFetcher := access.NewRepoACRFetcher(basicRepo)
	codec := semslot.New(sp)
	prp := access.NewPRP(sp, codec, acrFetcher, getEnvInt("SOLID_ACR_CACHE_SIZE", 4096)).WithMetrics(metrics)

	var pdp access.PDP
	if _, hasACR := sp.AuxPolicy().Lookup(space.AuxACR); hasACR && sp.AccessControlRelType() == space.AuxACR {
		pdp = access.NewACPPDP(sp, codec, prp)
	} else {
		pdp = access.NewWACPDP(sp, codec, prp)
	}

	ownerGrant := access.NewModeSet(access.ModeRead, access.ModeControl)
	pep := access.NewPEP(sp, pdp, access.DefaultLeastPrivilegeMap(), ownerGrant)

	var innermost repo.Repo = basicRepo
	innermost = repolayers.NewConnegRepo(innermost)
	layered := access.NewLayeredRepo(innermost, pep, prp, nil)
	if _, err := layered.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize storage root: %v", err)
	}

	sweeper := object.NewRemnantSweeper(store, logger, func(path string) {
		logger.WithField("path", path).Warn("found orphaned sidecar remnant")
	})
	if spec := getEnv("SOLID_SWEEP_SCHEDULE", "@every 1h"); spec != "off" {
		if err := sweeper.Start(spec); err != nil {
			logger.WithError(err).Warn("failed to start remnant sweeper")
		} else {
			logger.Infof("remnant sweeper scheduled: %s", spec)
		}
	}

	locks := httpapi.NewLockManager()
	svc := httpapi.NewService(layered, locks, logger)
	svc.DevMode = getEnvBool("SOLID_DEV_MODE", false)
	svc.RedirectIfMutexExists = getEnvBool("SOLID_REDIRECT_IF_MUTEX_EXISTS", false)

	qpMode := httpapi.Significant
	if getEnv("SOLID_QUERY_PARAM_MODE", "significant") == "insignificant" {
		qpMode = httpapi.Insignificant
	}
	dispatcher := httpapi.NewDispatcher(svc, qpMode)

	var handler http.Handler = authenticate(dispatcher, ctx, logger)
	if cfg.Observability.MetricsEnabled {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "solidstored",
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	storeProbe := func(ctx context.Context, path string) error {
		_, err := store.Stat(ctx, path)
		return err
	}
	healthChecker := observability.NewHealthChecker(storeProbe, "/")
	observability.RegisterHealthRoutes(healthMux, healthChecker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, metricsRegistry)
	}
	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("starting health server on port %s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	shutdownManager := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		sweeper.Stop()
		return healthServer.Shutdown(ctx)
	})
	if otelProviders != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go func() {
		logger.Infof("storage root: %s", sp.RootURI())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server failed")
			os.Exit(1)
		}
	}()

	if err := shutdownManager.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info("solidstored shutdown complete")
}

func buildSpace() (*space.Space, error) {
	root := getEnv("SOLID_ROOT_URI", "http://localhost:8080/")
	owner := getEnv("SOLID_OWNER_WEBID", "http://localhost:8080/profile/card#me")
	return space.New(root, owner, space.DefaultAuxPolicy())
}

func buildBackend(ctx context.Context) (object.Store, error) {
	switch getEnv("SOLID_BACKEND", "filesystem") {
	case "s3":
		return object.NewS3Store(ctx, object.S3Config{
			Bucket:          mustEnv("SOLID_S3_BUCKET"),
			Region:          getEnv("SOLID_S3_REGION", "us-east-1"),
			Endpoint:        getEnv("SOLID_S3_ENDPOINT", ""),
			UsePathStyle:    getEnvBool("SOLID_S3_PATH_STYLE", false),
			AccessKeyID:     getEnv("SOLID_S3_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("SOLID_S3_SECRET_KEY", ""),
		})
	default:
		return object.NewFilesystemStore(getEnv("SOLID_FS_ROOT", "./data"))
	}
}

// authenticate is the credential-resolution seam's HTTP edge (§4.10.6): it
// verifies an Authorization: Bearer token against the configured Solid-OIDC
// issuer, if one is configured, and stamps webid.Credentials on the
// request context before delegating. Absent SOLID_OIDC_ISSUER, every
// request is treated as unauthenticated (webid.Public) — a storage whose
// owner grant requires authentication then simply denies all writes,
// which is the conservative failure mode.
func authenticate(next http.Handler, ctx context.Context, logger *observability.Logger) http.Handler {
	issuer := getEnv("SOLID_OIDC_ISSUER", "")
	var verifier *webid.BearerVerifier
	if issuer != "" {
		v, err := webid.NewBearerVerifier(ctx, issuer)
		if err != nil {
			logger.WithError(err).Error("failed to initialize bearer verifier; requests will be treated as unauthenticated")
		} else {
			verifier = v
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds := webid.Public
		creds.Origin = r.Header.Get("Origin")
		if verifier != nil {
			if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
				resolved, err := verifier.Verify(r.Context(), auth[7:], creds.Origin, r.Header.Get("DPoP"))
				if err != nil {
					logger.WithError(err).Debug("bearer token rejected")
				} else {
					creds = resolved
				}
			}
		}
		r = r.WithContext(webid.WithCredentials(r.Context(), creds))
		next.ServeHTTP(w, r)
	})
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s is required", key)
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
