// cmd/worker-manager/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetup-workers/internal/common/aws"
	"meetup-workers/internal/common/camunda"
	"meetup-workers/internal/common/config"
	"meetup-workers/internal/common/database"
	"meetup-workers/internal/common/foursquare"
	"meetup-workers/internal/common/genai"
	"meetup-workers/internal/common/geocoding"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/observability"
	"meetup-workers/internal/common/retry"
	"meetup-workers/internal/common/validation"
	"meetup-workers/internal/common/venueindex"
	explainrecommendations "meetup-workers/internal/workers/ai-conversation/explain-recommendations"
	parsegroupintent "meetup-workers/internal/workers/ai-conversation/parse-group-intent"
	notifymembers "meetup-workers/internal/workers/communication/notify-members"
	assessareasafety "meetup-workers/internal/workers/meetup/assess-area-safety"
	calculatetravelcost "meetup-workers/internal/workers/meetup/calculate-travel-cost"
	computefairpoint "meetup-workers/internal/workers/meetup/compute-fair-point"
	coordinategroupmeetup "meetup-workers/internal/workers/meetup/coordinate-group-meetup"
	rankvenues "meetup-workers/internal/workers/meetup/rank-venues"
	resolvememberlocations "meetup-workers/internal/workers/meetup/resolve-member-locations"
	searchvenues "meetup-workers/internal/workers/meetup/search-venues"
	"meetup-workers/pkg/registry"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New("meetup-workers")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	deps := connectStores(ctx, cfg, log)
	defer deps.close()

	// --- Collaborators ---
	var fsq *foursquare.Client
	if cfg.APIs.Foursquare.APIKey != "" {
		fsq = foursquare.NewClient(foursquare.Config{
			BaseURL:           cfg.APIs.Foursquare.BaseURL,
			APIKey:            cfg.APIs.Foursquare.APIKey,
			Timeout:           config.GetDuration(cfg.APIs.Foursquare.Timeout),
			RequestsPerSecond: cfg.APIs.Foursquare.RequestsPerSecond,
			Burst:             cfg.APIs.Foursquare.Burst,
		})
	}

	geocoder := buildGeocoder(cfg, deps, fsq, log)

	var (
		places  searchvenues.PlaceSearchClient
		counter assessareasafety.NearbyCounter
	)
	switch {
	case cfg.Coordination.VenueBackend == "elasticsearch" && deps.es != nil:
		index := venueindex.NewClient(deps.es.Client, cfg.Database.Elasticsearch.VenueIndex)
		places, counter = index, index
	case fsq != nil:
		places, counter = fsq, fsq
	default:
		zapLog.Fatal("no venue backend available",
			zap.String("venueBackend", cfg.Coordination.VenueBackend))
	}
	log.Info("venue backend selected", map[string]interface{}{"venueBackend": cfg.Coordination.VenueBackend})

	// Left as a nil interface when disabled so workers use their rule-based paths.
	var (
		llm      parsegroupintent.TextCompleter
		genaiCli *genai.Client
	)
	if cfg.APIs.GenAI.BaseURL != "" {
		genaiCli = genai.NewClient(genai.Config{
			BaseURL:         cfg.APIs.GenAI.BaseURL,
			APIKey:          cfg.APIs.GenAI.APIKey,
			Model:           cfg.APIs.GenAI.Model,
			Timeout:         config.GetDuration(cfg.APIs.GenAI.Timeout),
			BreakerFailures: uint32(cfg.APIs.GenAI.BreakerFailures),
			BreakerCooldown: config.GetDuration(cfg.APIs.GenAI.BreakerCooldown),
		})
		llm = genaiCli
	}

	var (
		email notifymembers.EmailSender
		sms   notifymembers.SMSSender
	)
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		email = sesClient
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		sms = snsClient
	}

	validator := loadValidator(cfg.RegistryPath, log)
	policy := retry.NewPolicy(cfg.Coordination.Retry)
	wc := buildWorkerConfigs(cfg)

	components := coordinategroupmeetup.Components{
		Resolver:  resolvememberlocations.NewResolver(geocoder, policy, wc.resolve, log),
		FairPoint: computefairpoint.NewCalculator(wc.fairPoint),
		Intent:    parsegroupintent.NewNormalizer(llm, wc.intent, log),
		Search:    searchvenues.NewOrchestrator(places, policy, wc.search, log),
		Travel:    calculatetravelcost.NewCalculator(wc.travel),
		Safety:    assessareasafety.NewScorer(counter, policy, wc.safety, log),
		Ranker:    rankvenues.NewRanker(wc.rank),
		Explainer: explainrecommendations.NewExplainer(llm, wc.explain, log),
	}

	// --- Workers ---
	workers := camunda.NewWorkerGroup(zeebe.GetClient(), log)
	start := func(taskType string, handler camunda.JobHandler) {
		workers.Start(taskType, config.GetWorkerConfig(cfg, taskType), handler)
	}

	start(resolvememberlocations.TaskType, resolvememberlocations.NewHandler(wc.resolve, geocoder, policy, log))
	start(computefairpoint.TaskType, computefairpoint.NewHandler(wc.fairPoint, log))
	start(parsegroupintent.TaskType, parsegroupintent.NewHandler(wc.intent, llm, log))
	start(searchvenues.TaskType, searchvenues.NewHandler(wc.search, places, policy, log))
	start(calculatetravelcost.TaskType, calculatetravelcost.NewHandler(wc.travel, log))
	start(assessareasafety.TaskType, assessareasafety.NewHandler(wc.safety, counter, policy, log))
	start(rankvenues.TaskType, rankvenues.NewHandler(wc.rank, log))
	start(explainrecommendations.TaskType, explainrecommendations.NewHandler(wc.explain, llm, log))
	start(coordinategroupmeetup.TaskType, coordinategroupmeetup.NewHandler(wc.coordinate, components, validator, obs, log))
	start(notifymembers.TaskType, notifymembers.NewHandler(wc.notify, email, sms, log))

	log.Info("workers registered", map[string]interface{}{"count": len(workers.TaskTypes())})

	// --- Health & Metrics Server ---
	srv := newHealthServer(cfg.App.HTTPPort, zeebe, genaiCli, deps, log)
	go func() {
		log.Info("health server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped gracefully", nil)
}

// stores holds the optional backing stores. A nil field means disabled or unreachable.
type stores struct {
	pg    *database.PostgresClient
	es    *database.ElasticsearchClient
	redis *database.RedisClient
}

func (s stores) close() {
	if s.pg != nil {
		_ = s.pg.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// connectStores connects every enabled store. A store that cannot be
// reached is logged and left out; the pipeline degrades without it.
func connectStores(ctx context.Context, cfg *config.Config, log logger.Logger) stores {
	var s stores
	policy := &retry.Policy{ErrorRetries: 5, InitialInterval: 2 * time.Second, Multiplier: 2, MaxInterval: 15 * time.Second}

	if cfg.Database.Postgres.Enabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err == nil {
			_, err = policy.Do(ctx, pg.Ping, nil)
		}
		if err != nil {
			log.Warn("postgres unavailable, gazetteer disabled", map[string]interface{}{"error": err.Error()})
		} else {
			s.pg = pg
			log.Info("postgres connected", nil)
		}
	}

	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err == nil {
			_, err = policy.Do(ctx, es.Ping, nil)
		}
		if err != nil {
			log.Warn("elasticsearch unavailable, venue index disabled", map[string]interface{}{"error": err.Error()})
		} else {
			s.es = es
			log.Info("elasticsearch connected", map[string]interface{}{"index": cfg.Database.Elasticsearch.VenueIndex})
		}
	}

	if cfg.Database.Redis.Enabled {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err == nil {
			_, err = policy.Do(ctx, rdb.Ping, nil)
		}
		if err != nil {
			log.Warn("redis unavailable, geocode cache disabled", map[string]interface{}{"error": err.Error()})
		} else {
			s.redis = rdb
			log.Info("redis connected", nil)
		}
	}
	return s
}

// buildGeocoder chains the enabled providers, cheapest first, behind the cache.
func buildGeocoder(cfg *config.Config, s stores, fsq *foursquare.Client, log logger.Logger) geocoding.Geocoder {
	var providers []geocoding.Geocoder
	if s.pg != nil {
		providers = append(providers, geocoding.NewGazetteerGeocoder(s.pg.DB))
	}
	if fsq != nil {
		providers = append(providers, geocoding.NewFoursquareGeocoder(fsq))
	}
	if cfg.APIs.Nominatim.Enabled {
		providers = append(providers, geocoding.NewNominatimGeocoder(
			cfg.APIs.Nominatim.BaseURL,
			cfg.APIs.Nominatim.UserAgent,
			config.GetDuration(cfg.APIs.Nominatim.Timeout),
		))
	}

	var geocoder geocoding.Geocoder = geocoding.NewChain(providers...)
	if s.redis != nil {
		geocoder = geocoding.NewCachedGeocoder(geocoder, s.redis.Client,
			time.Duration(cfg.Database.Redis.CacheTTL)*time.Second, log)
	}
	log.Info("geocoder chain ready", map[string]interface{}{
		"providers": len(providers),
		"cached":    s.redis != nil,
	})
	return geocoder
}

// loadValidator reads the activity registry. Without one, job variables are
// only checked by the workers themselves.
func loadValidator(path string, log logger.Logger) *validation.Validator {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("activity registry not loaded, schema validation disabled", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		log.Warn("activity registry schemas invalid, schema validation disabled", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	log.Info("activity registry loaded", map[string]interface{}{
		"path":       path,
		"activities": len(reg.Activities),
	})
	return validator
}
