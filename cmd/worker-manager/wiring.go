// cmd/worker-manager/wiring.go
package main

import (
	"strings"
	"time"

	"meetup-workers/internal/common/config"
	"meetup-workers/internal/models"
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
)

// workerConfigs holds the per-worker settings derived from the application config.
type workerConfigs struct {
	resolve    *resolvememberlocations.Config
	fairPoint  *computefairpoint.Config
	intent     *parsegroupintent.Config
	search     *searchvenues.Config
	travel     *calculatetravelcost.Config
	safety     *assessareasafety.Config
	rank       *rankvenues.Config
	explain    *explainrecommendations.Config
	coordinate *coordinategroupmeetup.Config
	notify     *notifymembers.Config
}

func buildWorkerConfigs(cfg *config.Config) workerConfigs {
	c := cfg.Coordination
	defaultLocation := models.Coordinate{Lat: c.DefaultLocation.Lat, Lng: c.DefaultLocation.Lng}

	resolve := resolvememberlocations.LoadConfig()
	resolve.DefaultLocation = defaultLocation
	resolve.Timeout = jobTimeout(cfg, resolvememberlocations.TaskType, resolve.Timeout)

	fairPoint := computefairpoint.LoadConfig()
	fairPoint.DefaultLocation = defaultLocation
	fairPoint.Timeout = jobTimeout(cfg, computefairpoint.TaskType, fairPoint.Timeout)

	intent := parsegroupintent.LoadConfig()
	intent.LLMTimeout = config.GetDuration(cfg.APIs.GenAI.Timeout)
	intent.Timeout = jobTimeout(cfg, parsegroupintent.TaskType, intent.Timeout)

	search := searchvenues.LoadConfig()
	search.RadiusMeters = c.RadiusMeters
	search.MaxRadiusMeters = c.MaxRadiusMeters
	search.MaxResults = c.MaxResults
	search.GenericCategories = splitCategories(c.GenericCategories)
	search.DetailsEnrichLimit = c.DetailsEnrichLimit
	search.Timeout = jobTimeout(cfg, searchvenues.TaskType, search.Timeout)

	travel := calculatetravelcost.LoadConfig()
	travel.Mode = models.TravelMode(c.TravelMode)
	travel.WalkingKmh = c.Speeds.WalkingKmh
	travel.DrivingKmh = c.Speeds.DrivingKmh
	travel.TransitKmh = c.Speeds.TransitKmh
	travel.MaxConcurrency = c.MaxConcurrency
	travel.Timeout = jobTimeout(cfg, calculatetravelcost.TaskType, travel.Timeout)

	safety := assessareasafety.LoadConfig()
	safety.RadiusMeters = c.SafetyRadiusMeters
	safety.NightStartHour = c.NightWindow.StartHour
	safety.NightEndHour = c.NightWindow.EndHour
	safety.Timeout = jobTimeout(cfg, assessareasafety.TaskType, safety.Timeout)

	rank := rankvenues.LoadConfig()
	rank.Weights = rankvenues.Weights{Quality: c.Weights.Quality, Fairness: c.Weights.Fairness, Safety: c.Weights.Safety}
	rank.TopN = c.TopN
	rank.Timeout = jobTimeout(cfg, rankvenues.TaskType, rank.Timeout)

	explain := explainrecommendations.LoadConfig()
	explain.CallTimeout = config.GetDuration(c.ExplanationTimeout)
	explain.MaxConcurrency = c.MaxConcurrency
	explain.Timeout = jobTimeout(cfg, explainrecommendations.TaskType, explain.Timeout)

	coordinate := coordinategroupmeetup.LoadConfig()
	coordinate.RequestDeadline = config.GetDuration(c.RequestDeadline)
	coordinate.DivergenceThresholdKm = c.DivergenceThresholdKm
	coordinate.TravelMode = models.TravelMode(c.TravelMode)
	coordinate.RadiusMeters = c.RadiusMeters
	coordinate.MaxResults = c.MaxResults
	coordinate.TopN = c.TopN
	coordinate.MaxConcurrency = c.MaxConcurrency
	coordinate.Timeout = jobTimeout(cfg, coordinategroupmeetup.TaskType, coordinate.Timeout)

	notify := notifymembers.LoadConfig()
	notify.EmailEnabled = cfg.Notifications.Email.Enabled
	notify.SMSEnabled = cfg.Notifications.SMS.Enabled
	if cfg.Notifications.Email.FromEmail != "" {
		notify.FromEmail = cfg.Notifications.Email.FromEmail
	}
	notify.Timeout = jobTimeout(cfg, notifymembers.TaskType, notify.Timeout)

	return workerConfigs{
		resolve:    resolve,
		fairPoint:  fairPoint,
		intent:     intent,
		search:     search,
		travel:     travel,
		safety:     safety,
		rank:       rank,
		explain:    explain,
		coordinate: coordinate,
		notify:     notify,
	}
}

// jobTimeout uses the worker's configured job timeout when one is set.
func jobTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
		return config.GetDuration(w.Timeout)
	}
	return fallback
}

func splitCategories(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
