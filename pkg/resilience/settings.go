package resilience

import "time"

// Breaker names. Collector breakers are suffixed with the platform.
const (
	DependencyClassifier = "classifier"
	dependencyCollector  = "collector:"
)

// ClassifierSettings guards calls to the external classifier. Five failures in a
// row open it for 30s; scoring runs locally in the meantime.
func ClassifierSettings() Settings {
	return Settings{
		Name:             DependencyClassifier,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
	}
}

// CollectorSettings guards the start commands sent to one platform's scrapers.
// Three failures open it for 15s so operator retries fail fast while the bus is down.
func CollectorSettings(platform string) Settings {
	return Settings{
		Name:             CollectorDependency(platform),
		Interval:         time.Minute,
		Timeout:          15 * time.Second,
		FailureThreshold: 3,
		SuccessThreshold: 1,
	}
}

// CollectorDependency is the breaker and metric name for platform's collector
func CollectorDependency(platform string) string {
	return dependencyCollector + platform
}

// withDefaults fills unset knobs
func (s Settings) withDefaults() Settings {
	if s.Name == "" {
		s.Name = "unnamed"
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = 1
	}
	return s
}
