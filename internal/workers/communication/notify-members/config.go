// internal/workers/communication/notify-members/config.go
package notifymembers

import "time"

type Config struct {
	EmailEnabled   bool
	SMSEnabled     bool
	FromEmail      string
	Subject        string
	MaxConcurrency int
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		FromEmail:      "meetups@example.com",
		Subject:        "Your group meetup shortlist",
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}
