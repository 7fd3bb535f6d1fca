package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// Headless controls whether the browser runs without a window.
	Headless bool
	// Timeout is the per-store wall-clock budget for one attempt.
	Timeout time.Duration
	// Retries is how many extra attempts a transient failure earns.
	Retries int
	// MatchThreshold is the minimum title-similarity score.
	MatchThreshold float64
	// ValidateISBN enables the cross-store canonical-ISBN vote for
	// title searches.
	ValidateISBN bool
	// SelfPubPenalty weights down 979-8 ISBNs in the vote.
	SelfPubPenalty float64
	// DBFile is where results are recorded when recording is enabled.
	DBFile string
)

// InitConfig initializes the global configuration from viper.
func InitConfig() {
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("scout.timeout", "30s")
	viper.SetDefault("scout.retries", 1)
	viper.SetDefault("matcher.threshold", 0.5)
	viper.SetDefault("matcher.validateisbn", true)
	viper.SetDefault("matcher.selfpubpenalty", 0.3)
	viper.SetDefault("output.dbfile", "./bookscout.db")

	Headless = viper.GetBool("browser.headless")
	Timeout = viper.GetDuration("scout.timeout")
	Retries = viper.GetInt("scout.retries")
	MatchThreshold = viper.GetFloat64("matcher.threshold")
	ValidateISBN = viper.GetBool("matcher.validateisbn")
	SelfPubPenalty = viper.GetFloat64("matcher.selfpubpenalty")
	DBFile = viper.GetString("output.dbfile")
}

// SetHeadless sets the Headless flag.
func SetHeadless(headless bool) {
	Headless = headless
}
