package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved target
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Barcheck", GetVersion())

	logger.Info().
		Str("root", config.Server.Root).
		Str("host", config.Server.Host).
		Int("port", config.Server.Port).
		Bool("headless", config.Browser.Headless).
		Str("results_dir", config.Output.ResultsDir).
		Msg("Harness configuration")
}
