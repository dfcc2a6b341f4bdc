package services

import "errors"

// ErrNoBotToken is returned when neither the settings row nor the
// environment provides a seller bot token
var ErrNoBotToken = errors.New("seller bot token is not configured")

// BotRunner controls the seller bot. An empty token means "use the stored
// setting, then the environment fallback".
type BotRunner interface {
	Start(token string) error
	Stop()
	IsRunning() bool
}

var botRunnerInstance BotRunner

// GetBotRunner returns the seller bot controller, nil when bots are disabled
func GetBotRunner() BotRunner {
	return botRunnerInstance
}

// SetBotRunner sets the seller bot controller
func SetBotRunner(r BotRunner) {
	botRunnerInstance = r
}
