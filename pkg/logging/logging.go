package logging

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

/*
Setup configures the default logger from the environment. These are
process-level controls, deliberately outside the engine configuration:

	DENDRITE_LOG_LEVEL   debug | info | warn | error (default info)
	DENDRITE_LOG_FORMAT  text | json (default text)
*/
func Setup() {
	level, err := log.ParseLevel(strings.ToLower(os.Getenv("DENDRITE_LOG_LEVEL")))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(os.Getenv("DENDRITE_LOG_FORMAT"), "json") {
		log.SetFormatter(log.JSONFormatter)
	}

	log.SetReportTimestamp(true)
}
