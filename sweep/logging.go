package sweep

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging builds the logger the whole run writes to. logFields is a
// comma separated list of key=value pairs attached to every message.
func SetupLogging(debug bool, logFormat string, logFields string) log.FieldLogger {
	logger := log.New()

	logger.Out = os.Stdout

	if debug {
		logger.Level = log.DebugLevel
	}

	if logFormat == "json" {
		logger.Formatter = &log.JSONFormatter{}
	}

	fields := log.Fields{}
	for _, pair := range strings.Split(logFields, ",") {
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			log.WithFields(log.Fields{
				"logFields": logFields,
			}).Fatal("failed to parse default log field argument")
		}
		fields[parts[0]] = parts[1]
	}

	return logger.WithFields(fields)
}
