package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide line logger. Request logging, audit events
// and code-delivery notices all write through it, one JSON object per line
// on stdout.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits entry as a single JSON log line. Callers own the field
// set; nothing is added here.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Printf(`{"level":"error","msg":"unloggable entry","error":%q}`, err.Error())
		return
	}
	Logger().Println(string(data))
}
