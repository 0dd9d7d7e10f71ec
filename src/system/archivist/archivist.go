package archivist

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/thejohnfreeman/hotdrink/src/system/interfaces"
)

const (
	LEVEL_DEBUG   = 1
	LEVEL_INFO    = 2
	LEVEL_WARNING = 3
	LEVEL_ERROR   = 4
)

// Debug verbosity, graded along the engine's phases. A configured level shows
// its own messages and everything coarser, so DEBUG_LEVEL_PLANNING follows
// the planner's decisions without drowning them in per-activation noise.
const (
	DEBUG_LEVEL_UPDATES    = iota + 1 // update cycle milestones, touch promotions
	DEBUG_LEVEL_PLANNING              // strength moves, unenforced constraints
	DEBUG_LEVEL_EVALUATION            // scheduled activations, enablement labels
	DEBUG_LEVEL_MEMORY                // storage mapping
	DEBUG_LEVEL_EVERYTHING            // inner planning passes (selections), observer polls
)

var severityTags = [...]string{"", "debug", "info", "warning", "error"}

// Archivist writes the engine's log lines. Severity is gated by a single
// threshold; debug lines are additionally gated by the phase verbosity above.
type Archivist struct {
	logger     interfaces.LoggerInterface
	threshold  int
	debugLevel int
}

type Config struct {
	Logger     interfaces.LoggerInterface
	LogLevel   int
	DebugLevel int
}

func New(conf *Config) *Archivist {
	archivist := &Archivist{}
	archivist.SetLogger(conf.Logger)
	archivist.SetLogLevel(conf.LogLevel)
	// phase verbosity only matters when debug lines pass the threshold at all
	if conf.LogLevel == LEVEL_DEBUG {
		archivist.SetDebugLevel(conf.DebugLevel)
	}
	return archivist
}

// write renders one line: timestamp, severity tag, caller, then the message
// with every param appended in place. Params are meant to interleave with
// message fragments ("planning SELECT constraint=", cid, ...), so no
// separator is inserted between them.
func (a *Archivist) write(severity int, message string, params []interface{}) {
	if severity < a.threshold {
		return
	}
	_, file, line, _ := runtime.Caller(2)

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString("|")
	sb.WriteString(severityTags[severity])
	sb.WriteString("|")
	sb.WriteString(filepath.Base(file))
	sb.WriteString("#")
	sb.WriteString(strconv.Itoa(line))
	sb.WriteString("|")
	sb.WriteString(message)
	for _, param := range params {
		fmt.Fprintf(&sb, "%+v", param)
	}
	a.logger.Println(sb.String())
}

func (a *Archivist) Error(message string, params ...interface{}) {
	a.write(LEVEL_ERROR, message, params)
}

func (a *Archivist) Warning(message string, params ...interface{}) {
	a.write(LEVEL_WARNING, message, params)
}

func (a *Archivist) Info(message string, params ...interface{}) {
	a.write(LEVEL_INFO, message, params)
}

// Debug logs a line of the given phase verbosity. Lines finer than the
// configured debug level are dropped before formatting.
func (a *Archivist) Debug(level int, message string, params ...interface{}) {
	if level > a.debugLevel {
		return
	}
	a.write(LEVEL_DEBUG, message, params)
}

func (a *Archivist) SetLogLevel(logLevel int) {
	// zero means unconfigured
	if 0 == logLevel {
		logLevel = LEVEL_WARNING
	}
	if logLevel < LEVEL_DEBUG || logLevel > LEVEL_ERROR {
		a.threshold = LEVEL_WARNING
		a.Error("Given LOG_LEVEL is unknown, defaulting to LEVEL_WARNING provided was: ", logLevel)
		return
	}
	a.threshold = logLevel
}

func (a *Archivist) SetDebugLevel(level int) {
	if level < 0 {
		level = 0
	}
	a.debugLevel = level
}

func (a *Archivist) SetLogger(logger interfaces.LoggerInterface) {
	if nil == logger {
		logger = log.New(os.Stdout, "", 0)
	}
	a.logger = logger
}
