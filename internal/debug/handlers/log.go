package handlers

import (
	"fmt"
	"strings"

	"github.com/vietddude/crashguard/internal/debug/fault"
	"github.com/vietddude/crashguard/internal/debug/inspection"
)

var severityLevels = map[fault.Severity]LogLevel{
	fault.SeverityDeprecated:       LevelWarning,
	fault.SeverityUserDeprecated:   LevelWarning,
	fault.SeverityNotice:           LevelWarning,
	fault.SeverityUserNotice:       LevelWarning,
	fault.SeverityStrict:           LevelWarning,
	fault.SeverityCompileWarning:   LevelWarning,
	fault.SeverityCoreWarning:      LevelWarning,
	fault.SeverityUserWarning:      LevelWarning,
	fault.SeverityWarning:          LevelWarning,
	fault.SeverityCompileError:     LevelCritical,
	fault.SeverityCoreError:        LevelCritical,
	fault.SeverityError:            LevelCritical,
	fault.SeverityRecoverableError: LevelCritical,
	fault.SeverityUserError:        LevelCritical,
	fault.SeverityParse:            LevelCritical,
}

// LevelFor maps a severity to the level it is logged at. Unknown severities
// are critical.
func LevelFor(sev fault.Severity) LogLevel {
	if level, ok := severityLevels[sev]; ok {
		return level
	}
	return LevelCritical
}

// LogErrorHandler writes failures, their causes and their stack to a Logger.
type LogErrorHandler struct {
	Base
	logger Logger
}

// NewLogErrorHandler creates a handler logging to logger.
func NewLogErrorHandler(cfg Config, logger Logger) *LogErrorHandler {
	if logger == nil {
		logger = NewSlogLogger(nil)
	}
	return &LogErrorHandler{Base: NewBase(cfg), logger: logger}
}

// Valid reports whether logging is on and neither the failure's status nor
// its severity is ignored. A failure with an out-of-range status is still
// logged.
func (h *LogErrorHandler) Valid() bool {
	in, err := h.Inspector()
	if err != nil || !h.Config.LogErrors {
		return false
	}
	if status, err := in.StatusCode(); err == nil && h.Config.ignoresStatus(status) {
		return false
	}
	return !h.Config.ignoresSeverity(in.Severity())
}

func (h *LogErrorHandler) Handle() (Status, error) {
	in, err := h.Inspector()
	if err != nil {
		return StatusContinue, err
	}

	h.logger.Log(LevelFor(in.Severity()), h.message(in))
	return StatusContinue, nil
}

func (h *LogErrorHandler) message(in *inspection.Inspector) string {
	var b strings.Builder
	b.WriteString(messageLine(in))
	for prev := in.Previous(); prev != nil; prev = prev.Previous() {
		b.WriteString("Caused by ")
		b.WriteString(messageLine(prev))
	}
	b.WriteString(h.framesString(in.Frames()))
	return b.String()
}

func messageLine(in *inspection.Inspector) string {
	return fmt.Sprintf(
		"[%s] %s in file %s on line %d.\n",
		in.Name(),
		in.Message(),
		fault.CleanPath(in.File()),
		in.Line(),
	)
}

// framesString renders frames one per line, numbered from 1:
//
//	 1 APPROOT/store/report.go(42): (*store.Repo)->Save(Object(*domain.FailureReport))
//	 2 APPROOT/main.go(10): [main]
func (h *LogErrorHandler) framesString(frames *inspection.Frames) string {
	return renderFrames(frames, h.format)
}

func renderFrames(frames *inspection.Frames, format func([]any) []string) string {
	var b strings.Builder
	b.WriteString("Stack trace:\n")
	for i, fr := range frames.All() {
		location := ""
		if fr.Line() != 0 {
			location = fmt.Sprintf("(%d)", fr.Line())
		}
		call := ""
		if !fr.IsMain() {
			call = "(" + strings.Join(format(fr.Arguments()), ", ") + ")"
		}
		fmt.Fprintf(&b, "%2d %s%s: %s%s%s%s\n",
			i+1,
			fault.CleanPath(fr.File()),
			location,
			fr.Class(),
			fr.Type(),
			fr.Function(),
			call,
		)
	}
	return b.String()
}
