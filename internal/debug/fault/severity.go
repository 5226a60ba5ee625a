package fault

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity classifies a runtime-raised error. Values are bit flags so they can
// be combined into an error-reporting mask.
type Severity int

const (
	SeverityError            Severity = 1 << iota // 1
	SeverityWarning                               // 2
	SeverityParse                                 // 4
	SeverityNotice                                // 8
	SeverityCoreError                             // 16
	SeverityCoreWarning                           // 32
	SeverityCompileError                          // 64
	SeverityCompileWarning                        // 128
	SeverityUserError                             // 256
	SeverityUserWarning                           // 512
	SeverityUserNotice                            // 1024
	SeverityStrict                                // 2048
	SeverityRecoverableError                      // 4096
	SeverityDeprecated                            // 8192
	SeverityUserDeprecated                        // 16384

	// SeverityAll is the mask with every severity enabled.
	SeverityAll Severity = 1<<15 - 1
)

const (
	fatalSeverities       = SeverityError | SeverityParse | SeverityCoreError | SeverityCompileError
	deprecationSeverities = SeverityDeprecated | SeverityUserDeprecated
)

var severityNames = map[Severity]string{
	SeverityError:            "error",
	SeverityWarning:          "warning",
	SeverityParse:            "parse",
	SeverityNotice:           "notice",
	SeverityCoreError:        "core_error",
	SeverityCoreWarning:      "core_warning",
	SeverityCompileError:     "compile_error",
	SeverityCompileWarning:   "compile_warning",
	SeverityUserError:        "user_error",
	SeverityUserWarning:      "user_warning",
	SeverityUserNotice:       "user_notice",
	SeverityStrict:           "strict",
	SeverityRecoverableError: "recoverable_error",
	SeverityDeprecated:       "deprecated",
	SeverityUserDeprecated:   "user_deprecated",
}

// IsFatal reports whether any of the bits in s is a fatal severity.
func (s Severity) IsFatal() bool {
	return s&fatalSeverities != 0
}

// IsDeprecation reports whether s carries a deprecation severity.
func (s Severity) IsDeprecation() bool {
	return s&deprecationSeverities != 0
}

// Has reports whether the mask s enables other.
func (s Severity) Has(other Severity) bool {
	return s&other != 0
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	if s == SeverityAll {
		return "all"
	}
	return "severity(" + strconv.Itoa(int(s)) + ")"
}

// ParseSeverity resolves a severity from its name or its numeric value.
func ParseSeverity(v string) (Severity, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "all" {
		return SeverityAll, nil
	}
	for sev, name := range severityNames {
		if name == v {
			return sev, nil
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || Severity(n)&^SeverityAll != 0 {
		return 0, fmt.Errorf("unknown severity %q", v)
	}
	return Severity(n), nil
}

// UnmarshalYAML lets config files list severities by name.
func (s *Severity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	sev, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// MarshalYAML writes the severity name.
func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}
