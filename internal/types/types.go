package types

import (
	"fmt"
	"go/token"
	"strings"
)

// Issue is a diagnostic found while verifying a database.
type Issue struct {
	Rule     string         `json:"rule"`
	Category string         `json:"category"`
	Filename string         `json:"filename"`
	Message  string         `json:"message"`
	Note     string         `json:"note,omitempty"`
	Severity Severity       `json:"severity"`
	Start    token.Position `json:"start"`
	End      token.Position `json:"end"`
}

// Severity is the grade of an issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityOff
)

var severityNames = []string{"ERROR", "WARNING", "INFO", "OFF"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "UNKNOWN"
	}
	return severityNames[s]
}

// ParseSeverity reads a severity name, case insensitive.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}
	return SeverityError, fmt.Errorf("unknown severity %q", name)
}

func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Severity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ConfigRule is the per-rule section of the configuration file.
type ConfigRule struct {
	Severity Severity `yaml:"severity"`
}
