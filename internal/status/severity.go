package status

import "fmt"

// Severity classifies a metric entry for display.
type Severity int

const (
	SeverityDefault Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityDanger
)

var severityNames = map[Severity]string{
	SeverityDefault: "default",
	SeveritySuccess: "success",
	SeverityWarning: "warning",
	SeverityDanger:  "danger",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalText encodes the severity by name, so JSON carries "default",
// "success", "warning" or "danger".
func (s Severity) MarshalText() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	for sev, name := range severityNames {
		if name == string(text) {
			*s = sev
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", text)
}

// Threshold classifications. Boundaries are inclusive on the upper band.

func temperatureSeverity(celsius float64) Severity {
	switch {
	case celsius >= 75:
		return SeverityDanger
	case celsius >= 65:
		return SeverityWarning
	default:
		return SeveritySuccess
	}
}

func loadSeverity(load1 float64) Severity {
	switch {
	case load1 >= 5:
		return SeverityDanger
	case load1 >= 2:
		return SeverityWarning
	default:
		return SeveritySuccess
	}
}

// diskSeverity takes the decile-rounded free percentage.
func diskSeverity(freePercent int) Severity {
	switch {
	case freePercent < 3:
		return SeverityDanger
	case freePercent < 10:
		return SeverityWarning
	default:
		return SeveritySuccess
	}
}
