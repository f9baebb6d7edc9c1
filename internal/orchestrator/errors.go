package orchestrator

import (
	"errors"
	"fmt"
)

// ConfigError reports a caller mistake detected before any completion call.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid orchestrator config: %s: %s", e.Field, e.Reason)
}

// ErrNoAgentsEnabled is returned by Run when the request selects no valid agent.
var ErrNoAgentsEnabled error = &ConfigError{Field: "enabled_agents", Reason: "no agents enabled"}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
