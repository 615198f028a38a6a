package config

import (
	"fmt"
	"regexp"
)

// agentNameRegex validates agent names, which become subcommand names.
var agentNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// reservedNames cannot be used as agent names.
var reservedNames = map[string]bool{
	"build": true, "run": true, "shell": true, "backend": true,
	"gc": true, "help": true, "version": true, "completion": true,
}

// ValidateAgentName checks if an agent name is valid.
// Valid names:
//   - Start with a lowercase letter
//   - Contain only lowercase letters, digits, underscores, or hyphens
//   - Are at most 32 characters long
//   - Do not shadow a built-in command
func ValidateAgentName(name string) error {
	if name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	if !agentNameRegex.MatchString(name) {
		return fmt.Errorf("invalid agent name %q: must start with a lowercase letter, contain only lowercase letters, digits, underscores, or hyphens, and be at most 32 characters", name)
	}
	if reservedNames[name] {
		return fmt.Errorf("agent name %q is reserved", name)
	}
	return nil
}
