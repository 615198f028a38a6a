package testutil

import (
	"embed"
	"encoding/json"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadConfigFixture parses a TOML global config fixture.
func LoadConfigFixture(name string) (*config.Config, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

// LoadProjectFixture parses a YAML project config fixture.
func LoadProjectFixture(name string) (*config.ProjectConfig, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return config.ParseProject(data)
}

// LoadSessionMarkerFixture parses a session marker fixture.
func LoadSessionMarkerFixture(name string) (*config.SessionMarker, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	var m config.SessionMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ValidConfig returns the valid global config fixture.
func ValidConfig() (*config.Config, error) {
	return LoadConfigFixture("valid_config.toml")
}

// InvalidConfig parses the invalid global config fixture, which must fail.
func InvalidConfig() (*config.Config, error) {
	return LoadConfigFixture("invalid_config.toml")
}

// ValidProject returns the valid project config fixture.
func ValidProject() (*config.ProjectConfig, error) {
	return LoadProjectFixture("valid_project.yaml")
}

// ValidSessionMarker returns the valid session marker fixture.
func ValidSessionMarker() (*config.SessionMarker, error) {
	return LoadSessionMarkerFixture("valid_session.json")
}
