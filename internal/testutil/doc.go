// Package testutil provides test fixtures and helpers.
//
// # Fixtures
//
// Config fixtures are embedded using go:embed:
//
//	fixtures/valid_config.toml
//	fixtures/invalid_config.toml
//	fixtures/valid_project.yaml
//	fixtures/valid_session.json
//
// and parsed with ValidConfig, InvalidConfig, ValidProject and
// ValidSessionMarker, or read raw with LoadFixture.
//
// # Test Environments
//
// NewTestEnv isolates HOME, the global git config and the config file path so
// tests can provision real workspaces without touching the developer's
// machine:
//
//	env := testutil.NewTestEnv(t)
//	repo := env.CreateRepo("app")
//	env.AddCredential(".ssh/id_ed25519", "key")
//
// # Git
//
// RequireGit skips tests when git is missing. Git and GitOutput run git in a
// directory; SetupGitRepo creates a repository with one commit on main.
package testutil
