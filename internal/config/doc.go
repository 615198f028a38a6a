// Package config provides configuration types and loading for sandboxbox.
//
// # Configuration Files
//
// The package handles three kinds of configuration:
//
//   - Config: global user settings from $XDG_CONFIG_HOME/sandboxbox/config.toml
//     (override with SANDBOXBOX_CONFIG or --config)
//   - ProjectConfig: per-project settings from <project>/.sandboxbox.yaml
//   - SessionMarker: ownership record written into every ephemeral root
//
// # Global Configuration
//
//	[backend]
//	driver = "auto"            # auto, podman, podman-machine, docker, apple, process
//	image = "localhost/sandboxbox:latest"
//	verify_attempts = 0        # 0 uses the driver default
//	verify_interval = "5s"
//
//	[workspace]
//	mode = "clone"             # clone or direct
//	exclude = ["coverage"]
//
//	[credentials]
//	paths = [".config/tool/auth.json"]
//	env = ["MY_TOKEN"]
//
//	[agents.aider]
//	command = ["aider", "--yes"]
//
// Missing files yield Default(). Unknown keys are rejected.
//
// # Project Configuration
//
//	image: ghcr.io/example/dev:1
//	command: npm test
//	env:
//	  NODE_ENV: test
//	mounts:
//	  - /opt/data:ro
//
// Project mounts are always read-only. Merge layers a ProjectConfig over a
// Config.
package config
