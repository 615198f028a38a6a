// Package sandbox provides the sandbox lifecycle for sandboxbox.
//
// This package ties the backend, the workspace and the credential bridge
// together into one session: it plans what the backend may see, runs the
// command, and guarantees the ephemeral root is removed afterwards.
//
// # Sandbox
//
// Sandbox orchestrates one execution with all necessary dependencies:
//
//	sb := sandbox.New(cfg, runtime.Global())
//	res, err := sb.Run(ctx, sandbox.RunOptions{
//	    ProjectDir: "/path/to/project",
//	    Command:    []string{"npm", "test"},
//	    Class:      sandbox.TaskShort,
//	})
//
// # Run Flow
//
// The Sandbox.Run method:
//  1. Loads the project config and merges it over the global config
//  2. Ensures the backend is ready (installing or starting it if needed)
//  3. Provisions the workspace in a fresh ephemeral root
//  4. Writes the session marker used by gc
//  5. Bridges credentials and builds the environment
//  6. Plans mounts and checks that only the root and project are writable
//  7. Executes the command, recovering from lost backend connections
//  8. Optionally pushes sandbox commits back to the host
//  9. Runs cleanup
//
// Validation errors return before anything is created. From the moment the
// ephemeral root exists its removal is registered with the Coordinator.
//
// # Cleanup
//
// Coordinator runs registered steps once, in reverse order, on every exit
// path including SIGINT, SIGTERM and SIGHUP. Failed steps are logged and
// never change the exit status.
package sandbox
