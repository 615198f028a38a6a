// Package workspace provisions the ephemeral, git-aware copy of a project
// that a sandbox runs against.
//
// # Layout
//
// Each session gets its own root under the OS temp directory:
//
//	${tmp}/sandbox-<random>/
//	    workspace/     clone or filtered copy of the project
//	    home-overlay/  HOME inside the sandbox
//	    cache/ config/ tmp/
//
// # Provisioning
//
// A project with commits is cloned shallowly (depth 1, no tags) on its
// current branch. A project without commits is copied, skipping dependency
// and build directories, and gets a fresh repository on the same branch. A
// project that is not a repository at all is initialized in place first.
//
// The host repository is registered in the global safe.directory list
// (idempotently) and its receive.denyCurrentBranch is set from the workspace
// mode, see ReceivePolicyFor.
//
// # Git Links
//
// The host/sandbox relationship is two directed edges. FromHost seeds the
// sandbox; ToHost is used by SyncBack to push sandbox commits home.
//
// # Failure Policy
//
// Validation, clone and copy failures are fatal. Safe-directory, receive
// policy, remote, identity and upstream failures become GitSyncWarnings in
// Provisioned.Warnings and the sandbox stays usable. See Step.Fatal.
package workspace
