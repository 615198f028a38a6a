// Package app provides the application context for sandboxbox.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Paths    *config.Paths           // Config file and temp root
//	    Config   *config.Config          // Global configuration
//	    Manager  *runtime.Manager        // Backend lifecycle manager
//	    Executor system.CommandExecutor  // External commands
//	    FS       system.FileSystem       // File removal
//	}
//
// Config and Manager are resolved on first use, so commands that need
// neither (help, completion) never touch the disk or the backend.
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a := app.New()
//	sb, err := a.Sandbox("")
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(config.Default()),
//	    app.WithManager(mgr),
//	    app.WithExecutor(mockExec),
//	)
//
// # Available Options
//
//	WithPaths(paths)        // Custom path configuration
//	WithConfig(cfg)         // Preloaded configuration
//	WithManager(mgr)        // Custom backend manager
//	WithExecutor(exec)      // Custom command executor
//	WithFileSystem(fs)      // Custom filesystem
package app
