package runtime

import (
	"sort"
)

// containerSkipEnv are host-only variables never forwarded into containers.
var containerSkipEnv = map[string]bool{
	"PATH":  true,
	"SHELL": true,
}

// envArgs renders --env flags. Keys inherited from the host are passed by
// name only so their values never appear in argv.
func envArgs(spec RunSpec) []string {
	inherited := make(map[string]bool, len(spec.HostEnvKeys))
	for _, k := range spec.HostEnvKeys {
		inherited[k] = true
	}

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		if !containerSkipEnv[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var args []string
	for _, k := range keys {
		if inherited[k] {
			args = append(args, "--env", k)
		} else {
			args = append(args, "--env", k+"="+spec.Env[k])
		}
	}
	return args
}

func labelArgs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []string
	for _, k := range keys {
		args = append(args, "--label", k+"="+labels[k])
	}
	return args
}

func ttyArgs(spec RunSpec) []string {
	switch {
	case spec.Interactive && spec.TTY:
		return []string{"-it"}
	case spec.Interactive:
		return []string{"-i"}
	default:
		return nil
	}
}

// containerRunArgs renders the common `run` arguments for OCI CLIs.
func containerRunArgs(spec RunSpec, mountArgs []string, extra ...string) []string {
	args := []string{"run", "--rm"}
	args = append(args, ttyArgs(spec)...)
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	args = append(args, extra...)
	if spec.Workdir != "" {
		args = append(args, "--workdir", spec.Workdir)
	}
	args = append(args, mountArgs...)
	args = append(args, envArgs(spec)...)
	args = append(args, labelArgs(spec.Labels)...)
	args = append(args, spec.Image)
	return append(args, spec.Command...)
}

func containerBuild(binary string, spec BuildSpec) Invocation {
	args := []string{"build", "-t", spec.Tag}
	if spec.File != "" {
		args = append(args, "-f", spec.File)
	}
	return Invocation{Name: binary, Args: append(args, spec.Context)}
}
