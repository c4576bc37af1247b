package descriptor

import "sort"

const (
	DefaultInstanceCount = 1
	DefaultInstanceVar   = "NODE_APP_INSTANCE"
)

// Environment maps variable names to values
type Environment map[string]string

// Clone returns an independent copy; a nil Environment clones to an empty one
func (e Environment) Clone() Environment {
	out := make(Environment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Pairs renders the environment as sorted KEY=VALUE entries, the form exec.Cmd expects
func (e Environment) Pairs() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+e[k])
	}
	return pairs
}

// ProcessDescriptor is a validated description of one supervised process.
// It is only produced by Load and friends and never changes afterwards;
// accessors hand out copies.
type ProcessDescriptor struct {
	name             string
	command          string
	args             []string
	environment      Environment
	overlays         map[string]Environment
	instanceCount    int
	autorestart      bool
	watchFilesystem  bool
	maxMemoryRestart int64
	workingDirectory string
	instanceVar      string
}

func (d ProcessDescriptor) Name() string { return d.name }

// Command is the executable or launcher name (the "script" key)
func (d ProcessDescriptor) Command() string { return d.command }

func (d ProcessDescriptor) Args() []string {
	return append([]string(nil), d.args...)
}

// Environment is the base environment, without any mode overlay
func (d ProcessDescriptor) Environment() Environment { return d.environment.Clone() }

// Overlay returns the env_<mode> overlay and whether it was declared
func (d ProcessDescriptor) Overlay(mode string) (Environment, bool) {
	overlay, ok := d.overlays[mode]
	if !ok {
		return nil, false
	}
	return overlay.Clone(), true
}

// Modes lists the activation modes that carry an overlay, sorted
func (d ProcessDescriptor) Modes() []string {
	modes := make([]string, 0, len(d.overlays))
	for mode := range d.overlays {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

func (d ProcessDescriptor) InstanceCount() int { return d.instanceCount }

func (d ProcessDescriptor) Autorestart() bool { return d.autorestart }

func (d ProcessDescriptor) WatchFilesystem() bool { return d.watchFilesystem }

// MaxMemoryBeforeRestart is the memory ceiling in bytes, 0 when unset
func (d ProcessDescriptor) MaxMemoryBeforeRestart() int64 { return d.maxMemoryRestart }

func (d ProcessDescriptor) HasMemoryCeiling() bool { return d.maxMemoryRestart > 0 }

func (d ProcessDescriptor) WorkingDirectory() string { return d.workingDirectory }

// InstanceVar names the variable that carries the instance index
func (d ProcessDescriptor) InstanceVar() string { return d.instanceVar }
