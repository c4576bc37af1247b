package launch

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/core-tools/hsu-procdesc/pkg/descriptor"
)

const DefaultWaitDelay = 10 * time.Second

type ExecutionConfig struct {
	ExecutablePath   string        `yaml:"executable_path"`
	Args             []string      `yaml:"args,omitempty"`
	Environment      []string      `yaml:"environment,omitempty"`
	WorkingDirectory string        `yaml:"working_directory,omitempty"`
	WaitDelay        time.Duration `yaml:"wait_delay,omitempty"`
}

// Plan is everything a supervisor needs to run one instance of a descriptor
type Plan struct {
	ID              string           `yaml:"id"`
	Name            string           `yaml:"name"`
	Instance        int              `yaml:"instance"`
	Execution       ExecutionConfig  `yaml:"execution"`
	RestartPolicy   RestartPolicy    `yaml:"restart_policy"`
	RestartTriggers []RestartTrigger `yaml:"restart_triggers,omitempty"`
	MaxMemoryBytes  int64            `yaml:"max_memory_bytes,omitempty"`
	Watch           bool             `yaml:"watch"`
}

type PlanOptions struct {
	// Mode selects the env_<mode> overlay; empty means base environment only
	Mode string

	// WaitDelay between interrupt and kill; DefaultWaitDelay when zero
	WaitDelay time.Duration

	// BaseDir resolves a relative working directory, usually the descriptor file's directory
	BaseDir string
}

// NewPlans expands a descriptor into one plan per instance
func NewPlans(desc descriptor.ProcessDescriptor, opts PlanOptions) []Plan {
	waitDelay := opts.WaitDelay
	if waitDelay == 0 {
		waitDelay = DefaultWaitDelay
	}

	workDir := ResolveWorkingDirectory(desc.WorkingDirectory(), opts.BaseDir)

	count := desc.InstanceCount()
	plans := make([]Plan, 0, count)
	for i := 0; i < count; i++ {
		env := desc.ActiveEnvironment(opts.Mode)
		env[desc.InstanceVar()] = strconv.Itoa(i)

		id := desc.Name()
		if count > 1 {
			id = fmt.Sprintf("%s-%d", desc.Name(), i)
		}

		plans = append(plans, Plan{
			ID:       id,
			Name:     desc.Name(),
			Instance: i,
			Execution: ExecutionConfig{
				ExecutablePath:   desc.Command(),
				Args:             desc.Args(),
				Environment:      env.Pairs(),
				WorkingDirectory: workDir,
				WaitDelay:        waitDelay,
			},
			RestartPolicy:   restartPolicyFor(desc.Autorestart()),
			RestartTriggers: restartTriggers(desc.Autorestart(), desc.MaxMemoryBeforeRestart(), desc.WatchFilesystem()),
			MaxMemoryBytes:  desc.MaxMemoryBeforeRestart(),
			Watch:           desc.WatchFilesystem(),
		})
	}
	return plans
}

// ResolveWorkingDirectory joins a relative cwd onto baseDir; empty stays empty
func ResolveWorkingDirectory(dir, baseDir string) string {
	if dir != "" && !filepath.IsAbs(dir) && baseDir != "" {
		return filepath.Join(baseDir, dir)
	}
	return dir
}

// BuildPlans expands every descriptor of a set, preserving order
func BuildPlans(descs []descriptor.ProcessDescriptor, opts PlanOptions) []Plan {
	var plans []Plan
	for _, desc := range descs {
		plans = append(plans, NewPlans(desc, opts)...)
	}
	return plans
}
