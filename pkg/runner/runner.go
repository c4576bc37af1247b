package runner

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/core-tools/hsu-procdesc/pkg/descriptor"
	"github.com/core-tools/hsu-procdesc/pkg/errors"
	"github.com/core-tools/hsu-procdesc/pkg/launch"
	"github.com/core-tools/hsu-procdesc/pkg/logging"

	"gopkg.in/yaml.v3"
)

type RunOptions struct {
	ConfigFile string
	Mode       string
	Strict     bool
	WaitDelay  time.Duration
}

// PlanDocument is what gets handed to the supervisor, rendered as YAML
type PlanDocument struct {
	Mode  string        `yaml:"mode,omitempty"`
	Plans []launch.Plan `yaml:"plans"`
}

// Run loads and validates a descriptor file, expands it into launch plans and
// writes them to out. Nothing is written unless every descriptor and plan is valid.
func Run(options RunOptions, out io.Writer, logger logging.Logger) error {
	if options.ConfigFile == "" {
		return errors.NewValidationError("descriptor file is required", nil)
	}

	logger.Infof("Using DESCRIPTOR FILE: %s", options.ConfigFile)

	descriptors, err := descriptor.LoadFile(options.ConfigFile, descriptor.LoadOptions{Strict: options.Strict})
	if err != nil {
		return err
	}

	logger.Infof("Descriptor file loaded successfully, apps: %d", len(descriptors))
	for _, d := range descriptors {
		if options.Mode != "" {
			if _, ok := d.Overlay(options.Mode); !ok {
				logger.Warnf("App %s has no env_%s overlay, using base environment", d.Name(), options.Mode)
			}
		}
		if d.HasMemoryCeiling() {
			logger.Debugf("App %s memory ceiling: %s", d.Name(), descriptor.FormatMemorySize(d.MaxMemoryBeforeRestart()))
		}
	}

	baseDir, err := filepath.Abs(filepath.Dir(options.ConfigFile))
	if err != nil {
		return errors.NewIOError("failed to resolve descriptor directory", err).WithContext("config_file", options.ConfigFile)
	}

	for i, d := range descriptors {
		if d.WorkingDirectory() == "" {
			continue
		}
		dir := launch.ResolveWorkingDirectory(d.WorkingDirectory(), baseDir)
		if err := launch.ValidateWorkingDirectory(dir); err != nil {
			fieldErr := errors.NewFieldError(fmt.Sprintf("apps[%d].cwd", i), "working directory cannot be used")
			fieldErr.Cause = err
			return fieldErr.WithContext("id", d.Name())
		}
	}

	plans := launch.BuildPlans(descriptors, launch.PlanOptions{
		Mode:      options.Mode,
		WaitDelay: options.WaitDelay,
		BaseDir:   baseDir,
	})
	for _, plan := range plans {
		if err := launch.ValidatePlan(plan); err != nil {
			return errors.NewValidationError("launch plan validation failed", err).WithContext("id", plan.ID)
		}
	}

	logger.Infof("Built %d launch plans", len(plans))

	data, err := yaml.Marshal(PlanDocument{Mode: options.Mode, Plans: plans})
	if err != nil {
		return errors.NewInternalError("failed to render launch plans", err)
	}
	if _, err := out.Write(data); err != nil {
		return errors.NewIOError("failed to write launch plans", err)
	}

	return nil
}

const (
	ExitInvalid  = 1
	ExitInternal = 2
)

// ReportFailure logs err at a level matching its type and returns the exit code.
// Rejected descriptors and unreadable files exit 1, internal failures exit 2.
func ReportFailure(err error, logger logging.Logger) int {
	if errors.IsInternalError(err) {
		logger.LogLevelf(logging.LogLevelError, "Internal failure: %v", err)
		return ExitInternal
	}
	logger.LogLevelf(logging.LogLevelInfo, "Descriptor check failed: %v", err)
	return ExitInvalid
}
