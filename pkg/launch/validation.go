package launch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-procdesc/pkg/errors"
)

// ValidateExecutionConfig validates execution configuration before hand-off.
// The executable may be a bare name resolved through PATH at start time.
func ValidateExecutionConfig(config ExecutionConfig) error {
	if strings.TrimSpace(config.ExecutablePath) == "" {
		return errors.NewValidationError("executable path is required", nil)
	}

	if config.WorkingDirectory != "" {
		if err := ValidateWorkingDirectory(config.WorkingDirectory); err != nil {
			return err
		}
	}

	for _, env := range config.Environment {
		if strings.Index(env, "=") <= 0 {
			return errors.NewValidationError("invalid environment variable format: "+env, nil)
		}
	}

	if config.WaitDelay < 0 {
		return errors.NewValidationError("wait delay cannot be negative", nil)
	}

	return nil
}

// ValidateWorkingDirectory requires an absolute path to an existing directory
func ValidateWorkingDirectory(dir string) error {
	if !filepath.IsAbs(dir) {
		return errors.NewValidationError("working directory must be absolute path", nil).
			WithContext("working_directory", dir)
	}

	if info, err := os.Stat(dir); err != nil {
		return errors.NewValidationError("working directory not accessible: "+dir, err)
	} else if !info.IsDir() {
		return errors.NewValidationError("working directory is not a directory: "+dir, nil)
	}
	return nil
}

// ValidatePlan checks a plan is complete enough to hand to a supervisor
func ValidatePlan(plan Plan) error {
	if plan.ID == "" {
		return errors.NewValidationError("plan ID cannot be empty", nil)
	}

	if err := ValidateExecutionConfig(plan.Execution); err != nil {
		return errors.NewValidationError("invalid execution configuration", err).WithContext("id", plan.ID)
	}

	switch plan.RestartPolicy {
	case RestartAlways, RestartNever:
	default:
		return errors.NewValidationError("unsupported restart policy: "+string(plan.RestartPolicy), nil).
			WithContext("id", plan.ID)
	}

	if plan.MaxMemoryBytes < 0 {
		return errors.NewValidationError("memory ceiling cannot be negative", nil).WithContext("id", plan.ID)
	}

	return nil
}
