package launch

import (
	"context"
	"os"
	"os/exec"

	"github.com/core-tools/hsu-procdesc/pkg/errors"
	"github.com/core-tools/hsu-procdesc/pkg/logging"
)

// Command builds an unstarted command for the plan. The child inherits the
// current process environment with the plan environment applied on top.
// Starting, waiting and restarting are left to the supervisor.
func (p Plan) Command(ctx context.Context, logger logging.Logger) (*exec.Cmd, error) {
	if ctx == nil {
		return nil, errors.NewValidationError("context cannot be nil", nil).WithContext("id", p.ID)
	}

	if err := ValidatePlan(p); err != nil {
		logger.Errorf("Plan validation failed, id: %s, error: %v", p.ID, err)
		return nil, err
	}

	executablePath, err := exec.LookPath(p.Execution.ExecutablePath)
	if err != nil {
		return nil, errors.NewIOError("executable not found", err).
			WithContext("id", p.ID).
			WithContext("executable_path", p.Execution.ExecutablePath)
	}

	logger.Debugf("Preparing process, id: %s, executable path: '%s', args: %v, working directory: '%s'",
		p.ID, executablePath, p.Execution.Args, p.Execution.WorkingDirectory)

	cmd := exec.CommandContext(ctx, executablePath, p.Execution.Args...)
	cmd.Dir = p.Execution.WorkingDirectory
	cmd.Env = append(os.Environ(), p.Execution.Environment...)

	setupProcessAttributes(cmd)

	// wait after sending the interrupt signal, before sending the kill signal
	cmd.WaitDelay = p.Execution.WaitDelay

	logger.Infof("Prepared process, id: %s, restart policy: %s, triggers: %v", p.ID, p.RestartPolicy, p.RestartTriggers)

	return cmd, nil
}
