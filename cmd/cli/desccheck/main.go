package main

import (
	"fmt"
	"os"
	"time"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	"github.com/core-tools/hsu-procdesc/pkg/errors"
	"github.com/core-tools/hsu-procdesc/pkg/logging"
	"github.com/core-tools/hsu-procdesc/pkg/runner"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config         string        `long:"config" short:"c" description:"path to the process descriptor file (YAML or JSON)" required:"true"`
	Env            string        `long:"env" description:"activation mode selecting the env_<mode> overlay, e.g. production"`
	Strict         bool          `long:"strict" description:"reject unknown descriptor keys"`
	WaitDelay      time.Duration `long:"wait-delay" description:"delay between interrupt and kill in launch plans" default:"10s"`
	LogLevel       string        `long:"log-level" description:"debug, info, warn or error" default:"warn"`
	StructuredLogs bool          `long:"structured-logs" description:"emit JSON logs to stderr"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	logFuncs, sync, err := newLogFuncs(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer sync()

	logger := logging.NewLogger(logPrefix("hsu-procdesc"), logFuncs)

	logger.Debugf("opts: %+v", opts)

	runOptions := runner.RunOptions{
		ConfigFile: opts.Config,
		Mode:       opts.Env,
		Strict:     opts.Strict,
		WaitDelay:  opts.WaitDelay,
	}
	if err := runner.Run(runOptions, os.Stdout, logger); err != nil {
		if field := errors.FieldOf(err); field != "" {
			fmt.Fprintf(os.Stderr, "invalid descriptor field %s\n", field)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		code := runner.ReportFailure(err, logger)
		sync()
		os.Exit(code)
	}
}

// newLogFuncs picks the zap backend or the hsu-core std logger and drops
// everything below the requested level
func newLogFuncs(opts flagOptions) (logging.LogFuncs, func(), error) {
	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return logging.LogFuncs{}, nil, err
	}

	var funcs logging.LogFuncs
	sync := func() {}
	if opts.StructuredLogs {
		backend, err := logging.NewZapBackend(logging.ZapConfig{Level: opts.LogLevel, Format: "json", Output: "stderr"})
		if err != nil {
			return logging.LogFuncs{}, nil, err
		}
		funcs = backend.LogFuncs()
		sync = func() { _ = backend.Sync() }
	} else {
		std := sprintfLogging.NewStdSprintfLogger()
		funcs = logging.LogFuncs{
			Debugf: std.Debugf,
			Infof:  std.Infof,
			Warnf:  std.Warnf,
			Errorf: std.Errorf,
		}
	}

	if level > logging.LogLevelDebug {
		funcs.Debugf = nil
	}
	if level > logging.LogLevelInfo {
		funcs.Infof = nil
	}
	if level > logging.LogLevelWarn {
		funcs.Warnf = nil
	}
	return funcs, sync, nil
}
