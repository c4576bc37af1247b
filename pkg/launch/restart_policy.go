package launch

// RestartPolicy defines whether a crashed process is brought back
type RestartPolicy string

const (
	RestartNever  RestartPolicy = "never"
	RestartAlways RestartPolicy = "always"
)

// RestartTrigger names an event the supervisor must answer with a restart
type RestartTrigger string

const (
	RestartTriggerCrash         RestartTrigger = "crash"
	RestartTriggerMemoryCeiling RestartTrigger = "memory_ceiling"
	RestartTriggerFileChange    RestartTrigger = "file_change"
)

func restartPolicyFor(autorestart bool) RestartPolicy {
	if autorestart {
		return RestartAlways
	}
	return RestartNever
}

// restartTriggers lists triggers in a fixed order: crash, memory ceiling, file change.
// A memory ceiling restarts the process even when autorestart is off.
func restartTriggers(autorestart bool, maxMemory int64, watch bool) []RestartTrigger {
	var triggers []RestartTrigger
	if autorestart {
		triggers = append(triggers, RestartTriggerCrash)
	}
	if maxMemory > 0 {
		triggers = append(triggers, RestartTriggerMemoryCeiling)
	}
	if watch {
		triggers = append(triggers, RestartTriggerFileChange)
	}
	return triggers
}
