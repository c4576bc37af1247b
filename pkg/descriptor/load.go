package descriptor

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/core-tools/hsu-procdesc/pkg/errors"

	"gopkg.in/yaml.v3"
)

const (
	appsKey       = "apps"
	overlayPrefix = "env_"
)

var knownAppKeys = map[string]bool{
	"name":               true,
	"script":             true,
	"args":               true,
	"env":                true,
	"instances":          true,
	"autorestart":        true,
	"watch":              true,
	"max_memory_restart": true,
	"cwd":                true,
	"instance_var":       true,
}

// LoadOptions tunes how strictly a descriptor file is read
type LoadOptions struct {
	// Strict rejects keys the loader does not understand instead of ignoring them
	Strict bool
}

// LoadFile reads and validates a YAML or JSON descriptor file
func LoadFile(filename string, opts LoadOptions) ([]ProcessDescriptor, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read descriptor file", err).WithContext("filename", filename)
	}

	descriptors, err := LoadBytes(data, opts)
	if err != nil {
		var domainErr *errors.DomainError
		if stderrors.As(err, &domainErr) {
			domainErr.WithContext("filename", filename)
		}
		return nil, err
	}
	return descriptors, nil
}

// LoadBytes decodes a YAML or JSON document and validates it
func LoadBytes(data []byte, opts LoadOptions) ([]ProcessDescriptor, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewValidationError("failed to parse descriptor document", err)
	}
	return Load(raw, opts)
}

// Load validates a decoded descriptor document. The document must hold a
// non-empty "apps" list. Validation is all-or-nothing: the first violation is
// returned as a validation DomainError carrying the offending field path.
func Load(raw map[string]interface{}, opts LoadOptions) ([]ProcessDescriptor, error) {
	value, ok := raw[appsKey]
	if !ok || value == nil {
		return nil, errors.NewFieldError(appsKey, "at least one app must be defined")
	}
	apps, ok := value.([]interface{})
	if !ok {
		return nil, errors.NewFieldError(appsKey, fmt.Sprintf("apps must be a list, got %T", value))
	}
	if len(apps) == 0 {
		return nil, errors.NewFieldError(appsKey, "at least one app must be defined")
	}

	if opts.Strict {
		for _, key := range sortedKeys(raw) {
			if key != appsKey {
				return nil, errors.NewFieldError(key, "unknown field")
			}
		}
	}

	seen := make(map[string]int, len(apps))
	descriptors := make([]ProcessDescriptor, 0, len(apps))
	for i, app := range apps {
		path := fmt.Sprintf("%s[%d]", appsKey, i)

		entry, ok := asMap(app)
		if !ok {
			return nil, errors.NewFieldError(path, fmt.Sprintf("app must be a mapping, got %T", app))
		}

		descriptor, err := loadApp(entry, path, opts)
		if err != nil {
			return nil, err
		}

		if prev, exists := seen[descriptor.name]; exists {
			return nil, errors.NewFieldError(
				fieldPath(path, "name"),
				fmt.Sprintf("duplicate name '%s', already used by %s[%d]", descriptor.name, appsKey, prev),
			)
		}
		seen[descriptor.name] = i

		descriptors = append(descriptors, descriptor)
	}

	return descriptors, nil
}

func loadApp(entry map[string]interface{}, path string, opts LoadOptions) (ProcessDescriptor, error) {
	d := ProcessDescriptor{
		environment:   Environment{},
		overlays:      map[string]Environment{},
		instanceCount: DefaultInstanceCount,
		autorestart:   true,
		instanceVar:   DefaultInstanceVar,
	}

	var err error
	if d.name, err = requireString(entry, path, "name"); err != nil {
		return ProcessDescriptor{}, err
	}
	if d.command, err = requireString(entry, path, "script"); err != nil {
		return ProcessDescriptor{}, err
	}

	if value := entry["instances"]; value != nil {
		if d.instanceCount, err = parseInstances(value, fieldPath(path, "instances")); err != nil {
			return ProcessDescriptor{}, err
		}
	}

	if value := entry["max_memory_restart"]; value != nil {
		if d.maxMemoryRestart, err = parseMemoryField(value, fieldPath(path, "max_memory_restart")); err != nil {
			return ProcessDescriptor{}, err
		}
	}

	if value := entry["env"]; value != nil {
		if d.environment, err = parseEnvironment(value, fieldPath(path, "env")); err != nil {
			return ProcessDescriptor{}, err
		}
	}
	for _, key := range sortedKeys(entry) {
		mode, isOverlay := overlayMode(key)
		if !isOverlay || entry[key] == nil {
			continue
		}
		overlay, err := parseEnvironment(entry[key], fieldPath(path, key))
		if err != nil {
			return ProcessDescriptor{}, err
		}
		d.overlays[mode] = overlay
	}

	if value := entry["args"]; value != nil {
		if d.args, err = parseArgs(value, fieldPath(path, "args")); err != nil {
			return ProcessDescriptor{}, err
		}
	}

	if d.autorestart, err = optionalBool(entry, path, "autorestart", true); err != nil {
		return ProcessDescriptor{}, err
	}
	if d.watchFilesystem, err = optionalBool(entry, path, "watch", false); err != nil {
		return ProcessDescriptor{}, err
	}

	if d.workingDirectory, _, err = optionalString(entry, path, "cwd"); err != nil {
		return ProcessDescriptor{}, err
	}

	instanceVar, set, err := optionalString(entry, path, "instance_var")
	if err != nil {
		return ProcessDescriptor{}, err
	}
	if set {
		if strings.TrimSpace(instanceVar) == "" || strings.Contains(instanceVar, "=") {
			return ProcessDescriptor{}, errors.NewFieldError(fieldPath(path, "instance_var"), fmt.Sprintf("invalid variable name %q", instanceVar))
		}
		d.instanceVar = instanceVar
	}

	if opts.Strict {
		for _, key := range sortedKeys(entry) {
			if _, isOverlay := overlayMode(key); !knownAppKeys[key] && !isOverlay {
				return ProcessDescriptor{}, errors.NewFieldError(fieldPath(path, key), "unknown field")
			}
		}
	}

	return d, nil
}

// overlayMode maps "env_production" to "production"
func overlayMode(key string) (string, bool) {
	if !strings.HasPrefix(key, overlayPrefix) || len(key) == len(overlayPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, overlayPrefix), true
}
