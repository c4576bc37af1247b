package descriptor

// Merge returns a new environment holding base with override applied on top.
// Keys present in both take the override value. Neither input is modified.
func Merge(base, override Environment) Environment {
	merged := base.Clone()
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// ActiveEnvironment returns the environment for an activation mode.
// An empty mode, or a mode without an env_<mode> overlay, yields the base environment.
func (d ProcessDescriptor) ActiveEnvironment(mode string) Environment {
	if mode == "" {
		return d.environment.Clone()
	}
	overlay, ok := d.overlays[mode]
	if !ok {
		return d.environment.Clone()
	}
	return Merge(d.environment, overlay)
}
