package installer

// InstallState collects the answers given so far.
type InstallState struct {
	RuntimePath string
	Provider    string
	// EnvVars maps env names to the values the user entered.
	EnvVars map[string]string
	// Written is the .env path after a successful save.
	Written string
}

func NewInstallState(runtimePath string) *InstallState {
	return &InstallState{
		RuntimePath: runtimePath,
		EnvVars:     make(map[string]string),
	}
}
