package installer

// SetupState accumulates the RECALL_* values the wizard collects.
type SetupState struct {
	EnvVars map[string]string
}

func NewSetupState() *SetupState {
	return &SetupState{
		EnvVars: make(map[string]string),
	}
}
