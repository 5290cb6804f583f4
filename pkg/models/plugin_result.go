package models

// PluginResult is the outcome of one plugin Execute call. Expected failure
// modes (missing input, upstream call failed) are reported here with
// Success=false; only programming errors travel on the Go error channel.
type PluginResult struct {
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

func NewSuccessResult(data map[string]any) *PluginResult {
	if data == nil {
		data = map[string]any{}
	}

	return &PluginResult{Success: true, Data: data}
}

func NewFailureResult(message string) *PluginResult {
	return &PluginResult{Success: false, Data: map[string]any{}, ErrorMessage: message}
}
