package dockerfacade

// Envelope is the uniform result shape the container and image Facade
// operations return, per spec.md §4.5: `{success, output, error}`; their
// failures are carried in Error. RunTask does not use it: it returns the
// runner id and a Go error.
type Envelope struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

func ok(output string) Envelope {
	return Envelope{Success: true, Output: output}
}

func fail(err error) Envelope {
	return Envelope{Success: false, Error: err.Error()}
}
