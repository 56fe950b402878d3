package processes

import "fmt"

// SpawnError reports that the backend executable could not be started, either
// because it does not exist or because the OS refused to create the process.
type SpawnError struct {
	Path string
	Args []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn backend %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
