package bootstrap

import (
	"fmt"
	"os"
)

// saveWorkDir records the process working directory and returns a function
// that changes back to it. The restore function is safe to call more than
// once.
func saveWorkDir() (func() error, error) {
	orig, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	return func() error {
		cur, err := os.Getwd()
		if err == nil && cur == orig {
			return nil
		}

		err = os.Chdir(orig)
		if err != nil {
			return fmt.Errorf("restore working directory %s: %w", orig, err)
		}

		return nil
	}, nil
}
