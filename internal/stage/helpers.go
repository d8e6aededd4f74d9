package stage

import (
	"fmt"
	"os"

	"spool/internal/services"
)

// RequireFile verifies that a stage input produced by an earlier stage still
// exists and is not empty. On failure it returns a services.ErrValidation
// suitable for stage Execute methods, naming the missing artifact.
func RequireFile(stageName, role, path string) error {
	if path == "" {
		return services.Wrap(
			services.ErrValidation, stageName, "locate "+role,
			fmt.Sprintf("%s path missing; rerun the previous stage", role), nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, stageName, "locate "+role,
			fmt.Sprintf("%s not found at %s", role, path), err)
	}
	if info.IsDir() {
		return services.Wrap(
			services.ErrValidation, stageName, "locate "+role,
			fmt.Sprintf("%s path %s is a directory", role, path), nil)
	}
	if info.Size() == 0 {
		return services.Wrap(
			services.ErrValidation, stageName, "locate "+role,
			fmt.Sprintf("%s at %s is empty", role, path), nil)
	}
	return nil
}

// EnsureWorkDir creates the item's scratch directory if it does not exist yet
// and returns its path.
func EnsureWorkDir(path string) error {
	if path == "" {
		return services.Wrap(
			services.ErrValidation, "stage", "ensure work dir",
			"work directory path is empty", nil)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return services.Wrap(
			services.ErrTransient, "stage", "ensure work dir",
			fmt.Sprintf("cannot create work directory %s", path), err)
	}
	return nil
}
