package preflight

import (
	"context"
	"strings"

	"spool/internal/config"
	"spool/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the environment checks that gate queue processing. Every
// check here is local and cheap; network probes live in the *FromConfig
// helpers so lanes never stall on a slow endpoint.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if err := cfg.Validate(); err != nil {
		results = append(results, Result{Name: "Configuration", Detail: err.Error()})
	} else {
		results = append(results, Result{Name: "Configuration", Passed: true, Detail: "valid"})
	}

	results = append(results,
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		// Staging holds the source download and the transcoded output at once.
		CheckFreeSpace("Staging space", cfg.Paths.StagingDir, 2*cfg.MaxFileBytes()),
	)

	for _, status := range deps.CheckBinaries(deps.ForConfig(cfg)) {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		results = append(results, Result{Name: "Telegram token", Detail: "telegram.token is not set"})
	} else {
		results = append(results, Result{Name: "Telegram token", Passed: true, Detail: "configured"})
	}

	return results
}
