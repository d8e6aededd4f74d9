package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"spool/internal/config"
)

// Requirement defines an external dependency Spool relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig builds the requirement set for the configured external tools.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.Download.YtdlpBinary, Description: "Downloads media and probes metadata"},
		{Name: "FFmpeg", Command: cfg.Transcode.FFmpegBinary, Description: "Extracts audio and remuxes video"},
		{Name: "FFprobe", Command: cfg.Transcode.FFprobeBinary, Description: "Inspects downloaded containers"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(cmd); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Available = true
	return status
}
