// Command spoold runs the spool daemon in the foreground. It is the
// no-argument entrypoint for service managers; `spool daemon run` starts the
// identical process through the CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"spool/internal/config"
	"spool/internal/daemonrun"
)

type runFlags struct {
	configPath string
	logLevel   string
}

func parseFlags(fs *flag.FlagSet, args []string) (runFlags, error) {
	var flags runFlags
	fs.StringVar(&flags.configPath, "config", "", "configuration file path")
	fs.StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	if err := fs.Parse(args); err != nil {
		return runFlags{}, err
	}
	return flags, nil
}

func main() {
	flags, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	cfg, _, _, err := config.Load(flags.configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: flags.logLevel}); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Fatalf("run daemon: %v", err)
		}
	}
}
