package main

import (
	"fmt"
	"os"

	"github.com/liamcoop/homeloan/form"
	"github.com/liamcoop/homeloan/internal/logger"
	"github.com/liamcoop/homeloan/pipeline"
	"github.com/urfave/cli/v2"
)

var (
	name    = "loanctl"
	version = "v0.0.1-default"

	artifactFlag = &cli.StringFlag{
		Name:    "artifact",
		Usage:   "Path to the pipeline artifact",
		Value:   pipeline.DefaultArtifactPath,
		EnvVars: []string{"HOMELOAN_PIPELINE_PATH"},
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level written to stderr [trace, debug, info, warn, error]",
		Value: "warn",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, form.ErrorBanner(err).Text())
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            name,
		Version:         version,
		Usage:           "Home loan eligibility from the terminal",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			artifactFlag,
			logLevelFlag,
		},
		Commands: []*cli.Command{
			predictCmd,
			formCmd,
		},
		Before: func(c *cli.Context) error {
			return logger.Setup(c.Context, logger.Options{
				Level:  c.String(logLevelFlag.Name),
				Output: c.App.ErrWriter,
			})
		},
	}
}

// loadPredictor loads the artifact named by --artifact.
func loadPredictor(c *cli.Context) (*pipeline.Predictor, error) {
	p, err := pipeline.Load(c.Context, pipeline.FileSource{Path: c.String(artifactFlag.Name)})
	if err != nil {
		return nil, err
	}
	return pipeline.NewPredictor(p), nil
}
