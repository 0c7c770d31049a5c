package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/liamcoop/homeloan/application"
	"github.com/liamcoop/homeloan/form"
	"github.com/urfave/cli/v2"
)

var (
	inputFlag = &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Usage:   "JSON file with the application, - for stdin",
	}

	setFlag = &cli.StringSliceFlag{
		Name:  "set",
		Usage: "Field=Value override (can be specified multiple times)",
	}

	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the result as JSON",
	}

	predictCmd = &cli.Command{
		Name:  "predict",
		Usage: "Check a single application",
		UsageText: `loanctl predict --input application.json
   loanctl predict --input application.json --set Credit_History=0
   cat application.json | loanctl predict --input - --json`,
		Action: cmdPredict,
		Flags: []cli.Flag{
			inputFlag,
			setFlag,
			jsonFlag,
		},
	}
)

type predictResult struct {
	Verdict  string   `json:"verdict"`
	Warnings []string `json:"warnings,omitempty"`
}

func cmdPredict(c *cli.Context) error {
	// Without a pipeline nothing else is worth reporting
	predictor, err := loadPredictor(c)
	if err != nil {
		return err
	}

	raw, err := readApplication(c.String(inputFlag.Name), c.App.Reader)
	if err != nil {
		return err
	}
	if err := applyOverrides(raw, c.StringSlice(setFlag.Name)); err != nil {
		return err
	}
	if len(raw) == 0 {
		return cli.ShowSubcommandHelp(c)
	}

	app, err := application.New(raw)
	if err != nil {
		var verr *application.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Fprintf(c.App.ErrWriter, "  %s [%s]\n", p.Error(), p.Code())
			}
		}
		return err
	}

	verdict, err := predictor.Predict(app)
	if err != nil {
		return err
	}

	if c.Bool(jsonFlag.Name) {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(predictResult{Verdict: string(verdict), Warnings: app.BucketWarnings()})
	}

	fmt.Fprintln(c.App.Writer, form.VerdictBanner(verdict).Text())
	for _, w := range app.BucketWarnings() {
		fmt.Fprintf(c.App.ErrWriter, "warning: %s\n", w)
	}
	return nil
}

// readApplication decodes the application document at path. An empty path
// yields an empty application to be filled by --set.
func readApplication(path string, stdin io.Reader) (map[string]any, error) {
	raw := map[string]any{}
	if path == "" {
		return raw, nil
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open application: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode application %s: %w", path, err)
	}
	return raw, nil
}

// applyOverrides sets Field=Value pairs on raw. Values stay strings; the
// application validator parses numeric fields.
func applyOverrides(raw map[string]any, pairs []string) error {
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return fmt.Errorf("invalid --set %q, expected Field=Value", pair)
		}
		if _, known := application.Lookup(field); !known {
			return fmt.Errorf("invalid --set %q: unknown field %s", pair, field)
		}
		raw[field] = value
	}
	return nil
}
