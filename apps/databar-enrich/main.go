// Copyright 2023 Databar Go Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command databar-enrich runs the rows of a CSV file through a databar
// dataset and prints the enriched rows, each input row joined with its own
// result.
package main

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"flag"
	"io"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/a-tsitanov/databar-go/databar"
	"github.com/a-tsitanov/databar-go/table"
)

type Flags struct {
	Config   string // config file with the API key and mapping; required
	Input    string // input CSV file; required
	CSV      bool   // dump CSV format; default: text.
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("databar-enrich", flag.ExitOnError)
	fs.StringVar(&flags.Config, "conf", "", "config file (required)")
	fs.StringVar(&flags.Input, "in", "", "input CSV file (required)")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Config == "" {
		return nil, errors.Reason("missing required -conf argument")
	}
	if flags.Input == "" {
		return nil, errors.Reason("missing required -in argument")
	}
	return &flags, err
}

type Config struct {
	Key           string            `toml:"key"`     // user key for databar.ai
	Dataset       int               `toml:"dataset"` // id of the dataset to run
	Mapping       map[string]string `toml:"mapping"` // parameter -> input column
	Pagination    int               `toml:"pagination"`
	Authorization int               `toml:"authorization"`
}

func parseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `key = "YourSecretDatabarKey"
dataset = 123

[mapping]
query = "your_input_column"
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
			return nil, err
		} else {
			return nil, errors.Annotate(err,
				"cannot check config file for existence: '%s'", filePath)
		}
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if c.Dataset <= 0 {
		return nil, errors.Reason("config %s: dataset id is required", filePath)
	}
	if len(c.Mapping) == 0 {
		return nil, errors.Reason("config %s: mapping is required", filePath)
	}
	return &c, nil
}

// readCSV reads the input file into the header and one record per row.
func readCSV(filePath string) ([]string, []databar.RowRecord, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to open input file %s", filePath)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	lines, err := cr.ReadAll()
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to read input file %s", filePath)
	}
	if len(lines) == 0 {
		return nil, nil, errors.Reason("input file %s is empty", filePath)
	}
	header := lines[0]
	rows := make([]databar.RowRecord, len(lines)-1)
	for i, line := range lines[1:] {
		row := make(databar.RowRecord, len(header))
		for j, col := range header {
			row[col] = line[j]
		}
		rows[i] = row
	}
	return header, rows, nil
}

// outputColumns orders the enriched columns: the input header first, renamed
// where the join suffixed it, then the newly added columns sorted by name.
func outputColumns(header []string, rows []databar.RowRecord) []string {
	present := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			present[col] = true
		}
	}
	var columns []string
	seen := make(map[string]bool)
	for _, col := range header {
		if !present[col] && present[col+"_caller"] {
			col += "_caller"
		}
		columns = append(columns, col)
		seen[col] = true
	}
	var added []string
	for col := range present {
		if !seen[col] {
			added = append(added, col)
		}
	}
	sort.Strings(added)
	return append(columns, added...)
}

func toTable(columns []string, rows []databar.RowRecord) *table.Table {
	records := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		records[i] = r
	}
	return table.FromRecords(columns, records)
}

func printTable(flags *Flags, tbl *table.Table, w io.Writer) error {
	if flags.CSV {
		if err := tbl.WriteCSV(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func enrich(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	header, rows, err := readCSV(flags.Input)
	if err != nil {
		return errors.Annotate(err, "failed to read the input")
	}
	ctx = databar.UseClient(ctx, config.Key)
	out, err := databar.Enrich(ctx, rows, config.Dataset, config.Mapping,
		databar.EnrichOptions{
			Pagination:    config.Pagination,
			Authorization: config.Authorization,
		})
	if err != nil {
		var jobErr *databar.JobFailedError
		if stderrors.As(err, &jobErr) {
			logging.Errorf(ctx, "job %s failed, diagnostics follow", jobErr.ID)
			if printErr := printTable(flags, toTable(
				outputColumns(nil, jobErr.Detail), jobErr.Detail), w); printErr != nil {
				return errors.Annotate(printErr, "failed to print diagnostics")
			}
		}
		return errors.Annotate(err, "failed to enrich the input")
	}
	return printTable(flags, toTable(outputColumns(header, out), out), w)
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := enrich(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
