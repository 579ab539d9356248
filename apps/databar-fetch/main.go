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

// Command databar-fetch downloads a databar table and prints it as text or
// CSV, keeping a local cache of downloaded tables.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/a-tsitanov/databar-go/cache"
	"github.com/a-tsitanov/databar-go/databar"
	"github.com/a-tsitanov/databar-go/table"
)

type Flags struct {
	Config   string // config file with the API key; required
	Table    int    // id of the table to fetch; required
	CacheDir string // default: ~/.databar
	Refresh  bool   // re-download even when cached
	Rows     int    // max. rows to print; 0 = all
	CSV      bool   // dump CSV format; default: text.
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("databar-fetch", flag.ExitOnError)
	fs.StringVar(&flags.Config, "conf", "", "config file (required)")
	fs.IntVar(&flags.Table, "table", 0, "id of the table to fetch (required)")
	fs.StringVar(&flags.CacheDir, "cache",
		filepath.Join(os.Getenv("HOME"), ".databar"),
		"path to the local table cache")
	fs.BoolVar(&flags.Refresh, "refresh", false,
		"re-download the table even when it is cached")
	fs.IntVar(&flags.Rows, "rows", 0, "max. number of rows to print; 0 = all")
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
	if flags.Table <= 0 {
		return nil, errors.Reason("missing required -table argument")
	}
	return &flags, err
}

type Config struct {
	Key      string `toml:"key"`      // user key for databar.ai
	PerPage  int    `toml:"per_page"` // rows per page; 0 = default
	Parallel int    `toml:"parallel"` // concurrent page fetches; 0 = default
}

func parseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `key = "YourSecretDatabarKey"
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
	return &c, nil
}

// fetchTable returns the cached table unless a refresh is requested, and
// downloads and caches it otherwise.
func fetchTable(ctx context.Context, flags *Flags, config *Config) (*cache.CachedTable, error) {
	if !flags.Refresh {
		ct, err := cache.Load(flags.CacheDir, flags.Table)
		if err == nil {
			logging.Infof(ctx, "using table %d cached at %s",
				flags.Table, ct.FetchedAt)
			return ct, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Annotate(err, "failed to read the cache")
		}
	}
	ctx = databar.UseClientOptions(ctx, config.Key, databar.Options{
		PerPage:  config.PerPage,
		Parallel: config.Parallel,
	})
	tbl := databar.NewTable(flags.Table)
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to download table %d", flags.Table)
	}
	columns, err := tbl.Columns(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to resolve columns of table %d", flags.Table)
	}
	records := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		records[i] = r
	}
	if err := cache.Save(flags.CacheDir, flags.Table, columns, records); err != nil {
		return nil, errors.Annotate(err, "failed to cache table %d", flags.Table)
	}
	return cache.Load(flags.CacheDir, flags.Table)
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	ct, err := fetchTable(ctx, flags, config)
	if err != nil {
		return errors.Annotate(err, "failed to fetch table %d", flags.Table)
	}
	tbl := table.FromRecords(ct.Columns, ct.Rows)
	if flags.CSV {
		if err := tbl.WriteCSV(w, table.Params{Rows: flags.Rows}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, table.Params{Rows: flags.Rows}); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
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

	if err := printData(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
