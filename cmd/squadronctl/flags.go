package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/squadron/internal/deploy"
)

type options struct {
	configPath  string
	changed     []string
	changedFrom string
	list        bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var opts options
	fs.StringVar(&opts.configPath, "config", "deploy.toml", "deploy config path")
	fs.Func("changed", "changed path relative to the deployment root (repeatable)", func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty path")
		}
		opts.changed = append(opts.changed, v)
		return nil
	})
	fs.StringVar(&opts.changedFrom, "changed-from", "", "file listing changed paths, one per line (- for stdin)")
	fs.BoolVar(&opts.list, "list", false, "print the merged actions and reactions without running")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// changedPaths merges -changed flags with the -changed-from source.
func (o options) changedPaths(stdin io.Reader) ([]string, error) {
	var fromFile []string
	switch o.changedFrom {
	case "":
	case "-":
		paths, err := deploy.ReadChangedPaths(stdin)
		if err != nil {
			return nil, err
		}
		fromFile = paths
	default:
		f, err := os.Open(o.changedFrom)
		if err != nil {
			return nil, fmt.Errorf("open changed paths: %w", err)
		}
		defer f.Close()
		paths, err := deploy.ReadChangedPaths(f)
		if err != nil {
			return nil, err
		}
		fromFile = paths
	}
	return deploy.MergeChangedPaths(o.changed, fromFile), nil
}
