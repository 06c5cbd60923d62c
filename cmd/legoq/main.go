package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/longlodw/lego"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal().Err(err).Msg("legoq failed")
	}
}

type config struct {
	input      string
	dbPath     string
	collection string
	pretty     bool
	logLevel   string
	operators  operatorFlags
}

func newRootCommand() *cobra.Command {
	cfg := &config{}
	cmd := &cobra.Command{
		Use:   "legoq",
		Short: "Query a collection of records.",
		Long: `legoq reads a collection of records from a JSON or msgpack file, or from a
lego store, runs the given operators against it and prints the result as JSON.

Operators run filters first, then sorts, then selects, then formats and
limits, whatever order the flags are given in. When both --input and --db
are set the input is saved to the store under --collection before the query
runs.`,
		Example:       `  legoq --input friends.json --filter gender=female --sort age:desc --select name,age --limit 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(cfg.logLevel)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.input, "input", "i", "", "collection file (.json, .msgpack or .mp); - reads JSON from stdin")
	flags.StringVar(&cfg.dbPath, "db", "", "path of a lego store")
	flags.StringVarP(&cfg.collection, "collection", "c", "", "collection name in the store")
	flags.BoolVar(&cfg.pretty, "pretty", false, "indent the JSON output")
	flags.StringVar(&cfg.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringSliceVarP(&cfg.operators.selects, "select", "s", nil, "fields to keep")
	flags.StringArrayVarP(&cfg.operators.filters, "filter", "f", nil, "keep records where field=value[,value...]")
	flags.StringArrayVar(&cfg.operators.ors, "or", nil, "keep records matching any of field=value[,value...]|field=value...")
	flags.StringArrayVar(&cfg.operators.sorts, "sort", nil, "sort by field[:asc|desc]")
	flags.StringArrayVar(&cfg.operators.formats, "format", nil, "format field:upper|lower|trim|string")
	flags.IntVarP(&cfg.operators.limit, "limit", "n", -1, "maximum number of records; negative means no limit")
	return cmd
}

func run(cmd *cobra.Command, cfg *config) error {
	ops, err := cfg.operators.ops()
	if err != nil {
		return err
	}
	if cfg.input == "" && cfg.dbPath == "" {
		return fmt.Errorf("one of --input or --db is required")
	}

	var result lego.Collection
	if cfg.dbPath != "" {
		result, err = queryStore(cmd.InOrStdin(), cfg, ops)
	} else {
		var coll lego.Collection
		coll, err = readInput(cmd.InOrStdin(), cfg.input)
		if err != nil {
			return err
		}
		log.Debug().Str("input", cfg.input).Int("records", len(coll)).Int("operators", len(ops)).Msg("running query")
		result, err = lego.Query(coll, ops...)
	}
	if err != nil {
		return err
	}
	log.Debug().Int("records", len(result)).Msg("query finished")

	encoder := json.NewEncoder(cmd.OutOrStdout())
	if cfg.pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(result)
}

func queryStore(stdin io.Reader, cfg *config, ops []lego.Op) (lego.Collection, error) {
	if cfg.collection == "" {
		return nil, fmt.Errorf("--collection is required with --db")
	}
	db, err := lego.OpenDB(lego.MsgpackMaUn, cfg.dbPath, 0600, &lego.DBOptions{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if cfg.input != "" {
		coll, err := readInput(stdin, cfg.input)
		if err != nil {
			return nil, err
		}
		err = db.Update(func(tx *lego.Tx) error {
			return tx.SaveCollection(cfg.collection, coll)
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("collection", cfg.collection).Int("records", len(coll)).Msg("saved collection")
	}

	var result lego.Collection
	err = db.View(func(tx *lego.Tx) error {
		var err error
		result, err = tx.Query(cfg.collection, ops...)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Stringer("stats", db.Stats()).Msg("store statistics")
	return result, nil
}

func readInput(stdin io.Reader, path string) (lego.Collection, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		coll, err := lego.DecodeCollection(lego.MsgpackMaUn, data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return coll, nil
	default:
		coll, err := lego.DecodeCollection(lego.JsonMaUn, data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return coll, nil
	}
}
