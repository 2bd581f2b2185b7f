// Package cli implements the cellcluster command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"web/cellcluster/cluster"
	"web/cellcluster/dataset"
	"web/cellcluster/internal/config"
	"web/cellcluster/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Env carries the process dependencies of the commands.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// ExecutableDir returns the directory input files are resolved against.
	ExecutableDir func() (string, error)
}

// DefaultEnv uses the process streams and the running binary's directory.
func DefaultEnv() Env {
	return Env{
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		ExecutableDir: executableDir,
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("can't retrieve executable path: %w", err)
	}
	return filepath.Dir(exe), nil
}

// ResolveInput joins name onto the executable directory. Absolute names are
// used as given.
func ResolveInput(env Env, name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := env.ExecutableDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// exactArgs is cobra.ExactArgs that also prints usage to stderr. SilenceUsage
// keeps usage off every other error.
func exactArgs(n int) cobra.PositionalArgs {
	check := cobra.ExactArgs(n)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
			return err
		}
		return nil
	}
}

type rootFlags struct {
	configPath string
	format     string
	logLevel   string
	save       string
	saveMapped string
}

// NewRootCommand builds the command tree.
func NewRootCommand(env Env) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "cellcluster <points-file>",
		Short: "Cluster points of the unit square by a fixed linkage radius",
		Long: "Reads a radius and a list of points, groups points that are chained\n" +
			"together by hops of at most radius, and prints the cell labels and the\n" +
			"cluster sizes. The file is resolved relative to the binary's directory.",
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(&flags)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runCluster(env, cfg, logger, &flags, args[0])
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().StringVar(&flags.format, "format", "", "output format: text or json")
	cmd.Flags().StringVar(&flags.save, "save", "", "write a compressed snapshot of the result")
	cmd.Flags().StringVar(&flags.saveMapped, "save-mapped", "", "write an uncompressed, memory mapped snapshot of the result")

	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)
	cmd.AddCommand(newGenerateCommand(env), newShowCommand(env))
	return cmd
}

func setup(flags *rootFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.format != "" {
		cfg.Format = flags.format
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Production)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runCluster(env Env, cfg *config.Config, logger *zap.Logger, flags *rootFlags, name string) error {
	path, err := ResolveInput(env, name)
	if err != nil {
		return err
	}

	ds, err := dataset.Load(path)
	if err != nil {
		return err
	}
	logger.Debug("dataset loaded",
		zap.String("path", path),
		zap.Int("points", len(ds.Points)),
		zap.Float64("radius", ds.Radius))

	start := time.Now()
	l, err := cluster.Cluster(ds.Points, ds.Radius, cluster.WithMaxCells(cfg.MaxCells))
	if err != nil {
		return err
	}
	logger.Info("clustering finished",
		zap.Int("points", l.NumPoints()),
		zap.Int("grid", l.Size),
		zap.Int("clusters", l.NumClusters()),
		zap.Duration("took", time.Since(start)))

	if flags.save != "" {
		if err := cluster.SaveCompressed(flags.save, l); err != nil {
			return err
		}
		logger.Info("snapshot saved", zap.String("path", flags.save))
	}
	if flags.saveMapped != "" {
		if err := cluster.SaveMapped(flags.saveMapped, l); err != nil {
			return err
		}
		logger.Info("mapped snapshot saved", zap.String("path", flags.saveMapped))
	}

	return render(env.Stdout, cfg.Format, l)
}

func render(w io.Writer, format string, l *cluster.Labeling) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l.Report())
	}
	if err := cluster.WriteMatrix(w, l); err != nil {
		return err
	}
	return cluster.WriteSizes(w, l.Sizes())
}

func newGenerateCommand(env Env) *cobra.Command {
	var (
		numPoints int
		radius    float64
		seed      int64
		out       string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random points file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Generate(numPoints, radius, seed)
			if err != nil {
				return err
			}
			if out == "" {
				return dataset.Write(env.Stdout, ds)
			}
			if err := dataset.Save(out, ds); err != nil {
				return err
			}
			fmt.Fprintf(env.Stderr, "Points file generated at '%s' with %d points.\n", out, numPoints)
			return nil
		},
	}
	cmd.Flags().IntVar(&numPoints, "points", 30, "number of points")
	cmd.Flags().Float64Var(&radius, "radius", 0.2, "clustering radius written on the first line")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	return cmd
}

func newShowCommand(env Env) *cobra.Command {
	var (
		format string
		mapped bool
	)
	cmd := &cobra.Command{
		Use:   "show <snapshot>",
		Short: "Print a saved snapshot",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				l   *cluster.Labeling
				err error
			)
			if mapped {
				l, err = cluster.LoadMapped(args[0])
			} else {
				l, err = cluster.LoadCompressed(args[0])
			}
			if err != nil {
				return err
			}
			if format == "summary" {
				enc := json.NewEncoder(env.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cluster.Summarize(l))
			}
			return render(env.Stdout, format, l)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or summary")
	cmd.Flags().BoolVar(&mapped, "mapped", false, "read a snapshot written with --save-mapped")
	return cmd
}
