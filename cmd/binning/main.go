// Command binning bins and restores arrays held in a local zarr v2 directory.
//
//	binning --store data compress --bins 4,4,1,1 frames/raw frames/small
//	binning --store data decompress frames/small frames/restored
//	binning --store data info
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/qri-io/binning-go"
	"github.com/spf13/cobra"
)

var (
	errColor    = color.New(color.FgRed, color.Bold)
	headerColor = color.New(color.FgCyan, color.Bold)
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		code, msg := binning.Status(err)
		errColor.Fprintln(os.Stderr, "error:", msg)
		os.Exit(code)
	}
}

type settings struct {
	store    string
	trace    string
	plugin   string
	bins     string
	threads  int
	rounding string
	codec    string
}

func newRootCmd(out io.Writer) *cobra.Command {
	s := &settings{}
	root := &cobra.Command{
		Use:           "binning",
		Short:         "Reduce rank-4 arrays by averaging blocks and broadcast them back",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupTracing(s.trace)
		},
	}
	root.SetOut(out)
	pf := root.PersistentFlags()
	pf.StringVar(&s.store, "store", ".", "directory holding the arrays")
	pf.StringVar(&s.trace, "trace", "error", "trace level: error, info or debug")

	root.AddCommand(
		compressCmd(s),
		decompressCmd(s),
		infoCmd(s),
		pluginsCmd(),
	)
	return root
}

func setupTracing(level string) error {
	gtrace.CoreTracer = gologadapter.New()
	switch strings.ToLower(level) {
	case "error":
		gtrace.CoreTracer.SetTraceLevel(tracing.LevelError)
	case "info":
		gtrace.CoreTracer.SetTraceLevel(tracing.LevelInfo)
	case "debug":
		gtrace.CoreTracer.SetTraceLevel(tracing.LevelDebug)
	default:
		return fmt.Errorf("%w: unknown trace level %q", binning.ErrInvalidConfig, level)
	}
	return nil
}

func transformFlags(cmd *cobra.Command, s *settings) {
	f := cmd.Flags()
	f.StringVar(&s.plugin, "plugin", binning.Prefix, "registered transform to use")
	f.StringVar(&s.bins, "bins", "", "bin size per axis, e.g. 2,2,1,1 (default "+binning.FormatInts(binning.DefaultBins)+")")
	f.IntVar(&s.threads, "threads", 0, "worker goroutines, 0 uses "+binning.EnvThreads+" or GOMAXPROCS")
	f.StringVar(&s.rounding, "rounding", "", "rounding of integer means: truncate or nearest")
}

// configure looks up the selected plugin and applies the flags which were set.
func (s *settings) configure(cmd *cobra.Command) (binning.Plugin, error) {
	p, err := binning.Builtin().Lookup(s.plugin)
	if err != nil {
		return nil, err
	}
	opts := binning.Options{}
	if cmd.Flags().Changed("bins") {
		opts[binning.OptBins] = s.bins
	}
	if cmd.Flags().Changed("threads") {
		opts[binning.OptThreads] = s.threads
	}
	if cmd.Flags().Changed("rounding") {
		opts[binning.OptRounding] = s.rounding
	}
	if err := p.CheckOptions(opts); err != nil {
		return nil, err
	}
	return p, p.SetOptions(opts)
}

func compressCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compress SRC DST",
		Short: "Bin the array at SRC and store the result at DST",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.configure(cmd)
			if err != nil {
				return err
			}
			store, err := binning.NewLocalStore(s.store)
			if err != nil {
				return err
			}
			src, err := binning.Open(store, args[0])
			if err != nil {
				return err
			}
			binned, err := p.Compress(src.Array)
			if err != nil {
				return err
			}
			bins, _, err := p.Options().Ints(binning.OptBins)
			if err != nil {
				return err
			}
			if err := binning.SaveBinned(store, args[1], binned, bins, src.Dims(), s.codec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %v -> %s %v\n", args[0], src.Dims(), args[1], binned.Dims())
			return nil
		},
	}
	transformFlags(cmd, s)
	cmd.Flags().StringVar(&s.codec, "codec", binning.CodecZstd, `codec for stored values, "" stores raw bytes`)
	return cmd
}

func decompressCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decompress SRC DST",
		Short: "Restore the binned array at SRC to its original shape and store it at DST",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.configure(cmd)
			if err != nil {
				return err
			}
			c, ok := p.(*binning.Compressor)
			if !ok {
				return fmt.Errorf("%w: plugin %q cannot restore stored arrays", binning.ErrInvalidConfig, s.plugin)
			}
			store, err := binning.NewLocalStore(s.store)
			if err != nil {
				return err
			}
			src, err := binning.Open(store, args[0])
			if err != nil {
				return err
			}
			out, err := src.Restore(c)
			if err != nil {
				return err
			}
			if err := binning.Save(store, args[1], out, binning.SaveOptions{Codec: s.codec}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %v -> %s %v\n", args[0], src.Dims(), args[1], out.Dims())
			return nil
		},
	}
	transformFlags(cmd, s)
	cmd.Flags().StringVar(&s.codec, "codec", binning.CodecZstd, `codec for stored values, "" stores raw bytes`)
	return cmd
}

func infoCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "info [PATH...]",
		Short: "Describe stored arrays, all of them if no path is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := binning.NewLocalStore(s.store)
			if err != nil {
				return err
			}
			paths := args
			if len(paths) == 0 {
				if paths, err = binning.Arrays(store); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			for _, path := range paths {
				a, err := binning.Open(store, path)
				if err != nil {
					return err
				}
				headerColor.Fprintln(w, path)
				codec := "raw"
				if a.Meta.Compressor != nil {
					codec = a.Meta.Compressor.ID
				}
				fmt.Fprintf(w, "  dtype %s  shape %s  codec %s\n", a.Dtype(), binning.FormatInts(a.Dims()), codec)
				if bins, ok := a.Meta.Binning(); ok {
					fmt.Fprintf(w, "  bins %s", binning.FormatInts(bins))
					if dims, ok := a.Attrs.OriginalShape(); ok {
						fmt.Fprintf(w, "  original shape %s", binning.FormatInts(dims))
					}
					fmt.Fprintln(w)
				}
			}
			return nil
		},
	}
}

func pluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the registered transforms and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			reg := binning.Builtin()
			for _, name := range reg.Names() {
				p, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				headerColor.Fprintf(w, "%s %s\n", name, p.Version())
				doc := p.Documentation()
				opts := p.Options()
				for _, k := range doc.Keys() {
					if v, ok := opts[k]; ok {
						fmt.Fprintf(w, "  %-18s %v\n", k, v)
						fmt.Fprintf(w, "  %-18s %s\n", "", doc[k])
					} else {
						fmt.Fprintf(w, "  %s\n", doc[k])
					}
				}
			}
			return nil
		},
	}
}
