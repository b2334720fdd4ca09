package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wbrown/janus-strata/datalog/annotations"
	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/interpreter"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/storage"
	"github.com/wbrown/janus-strata/datalog/translator"
)

var (
	// Global flags
	verbose bool
	sips    string

	// run flags
	dbPath     string
	encoding   string
	workers    int
	sequential bool
	printRAM   bool
	factDir    string
	outputDir  string
	timeout    time.Duration

	// plan flags
	showIndexes bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datalog",
	Short: "Compile and evaluate stratified Datalog programs",
	Long: `datalog translates YAML Datalog programs into a relational algebra
machine program and evaluates it semi-naively, stratum by stratum.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [program.yaml]",
	Short: "Evaluate a program",
	Long: `Evaluates a program. Input directives read tab separated .facts files
unless they set io=badger, in which case they read the --db store; output
directives print tables unless they name a file or directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runProgram,
}

var planCmd = &cobra.Command{
	Use:   "plan [program.yaml]",
	Short: "Print the RAM program a source program translates to",
	Args:  cobra.ExactArgs(1),
	RunE:  planProgram,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and evaluation annotations")
	rootCmd.PersistentFlags().StringVar(&sips, "sips", "strict", "atom ordering metric (strict, all-bound, max-bound, least-free-vars, delta)")

	runCmd.Flags().StringVar(&dbPath, "db", "", "badger database for io=badger directives")
	runCmd.Flags().StringVar(&encoding, "encoding", "binary", "badger key encoding (binary, l85)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = NumCPU)")
	runCmd.Flags().BoolVar(&sequential, "sequential", false, "disable parallel evaluation")
	runCmd.Flags().BoolVar(&printRAM, "print", false, "print the RAM program before evaluating it")
	runCmd.Flags().StringVarP(&factDir, "facts", "F", "", "directory of input .facts files")
	runCmd.Flags().StringVarP(&outputDir, "output", "D", "", "directory for output files instead of tables")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "abort evaluation after this long")

	planCmd.Flags().BoolVar(&showIndexes, "indexes", false, "also print the index selection of every relation")

	rootCmd.AddCommand(runCmd, planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func compile(path string) (*ram.Program, error) {
	metric, err := translator.ParseSIPS(sips)
	if err != nil {
		return nil, err
	}
	p, err := ast.LoadYAMLFile(path)
	if err != nil {
		return nil, err
	}
	opts := translator.DefaultOptions()
	opts.SIPS = metric
	prog, err := translator.Translate(p, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to translate %s: %w", path, err)
	}
	return prog, nil
}

func planProgram(cmd *cobra.Command, args []string) error {
	prog, err := compile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := ram.Print(out, prog); err != nil {
		return err
	}
	if showIndexes {
		printIndexes(out, prog)
	}
	return nil
}

func printIndexes(w io.Writer, prog *ram.Program) {
	indexes := ram.AnalyseIndexes(prog)
	fmt.Fprintln(w)
	for _, rel := range prog.Relations() {
		if rel.Temporary {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", rel.Name, indexes.Selection(rel.Name))
	}
}

func runProgram(cmd *cobra.Command, args []string) error {
	prog, err := compile(args[0])
	if err != nil {
		return err
	}
	if printRAM {
		if err := ram.Print(cmd.OutOrStdout(), prog); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}

	router := &interpreter.IORouter{
		Default: withDefaults(interpreter.NewFileIO(cmd.OutOrStdout()), map[string]string{
			"fact-dir":   factDir,
			"output-dir": outputDir,
		}),
		Systems: map[string]interpreter.IOSystem{},
	}
	if dbPath != "" {
		strategy, ok := storage.ParseStrategy(encoding)
		if !ok {
			return fmt.Errorf("unknown key encoding %q", encoding)
		}
		store, err := storage.NewBadgerStore(dbPath, storage.NewKeyEncoder(strategy))
		if err != nil {
			return err
		}
		defer store.Close()
		router.Systems["badger"] = store.WithLogger(logger.Named("storage"))
	}

	opts := interpreter.DefaultOptions()
	opts.EnableParallel = !sequential
	opts.Workers = workers
	opts.Logger = logger.Named("interpreter")
	opts.IO = router
	opts.Output = cmd.OutOrStdout()
	if verbose {
		formatter := annotations.NewOutputFormatter(os.Stderr)
		opts.Handler = formatter.Handle
	}

	engine, err := interpreter.NewEngine(prog, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return engine.Run(ctx)
}
