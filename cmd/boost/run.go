package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thalesfsp/boost"
	"github.com/thalesfsp/boost/benchmarks"
)

var (
	// CLI flags for the driver loop
	benchmarkName  string // Synthetic objective to optimise
	tablePath      string // Fixed table of evaluated points, replaces the benchmark
	useBoost       bool   // Recommend a combination before every step
	kernelName     string // Kernel when not boosting
	acquisitionFn  string // Acquisition function when not boosting
	initialSamples int    // Size of the initial design
	maxIterations  int    // Total evaluation budget
	outPath        string // Where to write the results as YAML
)

// runCmd executes one driver run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run Bayesian optimisation on a benchmark or a fixed table",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runOptimization(cmd.Context(), cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
	},
}

func runOptimization(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	kernel, err := boost.ParseKernelType(kernelName)
	if err != nil {
		return err
	}

	acquisition, err := boost.ParseAcquisitionType(acquisitionFn)
	if err != nil {
		return err
	}

	problem, err := buildProblem()
	if err != nil {
		return err
	}

	config := boost.DefaultConfig()
	config.Kernel = kernel
	config.Acquisition = acquisition
	config.UseBoost = useBoost
	config.InitialSamples = initialSamples
	config.MaxIterations = maxIterations
	config.Seed = seed

	logger := logrus.StandardLogger()

	result, err := boost.Optimize(ctx, config, problem,
		boost.WithLogger(logger),
		boost.WithSink(boost.LogSink{Logger: logger}),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s: best %g at %v after %d evaluations (converged: %t)\n",
		result.RunID, result.BestY, result.BestX, len(result.TrainY), result.Converged)

	if outPath != "" {
		if err := writeYAML(outPath, result); err != nil {
			return err
		}

		logrus.Infof("Results written to %s", outPath)
	}

	return nil
}

func buildProblem() (boost.Problem, error) {
	if tablePath != "" {
		obs, err := loadObservations(tablePath)
		if err != nil {
			return boost.Problem{}, err
		}

		table, err := boost.NewTable(obs)
		if err != nil {
			return boost.Problem{}, fmt.Errorf("table %s: %w", tablePath, err)
		}

		return boost.Problem{Table: table}, nil
	}

	b, err := benchmarks.Lookup(benchmarkName)
	if err != nil {
		return boost.Problem{}, err
	}

	return b.Problem(), nil
}

func init() {
	runCmd.Flags().StringVar(&benchmarkName, "benchmark", "ackley", "Benchmark objective (ackley, levy, rosenbrock, sumsquares)")
	runCmd.Flags().StringVar(&tablePath, "table", "", "YAML table {x, y} to optimise over instead of a benchmark")
	runCmd.Flags().BoolVar(&useBoost, "boost", false, "Recommend kernel and acquisition before every step")
	runCmd.Flags().StringVar(&kernelName, "kernel", "Matern52", "Kernel when not boosting (RBF, Matern32, Matern52, RQ)")
	runCmd.Flags().StringVar(&acquisitionFn, "acquisition", "EI", "Acquisition function when not boosting (EI, PI, UCB, PM)")
	runCmd.Flags().IntVar(&initialSamples, "init", 10, "Number of initial samples")
	runCmd.Flags().IntVar(&maxIterations, "max-iter", 100, "Total evaluation budget, initial samples included")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write results to this YAML file")
}

