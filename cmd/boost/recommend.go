package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thalesfsp/boost"
)

var (
	// CLI flags for a single recommendation
	observationsPath string   // YAML file of evaluated points
	kernelNames      []string // Kernels to consider
	acquisitionNames []string // Acquisition functions to consider
	workers          int      // Simulation worker pool size
)

// recommendCmd recommends a combination from an observation file
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend a kernel and acquisition function for the next step",
	Run: func(cmd *cobra.Command, args []string) {
		if observationsPath == "" {
			logrus.Fatalf("Observations file not provided.")
		}

		if err := recommend(cmd.Context(), cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Recommend failed: %v", err)
		}
	},
}

func recommend(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	obs, err := loadObservations(observationsPath)
	if err != nil {
		return err
	}

	if obs.Y == nil {
		return fmt.Errorf("observations %s: %w", observationsPath, boost.ErrMissingObjective)
	}

	kernels := make([]boost.KernelType, 0, len(kernelNames))
	for _, name := range kernelNames {
		k, err := boost.ParseKernelType(name)
		if err != nil {
			return err
		}

		kernels = append(kernels, k)
	}

	acquisitions := make([]boost.AcquisitionType, 0, len(acquisitionNames))
	for _, name := range acquisitionNames {
		a, err := boost.ParseAcquisitionType(name)
		if err != nil {
			return err
		}

		acquisitions = append(acquisitions, a)
	}

	config := boost.DefaultEngineConfig()
	config.Workers = workers

	engine := boost.NewEngine(config, boost.WithLogger(logrus.StandardLogger()))

	rec, err := engine.Recommend(ctx, boost.RecommendInput{
		Observations: obs,
		Kernels:      kernels,
		Acquisitions: acquisitions,
		Seed:         seed,
		RunSeed:      seed,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "recommended: %s/%s (%d iterations, target %g, %d seeds)\n\n",
		rec.Kernel, rec.Acquisition, rec.Iterations, rec.Target, rec.SeedSize)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KERNEL\tACQUISITION\tITERATIONS\tSTATE\tBEST")

	for _, s := range rec.Simulations {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%g\n", s.Kernel, s.Acquisition, s.Iterations, s.State, s.Best)
	}

	return w.Flush()
}

func init() {
	recommendCmd.Flags().StringVar(&observationsPath, "observations", "", "YAML file {x, y} of evaluated points")
	recommendCmd.Flags().StringSliceVar(&kernelNames, "kernels", nil, "Kernels to consider (default all)")
	recommendCmd.Flags().StringSliceVar(&acquisitionNames, "acquisitions", nil, "Acquisition functions to consider (default all)")
	recommendCmd.Flags().IntVar(&workers, "workers", 0, "Simulation workers (0 picks from the number of combinations)")
}
