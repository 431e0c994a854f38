// Command boost runs Bayesian optimisation on synthetic benchmarks or fixed
// tables and recommends kernel/acquisition combinations from observations.
package main

func main() {
	Execute()
}
