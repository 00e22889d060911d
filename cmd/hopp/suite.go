package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/hopp/pkg/core/tools"
)

var (
	suiteEnv        string
	suiteRPS        float64
	suiteBail       bool
	suiteNoSave     bool
	suitePersistEnv bool
)

func init() {
	suiteCmd.Flags().StringVarP(&suiteEnv, "env", "e", "", "environment to use (default from the collection, then config)")
	suiteCmd.Flags().Float64Var(&suiteRPS, "rps", 0, "maximum requests per second (0 for no limit)")
	suiteCmd.Flags().BoolVar(&suiteBail, "bail", false, "stop at the first failing request")
	suiteCmd.Flags().BoolVar(&suiteNoSave, "no-save", false, "do not write results to the results directory")
	suiteCmd.Flags().BoolVar(&suitePersistEnv, "persist-env", false, "write variable changes made by scripts back to disk")
	rootCmd.AddCommand(suiteCmd)
}

var suiteCmd = &cobra.Command{
	Use:   "suite <collection>",
	Short: "Run every request in a collection in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		col, err := a.workspace.LoadCollection(args[0])
		if err != nil {
			return fmt.Errorf("failed to load collection '%s': %w", args[0], err)
		}

		name := suiteEnv
		if name == "" {
			name = col.Environment
		}
		env, envs, err := a.loadEnvs(name)
		if err != nil {
			return fmt.Errorf("failed to load environment: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		runner := tools.NewSuiteRunner(a.pipeline(), a.workspace,
			tools.WithLimiter(tools.NewLimiter(suiteRPS)),
			tools.WithBail(suiteBail),
			tools.WithResultsDir(a.cfg.ResultsDir),
			tools.WithSuiteLogger(a.logger),
		)
		result, runErr := runner.Run(ctx, col, envs)
		fmt.Fprint(cmd.OutOrStdout(), renderMarkdown("```\n"+tools.FormatResults(result)+"```\n"))

		if !suiteNoSave {
			path, err := runner.SaveResults(result)
			if err != nil {
				a.logger.Warn("failed to save test results", "error", err)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("results saved to "+path))
			}
		}
		if suitePersistEnv && runErr == nil {
			if err := a.workspace.SaveEnvs(env, result.Envs); err != nil {
				return fmt.Errorf("failed to save environment: %w", err)
			}
		}

		if runErr != nil {
			return runErr
		}
		if !result.AllPassed() {
			return fmt.Errorf("%d of %d requests failed", result.Total-result.Passed, result.Total)
		}
		return nil
	},
}
