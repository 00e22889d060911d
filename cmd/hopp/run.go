package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/blackcoderx/hopp/pkg/core"
	"github.com/blackcoderx/hopp/pkg/core/tools"
)

var (
	envName         string
	showDiff        bool
	persistEnv      bool
	stopOnScriptErr bool
	copyToClipboard bool
	errTestsFailed  = errors.New("tests failed")
)

func init() {
	runCmd.Flags().StringVarP(&envName, "env", "e", "", "environment to use (default from config)")
	runCmd.Flags().BoolVar(&showDiff, "diff", false, "show what the pre-request script changed")
	runCmd.Flags().BoolVar(&persistEnv, "persist-env", false, "write variable changes made by scripts back to disk")
	runCmd.Flags().BoolVar(&stopOnScriptErr, "stop-on-script-error", false, "do not send the request when the pre-request script fails")

	previewCmd.Flags().StringVarP(&envName, "env", "e", "", "environment to use (default from config)")
	previewCmd.Flags().BoolVar(&copyToClipboard, "copy", false, "copy the resolved request to the clipboard")

	rootCmd.AddCommand(runCmd, previewCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run a saved request with its scripts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		req, err := a.workspace.LoadRequest(args[0])
		if err != nil {
			return fmt.Errorf("failed to load request '%s': %w", args[0], err)
		}
		env, envs, err := a.loadEnvs(envName)
		if err != nil {
			return fmt.Errorf("failed to load environment: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		p := a.pipeline(
			core.WithEventCallback(progress),
			core.WithContinueOnPreRequestError(!stopOnScriptErr),
		)
		result, runErr := p.Run(ctx, req, envs)

		out := cmd.OutOrStdout()
		if result != nil {
			if showDiff {
				diff, err := core.RequestDiff(result.Original, result.Request)
				if err != nil {
					a.logger.Warn("failed to diff request", "error", err)
				} else if diff == "" {
					fmt.Fprintln(out, dimStyle.Render("pre-request script made no changes"))
				} else {
					fmt.Fprint(out, renderMarkdown("```diff\n"+diff+"```\n"))
				}
			}
			if result.Response != nil {
				fmt.Fprint(out, renderMarkdown(responseMarkdown(result.Response)))
			}
			if result.Tests != nil {
				printTests(out, result.Tests)
			}
			printConsole(out, result.Console)

			if persistEnv && runErr == nil {
				if err := a.workspace.SaveEnvs(env, result.Envs); err != nil {
					return fmt.Errorf("failed to save environment: %w", err)
				}
			}
		}

		if runErr != nil {
			return runErr
		}
		if !result.Passed() {
			return errTestsFailed
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <request>",
	Short: "Show the request that would be sent, without sending it",
	Long: `preview runs the pre-request script and resolves all variables, then prints
the final method, URL, headers and body. Nothing is sent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		req, err := a.workspace.LoadRequest(args[0])
		if err != nil {
			return fmt.Errorf("failed to load request '%s': %w", args[0], err)
		}
		_, envs, err := a.loadEnvs(envName)
		if err != nil {
			return fmt.Errorf("failed to load environment: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.pipeline(core.WithEventCallback(progress)).Prepare(ctx, req, envs)
		if err != nil {
			return err
		}

		text := tools.FormatRequest(result.Effective)
		fmt.Fprint(cmd.OutOrStdout(), renderMarkdown("```http\n"+text+"```\n"))
		printConsole(cmd.OutOrStdout(), result.Console)

		if copyToClipboard {
			if err := clipboard.WriteAll(text); err != nil {
				fmt.Fprintln(os.Stderr, warnStyle.Render("! could not copy to clipboard: "+err.Error()))
			} else {
				fmt.Fprintln(os.Stderr, dimStyle.Render("copied to clipboard"))
			}
		}
		return nil
	},
}
