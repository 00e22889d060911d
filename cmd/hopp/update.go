package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/charmbracelet/huh"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackcoderx/hopp/pkg/core"
)

var (
	updateYes          bool
	errDevBuildUpdate  = errors.New("development builds cannot be updated; install a release instead")
	errNoUpdateRelease = errors.New("no release found")
)

func init() {
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "update without asking for confirmation")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update hopp to the latest release",
	Long: `update checks the configured repository (update_repo in .hopp/config.json,
or HOPP_UPDATE_REPO) for a newer release and replaces the running binary.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg := core.LoadConfig(viper.GetViper())
		if version == "dev" {
			return errDevBuildUpdate
		}

		latest, found, err := selfupdate.DetectLatest(cfg.UpdateRepo)
		if err != nil {
			return fmt.Errorf("failed to check %s for releases: %w", cfg.UpdateRepo, err)
		}
		newer, err := updateAvailable(version, latest, found)
		if errors.Is(err, errNoUpdateRelease) {
			fmt.Fprintln(out, dimStyle.Render("no releases published in "+cfg.UpdateRepo))
			return nil
		}
		if err != nil {
			return err
		}
		if !newer {
			fmt.Fprintln(out, passStyle.Render("hopp "+version+" is the latest version"))
			return nil
		}

		if !updateYes {
			confirmed := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Update hopp %s to %s?", version, latest.Version)).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed).
				Run()
			if err != nil || !confirmed {
				return err
			}
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
			return fmt.Errorf("failed to update binary: %w", err)
		}
		fmt.Fprintln(out, passStyle.Render("updated to "+latest.Version.String()))
		return nil
	},
}

// updateAvailable reports whether latest is newer than the running version.
func updateAvailable(current string, latest *selfupdate.Release, found bool) (bool, error) {
	if current == "dev" {
		return false, errDevBuildUpdate
	}
	if !found || latest == nil {
		return false, errNoUpdateRelease
	}
	v, err := semver.ParseTolerant(current)
	if err != nil {
		return false, fmt.Errorf("failed to parse current version '%s': %w", current, err)
	}
	return latest.Version.GT(v), nil
}
