package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/patchcorpus/internal/advisory"
	"github.com/huangsam/patchcorpus/internal/contract"
)

// advisoriesSetup validates configuration without opening any store.
func advisoriesSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return contract.ProcessAndValidate(cfg, input)
}

// advisoriesTarget is where advisory commands write their result.
func advisoriesTarget() string {
	if cfg.OutputFile != "" {
		return cfg.OutputFile
	}
	return cfg.AdvisoriesPath
}

// advisoriesCmd focused on advisory input files.
var advisoriesCmd = &cobra.Command{
	Use:   "advisories",
	Short: "Fetch and normalize vulnerability advisories",
	Long: `Prepare the advisory file consumed by stage and run.

Subcommands:
  fetch     - Download advisories from the GitHub advisory database
  normalize - Convert a feed file to normalized advisory records`,
}

// advisoriesFetchCmd downloads advisories by GHSA id.
var advisoriesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download advisories from the GitHub advisory database",
	Long: `Fetch advisories by GHSA identifier and write them in feed shape.

The token is read from --github-token, PATCHCORPUS_GITHUB_TOKEN or GITHUB_TOKEN.
The result goes to --output-file, or to the --advisories path.

Examples:
  patchcorpus advisories fetch --ids GHSA-xxxx-yyyy-zzzz,GHSA-aaaa-bbbb-cccc`,
	Args:    cobra.NoArgs,
	PreRunE: advisoriesSetup,
	Run: func(_ *cobra.Command, _ []string) {
		ids := viper.GetStringSlice("ids")
		if len(ids) == 0 {
			contract.LogFatal("Cannot fetch advisories", fmt.Errorf("--ids is required"))
		}
		feed, err := advisory.NewGitHubFetcher(cfg.GitHubToken).Fetch(rootCtx, ids)
		if err != nil {
			contract.LogFatal("Cannot fetch advisories", err)
		}
		target := advisoriesTarget()
		if err := advisory.WriteFile(target, feed); err != nil {
			contract.LogFatal("Cannot write advisories", err)
		}
		contract.LogProgress(cfg.UseEmojis, "🛡️", "Fetched %d advisories into %s", len(feed), target)
	},
}

// advisoriesNormalizeCmd rewrites a feed file as normalized records.
var advisoriesNormalizeCmd = &cobra.Command{
	Use:   "normalize <feed-file>",
	Short: "Convert a feed file to normalized advisory records",
	Long: `Read a JSON or YAML advisory feed and write normalized records.

The first vulnerability of each record supplies the ecosystem and the old
version range; the second one, if any, supplies the new version range.

Examples:
  patchcorpus advisories normalize feed.json --output-file advisories.yaml`,
	Args:    cobra.ExactArgs(1),
	PreRunE: advisoriesSetup,
	Run: func(_ *cobra.Command, args []string) {
		advisories, err := advisory.LoadFile(args[0])
		if err != nil {
			contract.LogFatal("Cannot load advisories", err)
		}
		target := advisoriesTarget()
		if err := advisory.WriteFile(target, advisories); err != nil {
			contract.LogFatal("Cannot write advisories", err)
		}
		contract.LogProgress(cfg.UseEmojis, "🛡️", "Normalized %d advisories into %s", len(advisories), target)
	},
}
