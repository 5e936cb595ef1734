package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/patchcorpus/core"
	"github.com/huangsam/patchcorpus/internal/contract"
)

// runExecutor runs one pipeline step and exits on failure.
func runExecutor(name string, fn core.ExecutorFunc) {
	if err := fn(rootCtx, cfg, cacheManager); err != nil {
		contract.LogFatal("Cannot run "+name, err)
	}
}

// stageCmd clones repositories and snapshots changed files.
var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Clone advisory repositories and snapshot every changed file.",
	Long: `Resolve the fix commits of each advisory and stage them for packaging.

For every advisory in the input file:
- Commit hashes are extracted from reference URLs containing /commit/<hash>
- The source repository is cloned into <staging-dir>/repos/<ghsa_id>
- Each commit's diff, changed files and both file versions are written
  under <staging-dir>/stage/<ghsa_id>/<commit>

Advisories are staged concurrently (see --workers). A repository that cannot
be cloned or a commit that cannot be resolved fails that advisory only.

Examples:
  # Stage advisories from a YAML file with 8 workers
  patchcorpus stage --advisories advisories.yaml --workers 8

  # Write the staging report as CSV
  patchcorpus stage --output csv --output-file stage.csv`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor("stage", core.ExecuteStage)
	},
}

// packageCmd turns staged commits into packaged documents.
var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Package every staged commit into a section-delimited document.",
	Long: `Write one document per staged commit to <staging-dir>/packages/<ghsa_id>/<commit>.txt.

Each document holds four sections in fixed order: the patch diff, a JSON
summary of changed files, the old file versions and the new file versions.

Examples:
  # Package with length-prefixed framing
  patchcorpus package --framing length

  # Include the reviewer prompt header
  patchcorpus package --prompt-header`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor("package", core.ExecutePackage)
	},
}

// buildCmd assembles packaged documents into the corpus file.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble packaged documents into the JSON corpus.",
	Long: `Parse every packaged document and write the corpus as a JSON array.

Documents that cannot be parsed, or that name files outside their changed-file
list, are reported and skipped. When a corpus backend is configured the build
and each document's outcome are recorded. When --s3-bucket is set the corpus
and documents are published to object storage.

Examples:
  # Build into a custom location
  patchcorpus build --corpus-file out/dataset.json

  # Reject repeated file blocks with build tracking
  patchcorpus build --duplicate-policy reject --corpus-backend sqlite

  # Keep documents that lost a section label
  patchcorpus build --require-sections=false`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor("build", core.ExecuteBuild)
	},
}

// runCmd runs the whole pipeline.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run stage, package and build in order.",
	Long: `Run the full pipeline from advisory file to corpus.

Examples:
  patchcorpus run --advisories advisories.json --workers 4`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor("pipeline", core.ExecuteRun)
	},
}
