// Package core has core logic for resolving, snapshotting, packaging and
// assembling security-patch examples.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/patchcorpus/internal/advisory"
	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/outwriter"
	"github.com/huangsam/patchcorpus/internal/publish"
	"github.com/huangsam/patchcorpus/internal/staging"
	"github.com/huangsam/patchcorpus/schema"
)

// ExecutorFunc defines the function signature for executing pipeline steps.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteStage loads the advisory file and stages every advisory.
// It serves as the main entry point for the 'stage' command.
func ExecuteStage(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	p, err := newPipelineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}
	outcomes, err := stageFromFile(ctx, cfg, p)
	if err != nil {
		return err
	}
	return outwriter.WriteStageResults(outcomes, cfg, time.Since(start))
}

// ExecutePackage packages every staged commit into a document.
func ExecutePackage(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	p, err := newPipelineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}
	paths, err := p.Package(ctx)
	if err != nil {
		return err
	}
	contract.LogProgress(cfg.UseEmojis, "📦", "Packaged %d documents under %s", len(paths), cfg.StagingDir)
	return nil
}

// ExecuteBuild assembles the corpus, writes the corpus file and publishes it
// when object storage is configured.
func ExecuteBuild(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	p, err := newPipelineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}
	return buildAndReport(ctx, cfg, p, start)
}

// ExecuteRun runs stage, package and build in order.
func ExecuteRun(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	p, err := newPipelineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}

	outcomes, err := stageFromFile(ctx, cfg, p)
	if err != nil {
		return err
	}
	failed := 0
	for _, o := range outcomes {
		if o.Err != "" {
			failed++
		}
	}
	contract.LogProgress(cfg.UseEmojis, "📥", "Staged %d advisories (%d failed)", len(outcomes), failed)

	paths, err := p.Package(ctx)
	if err != nil {
		return err
	}
	contract.LogProgress(cfg.UseEmojis, "📦", "Packaged %d documents", len(paths))

	return buildAndReport(ctx, cfg, p, start)
}

func newPipelineFromConfig(cfg *contract.Config, mgr contract.CacheManager) (*Pipeline, error) {
	area, err := staging.New(cfg.StagingDir)
	if err != nil {
		return nil, err
	}
	return NewPipeline(cfg, contract.NewLocalGitClient(), area, mgr), nil
}

// stageFromFile loads advisories and stages them. An unreadable advisory
// file is an error for the whole run.
func stageFromFile(ctx context.Context, cfg *contract.Config, p *Pipeline) ([]schema.AdvisoryOutcome, error) {
	advisories, err := advisory.LoadFile(cfg.AdvisoriesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load advisories: %w", err)
	}
	return p.Stage(ctx, advisories), nil
}

func buildAndReport(ctx context.Context, cfg *contract.Config, p *Pipeline, start time.Time) error {
	report, err := p.Build(ctx)
	if err != nil {
		return err
	}
	if err := outwriter.WriteCorpus(cfg.CorpusFile, report.Records); err != nil {
		return err
	}
	if cfg.S3.Enabled() {
		if err := publishCorpus(ctx, cfg, p.area); err != nil {
			return err
		}
	}
	return outwriter.WriteBuildResults(report, cfg, time.Since(start))
}

func publishCorpus(ctx context.Context, cfg *contract.Config, area *staging.Area) error {
	docs, err := area.ListDocuments()
	if err != nil {
		return err
	}
	pub, err := publish.New(cfg.S3)
	if err != nil {
		return err
	}
	n, err := pub.Publish(ctx, cfg.CorpusFile, docs)
	if err != nil {
		return fmt.Errorf("failed to publish corpus: %w", err)
	}
	contract.LogProgress(cfg.UseEmojis, "☁️", "Published %d objects to s3://%s/%s", n, cfg.S3.Bucket, cfg.S3.Prefix)
	return nil
}
