package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/huangsam/patchcorpus/core/docfmt"
	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/staging"
	"github.com/huangsam/patchcorpus/schema"
)

// Pipeline runs the stage, package and build steps over a staging area.
type Pipeline struct {
	cfg       *contract.Config
	client    contract.GitClient
	area      *staging.Area
	extractor *SnapshotExtractor
	packager  *docfmt.Packager
	assembler *Assembler
}

// NewPipeline wires the core components from cfg. mgr may be nil, which
// disables both the object cache and build tracking.
func NewPipeline(cfg *contract.Config, client contract.GitClient, area *staging.Area, mgr contract.CacheManager) *Pipeline {
	var objects contract.CacheStore
	var corpus contract.CorpusStore
	if mgr != nil {
		objects = mgr.GetObjectStore()
		corpus = mgr.GetCorpusStore()
	}

	header := ""
	if cfg.PromptHeader {
		header = schema.DefaultPromptHeader
	}

	return &Pipeline{
		cfg:       cfg,
		client:    client,
		area:      area,
		extractor: NewSnapshotExtractor(client, objects),
		packager:  docfmt.NewPackager(cfg.Framing, header),
		assembler: NewAssembler(docfmt.NewParser(cfg.DuplicatePolicy), cfg.RequireSections, corpus, cfg.Params()),
	}
}

// Stage clones and snapshots every advisory using a pool of cfg.Workers
// goroutines. Outcomes are returned in input order. A failing advisory is
// recorded in its outcome and does not stop the others. Entries sharing an
// advisory id share a clone and commit directories, so they run one after
// another on the same worker.
func (p *Pipeline) Stage(ctx context.Context, advisories []schema.Advisory) []schema.AdvisoryOutcome {
	results := make([]schema.AdvisoryOutcome, len(advisories))
	groups := groupByID(advisories)
	groupCh := make(chan []int, len(groups))
	for _, g := range groups {
		groupCh <- g
	}
	close(groupCh)

	var wg sync.WaitGroup
	for range max(p.cfg.Workers, 1) {
		wg.Go(func() {
			for group := range groupCh {
				// Each worker writes only to the indices of its own group, which is safe.
				for _, i := range group {
					if err := ctx.Err(); err != nil {
						results[i] = schema.AdvisoryOutcome{AdvisoryID: advisories[i].ID, Err: err.Error()}
						continue
					}
					results[i] = p.stageAdvisory(ctx, advisories[i])
				}
			}
		})
	}
	wg.Wait()

	return results
}

// groupByID returns the input indices grouped by advisory id, in order of
// first occurrence.
func groupByID(advisories []schema.Advisory) [][]int {
	pos := make(map[string]int, len(advisories))
	groups := make([][]int, 0, len(advisories))
	for i, adv := range advisories {
		g, ok := pos[adv.ID]
		if !ok {
			g = len(groups)
			pos[adv.ID] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// stageAdvisory stages every commit of one advisory. The first error aborts
// the rest of the advisory.
func (p *Pipeline) stageAdvisory(ctx context.Context, adv schema.Advisory) schema.AdvisoryOutcome {
	outcome := schema.AdvisoryOutcome{AdvisoryID: adv.ID, Commits: []schema.CommitOutcome{}}
	if err := staging.CheckAdvisoryID(adv.ID); err != nil {
		p.logFailure(adv.ID, err)
		outcome.Err = err.Error()
		return outcome
	}

	refs := ResolveAdvisory(adv)
	if len(refs) == 0 {
		contract.LogProgress(p.cfg.UseEmojis, "⏭️", "%s %s: no commit references", contract.GetColorLabel(contract.SkippedValue), adv.ID)
		return outcome
	}

	repoDir := p.area.RepoDir(adv.ID)
	if err := p.client.Clone(ctx, adv.SourceCodeLocation, repoDir); err != nil {
		err = fmt.Errorf("%w: clone %q: %v", ErrRepositoryUnavailable, adv.SourceCodeLocation, err)
		p.logFailure(adv.ID, err)
		outcome.Err = err.Error()
		return outcome
	}

	for _, ref := range refs {
		co, err := p.stageCommit(ctx, repoDir, ref)
		outcome.Commits = append(outcome.Commits, co)
		if err != nil {
			p.logFailure(ref.String(), err)
			outcome.Err = err.Error()
			return outcome
		}
		contract.LogProgress(p.cfg.UseEmojis, "📥", "%s %s: %d files, %d before, %d after",
			contract.GetColorLabel(contract.SavedValue), ref, co.Files, co.BeforeSaved, co.AfterSaved)
	}
	return outcome
}

// stageCommit writes the change set, both snapshots of each changed file and
// the summary of one commit.
func (p *Pipeline) stageCommit(ctx context.Context, repoDir string, ref schema.CommitRef) (schema.CommitOutcome, error) {
	co := schema.CommitOutcome{Commit: ref}
	fail := func(err error) (schema.CommitOutcome, error) {
		co.Err = err.Error()
		return co, err
	}

	cs, err := p.extractor.ChangeSet(ctx, repoDir, ref)
	if err != nil {
		return fail(err)
	}
	if err := p.area.WriteChangeSet(cs); err != nil {
		return fail(err)
	}

	summary := schema.ChangeSummary{
		ChangedFiles: cs.Files,
		FilesSaved:   []schema.SavedFile{},
	}
	if len(cs.Symbols) > 0 {
		summary.Annotations = &schema.Annotations{ChangedSymbols: cs.Symbols}
	}

	seen := make(map[string]struct{}, len(cs.Files))
	for _, path := range cs.Files {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		before, after, err := p.extractor.SnapshotPair(ctx, repoDir, ref.Hash, path)
		if err != nil {
			return fail(err)
		}
		for _, snap := range []schema.FileSnapshot{before, after} {
			if err := p.area.WriteSnapshot(ref, snap); err != nil {
				return fail(err)
			}
		}
		summary.FilesSaved = append(summary.FilesSaved, schema.SavedFile{File: path, Old: before.Present, New: after.Present})
		if before.Present {
			co.BeforeSaved++
		}
		if after.Present {
			co.AfterSaved++
		}
	}
	co.Files = len(summary.FilesSaved)

	if err := p.area.WriteSummary(ref, summary); err != nil {
		return fail(err)
	}
	return co, nil
}

// Package writes one document per staged commit and returns their paths.
// A commit whose staged files cannot be read is logged and skipped.
func (p *Pipeline) Package(ctx context.Context) ([]string, error) {
	advisories, err := p.area.ListAdvisories()
	if err != nil {
		return nil, err
	}

	paths := []string{}
	for _, id := range advisories {
		commits, err := p.area.ListCommits(id)
		if err != nil {
			return paths, err
		}
		for _, commit := range commits {
			if err := ctx.Err(); err != nil {
				return paths, err
			}
			path, err := p.PackageCommit(id, commit)
			if err != nil {
				contract.LogWarn(fmt.Sprintf("skipping package of %s/%s", id, commit), err)
				continue
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// PackageCommit packages one staged commit.
func (p *Pipeline) PackageCommit(advisoryID, commit string) (string, error) {
	staged, err := p.area.ReadStagedCommit(advisoryID, commit)
	if err != nil {
		return "", err
	}
	text := p.packager.Pack(advisoryID, commit, staged.DiffText, staged.Summary, staged.Before, staged.After)
	return p.area.WriteDocument(staged.Ref, text)
}

// Build assembles the corpus from every packaged document.
func (p *Pipeline) Build(ctx context.Context) (schema.BuildReport, error) {
	return p.assembler.Assemble(ctx, p.area)
}

func (p *Pipeline) logFailure(subject string, err error) {
	label := contract.GetColorLabel(contract.FailedValue)
	if errors.Is(err, ErrRepositoryUnavailable) {
		contract.LogProgress(p.cfg.UseEmojis, "❌", "%s %s: %v", label, subject, err)
		return
	}
	contract.LogProgress(p.cfg.UseEmojis, "❌", "%s %s: staging error: %v", label, subject, err)
}
