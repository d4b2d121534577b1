// Package app wires the decoding engines to the artifact store: the base
// pipeline that produces one generalization artifact per (subject, analysis)
// unit, and the derived pipelines that re-score stored predictions on trial
// subsets.
package app

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	engine "godecode/adapters/decoding"
	"godecode/domain/analysis"
	"godecode/domain/core"
	"godecode/domain/decoding"
	"godecode/domain/trial"
	"godecode/internal"
	"godecode/ports"
)

// SubjectData is one subject's epoched recording and its aligned metadata.
// Preprocessing happens upstream; the pipeline consumes this read-only.
type SubjectData struct {
	Subject core.SubjectID
	Array   *trial.Array
	Meta    *trial.Table
}

// Pipeline runs the generalization engine over subjects x analyses and
// memoizes results through the artifact store: a unit whose score bundle is
// already stored is skipped.
type Pipeline struct {
	Store ports.ArtifactStore
	Gen   *engine.Generalizer
	Log   *internal.Logger
	// Workers bounds concurrent (subject, analysis) units; 0 means GOMAXPROCS.
	Workers int
}

// NewPipeline assembles a pipeline with a fresh generalizer.
func NewPipeline(store ports.ArtifactStore, seed int64, log *internal.Logger) *Pipeline {
	return &Pipeline{Store: store, Gen: engine.NewGeneralizer(seed), Log: log}
}

// Run executes every (subject, analysis) unit. Units with an empty trial
// selection are logged and skipped; structural errors cancel the whole run.
func (p *Pipeline) Run(ctx context.Context, data []SubjectData, specs []*analysis.Spec) error {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	run := core.NewRunID()
	p.Log.Info("run %s: %d subjects x %d analyses, %d workers", run, len(data), len(specs), workers)

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	for _, sd := range data {
		for _, spec := range specs {
			sd, spec := sd, spec
			grp.Go(func() error {
				return p.runUnit(ctx, sd, spec)
			})
		}
	}
	return grp.Wait()
}

func (p *Pipeline) runUnit(ctx context.Context, sd SubjectData, spec *analysis.Spec) error {
	scoreKey := decoding.Key{Kind: decoding.KindScore, Subject: sd.Subject, Analysis: spec.Name}
	if ok, err := p.Store.Has(ctx, scoreKey); err != nil {
		return err
	} else if ok {
		p.Log.Debug("cache hit %s/%s", sd.Subject, spec.Name)
		return nil
	}

	art, err := p.Gen.Run(ctx, spec, sd.Array, sd.Meta)
	if err != nil {
		return err
	}
	if art == nil {
		p.Log.Info("no eligible trials for %s/%s, skipped", sd.Subject, spec.Name)
		return nil
	}
	art.Subject = sd.Subject

	if err := p.Store.Save(ctx, scoreKey, art.Bundle()); err != nil {
		return err
	}
	art.Prune(spec.KeepModels, spec.KeepPredictions)
	decodKey := decoding.Key{Kind: decoding.KindDecod, Subject: sd.Subject, Analysis: spec.Name}
	if err := p.Store.Save(ctx, decodKey, art); err != nil {
		return err
	}
	p.Log.Info("decoded %s/%s", sd.Subject, spec.Name)
	return nil
}

// loadArtifact fetches one subject's full generalization artifact.
func loadArtifact(ctx context.Context, store ports.ArtifactStore, subject core.SubjectID, name core.AnalysisName) (*decoding.Artifact, error) {
	var art decoding.Artifact
	key := decoding.Key{Kind: decoding.KindDecod, Subject: subject, Analysis: name}
	if err := store.Load(ctx, key, &art); err != nil {
		return nil, err
	}
	return &art, nil
}
