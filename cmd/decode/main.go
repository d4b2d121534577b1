package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/joho/godotenv"

	"godecode/adapters/api"
	"godecode/adapters/badgerstore"
	"godecode/adapters/excel"
	"godecode/adapters/postgres"
	"godecode/app"
	"godecode/domain/analysis"
	"godecode/domain/core"
	"godecode/internal"
	"godecode/internal/config"
	"godecode/internal/testkit"
	"godecode/ports"
)

func main() {
	demo := flag.Int("demo", 0, "run the pipeline on N synthetic subjects instead of serving")
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open artifact store: %v", err)
	}
	defer store.Close()

	if *demo > 0 {
		if err := runDemo(context.Background(), cfg, store, logger, *demo); err != nil {
			log.Fatalf("Demo run failed: %v", err)
		}
		return
	}

	logger.Info("serving artifact API on %s", cfg.Server.Addr)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, api.NewRouter(store, logger)))
}

func openStore(cfg *config.Config) (ports.ArtifactStore, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		return postgres.Open(cfg.Store.PostgresURL)
	default:
		return badgerstore.Open(badgerstore.DefaultConfig(cfg.Store.BadgerDir))
	}
}

// runDemo decodes synthetic subjects end to end: base pipeline, every derived
// pipeline, and the TOI summary workbook.
func runDemo(ctx context.Context, cfg *config.Config, store ports.ArtifactStore, logger *internal.Logger, nSubjects int) error {
	data := make([]app.SubjectData, nSubjects)
	for i := range data {
		kcfg := testkit.DefaultConfig()
		kcfg.Seed = cfg.Compute.Seed + int64(i)
		ds, err := testkit.Generate(kcfg)
		if err != nil {
			return err
		}
		data[i] = app.SubjectData{
			Subject: core.SubjectID(fmt.Sprintf("s%02d", i+1)),
			Array:   ds.Array,
			Meta:    ds.Meta,
		}
	}

	presence := &analysis.Spec{
		Name:            "target_present",
		Target:          testkit.ColPresent,
		Kind:            analysis.KindCategorical,
		Chance:          0.5,
		Folds:           5,
		UnionAbsent:     true,
		PresenceColumn:  testkit.ColPresent,
		KeepPredictions: true,
	}
	// Absent trials have a NaN angle and fall out of the selection on their own.
	orientation := &analysis.Spec{
		Name:            "target_circAngle",
		Target:          testkit.ColAngle,
		Kind:            analysis.KindCircular,
		Chance:          math.Pi / 2,
		Folds:           5,
		PresenceColumn:  testkit.ColPresent,
		KeepPredictions: true,
	}

	specs := []*analysis.Spec{presence, orientation}

	pipeline := app.NewPipeline(store, cfg.Compute.Seed, logger)
	pipeline.Workers = cfg.Compute.Workers
	pipeline.Gen.Workers = cfg.Compute.Workers
	if err := pipeline.Run(ctx, data, specs); err != nil {
		return err
	}

	visibility := analysis.Factor{Name: "vis", Column: testkit.ColVis, Levels: []float64{0, 1, 2, 3}}
	contrast := analysis.Factor{Name: "contrast", Column: testkit.ColContrast, Levels: []float64{0.5, 0.75, 1.0}}
	factors := []analysis.Factor{visibility, contrast}
	tois := []analysis.TOI{{Start: 0.1, End: 0.3}, {Start: 0.3, End: 0.6}}

	derived := app.NewDerivedService(store, cfg.Compute.Seed, logger)
	derived.Cluster.Permutations = cfg.Compute.Permutations

	writer := excel.NewSummaryWriter()
	for _, spec := range specs {
		if _, err := derived.SubscoreByFactor(ctx, spec, data, visibility); err != nil {
			return err
		}
		if _, err := derived.AnalyzeContinuous(ctx, spec, data, factors); err != nil {
			return err
		}
		toiScores, err := derived.AnalyzeTOI(ctx, spec, data, factors, tois)
		if err != nil {
			return err
		}
		if _, err := derived.Correlate(ctx, spec, data, visibility); err != nil {
			return err
		}
		if _, err := derived.DurationTOI(ctx, spec, data, visibility, tois); err != nil {
			return err
		}
		if err := writer.AddAnalysis(spec.Name, toiScores, tois, spec.Chance); err != nil {
			return err
		}
	}
	if err := writer.Save(cfg.Output.SummaryXLSX); err != nil {
		return err
	}
	logger.Info("summary written to %s", cfg.Output.SummaryXLSX)
	return nil
}
