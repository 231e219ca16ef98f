package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"genforge/internal/cache/fragment"
	"genforge/internal/config"
	"genforge/internal/depgraph"
	"genforge/internal/llm"
	"genforge/internal/ratelimit"
	"genforge/internal/scheduler"
	"genforge/internal/store"
	"genforge/internal/types"
	"genforge/internal/watch"
)

func main() {
	structurePath := flag.String("structure", "", "path to the structure JSON ({files, folders})")
	outDir := flag.String("out", "", "output directory (default from GENFORGE_OUT_DIR or ./out)")
	runID := flag.String("run", "", "run id (default: timestamp)")
	maxConcurrent := flag.Int("max-concurrent", 0, "worker and slot cap (default from env)")
	rpm := flag.Int("rpm", 0, "requests per minute budget (default from env)")
	strict := flag.Bool("strict", false, "skip dependents of failed artifacts")
	priority := flag.Bool("priority-queue", false, "order the queue by item priority instead of FIFO")
	useFake := flag.Bool("fake", false, "use the deterministic offline backend")
	watchAddr := flag.String("watch", "", "serve progress events over websocket at this address (e.g. :8090)")
	exportPath := flag.String("export", "", "write the graph export JSON to this file")
	flag.Parse()

	if *structurePath == "" {
		log.Fatal("--structure is required")
	}

	cfg := config.Load()
	if *outDir != "" {
		cfg.OutDir = *outDir
	}
	if *maxConcurrent > 0 {
		cfg.MaxConcurrent = *maxConcurrent
	}
	if *rpm > 0 {
		cfg.RequestsPerWindow = *rpm
	}
	if *runID == "" {
		*runID = time.Now().UTC().Format("20060102-150405")
	}

	raw, err := os.ReadFile(*structurePath)
	if err != nil {
		log.Fatal(err)
	}
	var anyStructure any
	if err := json.Unmarshal(raw, &anyStructure); err != nil {
		log.Fatal(err)
	}
	structure := types.DecodeStructure(anyStructure)

	graph := depgraph.Build(structure)
	if graph.Len() == 0 {
		log.Fatal("structure describes no files")
	}
	cycles := graph.DetectCycles()
	if len(cycles) > 0 {
		log.Printf("detected %d dependency cycle(s); breaking deterministically", len(cycles))
	}
	order, err := graph.GenerationOrder()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("generation order spans %d artifacts", len(order))

	if *exportPath != "" {
		b, err := json.MarshalIndent(graph.Export(), "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*exportPath, b, 0o644); err != nil {
			log.Fatal(err)
		}
	}

	ctx := context.Background()
	cli := buildClient(ctx, cfg, *useFake)
	defer cli.Close()

	frags, err := fragment.New(1024, 30*time.Minute)
	if err != nil {
		log.Fatal(err)
	}

	limiter := ratelimit.New(cfg.MaxConcurrent, cfg.RequestsPerWindow, cfg.Window)
	schedCfg := scheduler.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		Limiter:       limiter,
	}
	if *strict {
		schedCfg.Policy = scheduler.StrictDependencies
	}
	if *priority {
		schedCfg.QueueMode = scheduler.PriorityOrder
	}
	sched := scheduler.New(schedCfg)

	items := make([]types.WorkItem, 0, len(order))
	for _, p := range order {
		items = append(items, types.NewWorkItem(p, map[string]any{
			"path":    p,
			"context": graph.ContextForFile(p, 2),
		}, 0))
	}

	progress := consoleProgress
	if *watchAddr != "" {
		hub := watch.NewHub()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/ws", hub)
			log.Printf("watch: serving progress on %s/ws", *watchAddr)
			if err := http.ListenAndServe(*watchAddr, mux); err != nil {
				log.Printf("watch: server stopped: %v", err)
			}
		}()
		wsProgress := hub.Progress(*runID)
		progress = func(path string, completed, total int) {
			consoleProgress(path, completed, total)
			wsProgress(path, completed, total)
		}
	}

	started := time.Now()
	results, err := sched.Run(ctx, items, llm.NewProducer(cli, frags, nil), progress, order)
	if err != nil {
		log.Fatal(err)
	}

	persist(ctx, cfg, *runID, results)

	stats := sched.Stats()
	if err := store.NewRunStoreFromEnv(cfg.OutDir).SaveRun(ctx, store.RunSummary{
		RunID:         *runID,
		StartedAt:     started,
		Total:         stats.Total,
		Succeeded:     stats.Succeeded,
		Failed:        stats.Failed,
		TotalDuration: stats.TotalDuration,
		FailedPaths:   stats.FailedPaths,
	}, results); err != nil {
		log.Printf("run store: %v", err)
	}

	fmt.Printf("run %s: %d/%d succeeded (%.0f%%) in %v\n",
		*runID, stats.Succeeded, stats.Total, stats.SuccessRate*100, time.Since(started).Round(time.Millisecond))
	for _, p := range stats.FailedPaths {
		fmt.Printf("  failed: %s: %s\n", p, results[p].Error)
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func buildClient(ctx context.Context, cfg config.Config, useFake bool) llm.Client {
	if useFake {
		return llm.Wrap(llm.NewFakeClient(), llm.LogRequests())
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is not set (or pass --fake)")
	}
	cli, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		log.Fatal(err)
	}
	return llm.Wrap(cli, llm.LogRequests(), llm.Retry(3, 500*time.Millisecond))
}

func persist(ctx context.Context, cfg config.Config, runID string, results map[string]types.Result) {
	disk, err := store.NewDiskStore(cfg.OutDir)
	if err != nil {
		log.Fatal(err)
	}
	stores := []store.ArtifactStore{disk}
	if cfg.S3.Endpoint != "" {
		s3, err := store.NewS3Store(store.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			log.Printf("s3 store disabled: %v", err)
		} else {
			stores = append(stores, s3)
		}
	}
	for _, r := range results {
		if !r.Success {
			continue
		}
		for _, st := range stores {
			if err := st.Put(ctx, runID, r.Path, []byte(r.Content)); err != nil {
				log.Printf("persist %s: %v", r.Path, err)
			}
		}
	}
}

func consoleProgress(path string, completed, total int) {
	log.Printf("[%d/%d] %s", completed, total, path)
}
