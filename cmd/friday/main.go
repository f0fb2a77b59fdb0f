package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/services/chat"
	"github.com/ternarybob/friday/internal/services/embeddings"
	"github.com/ternarybob/friday/internal/services/ingest"
	"github.com/ternarybob/friday/internal/services/llm"
	"github.com/ternarybob/friday/internal/services/pdf"
	"github.com/ternarybob/friday/internal/services/session"
	"github.com/ternarybob/friday/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: friday [flags] <command>

Commands:
  ping     Check connectivity to the vector store and model services
  ingest   Ingest configured datasources (-sync, -hard, -list, -images)
  query    Start an interactive query session
  version  Print version information

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Friday version %s\n", common.GetVersion())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	command := args[0]

	if command == "version" {
		fmt.Printf("Friday version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence: load config, initialize logger, print banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("friday.toml"); err == nil {
			configFiles = append(configFiles, "friday.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if err := config.Validate(); err != nil {
		common.GetLogger().Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	ctx, cancel := signalContext()
	defer cancel()

	switch command {
	case "ping":
		err = runPing(ctx)
	case "ingest":
		err = runIngest(ctx, args[1:])
	case "query":
		err = runQuery(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("Command failed")
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("Interrupt signal received")
		cancel()
	}()
	return ctx, cancel
}

// openStore opens the Badger connection and wraps it in the vector store
func openStore() (interfaces.VectorStore, error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	return badger.NewVectorStorage(db, config.Storage.VectorDimension, logger), nil
}

func runPing(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		fmt.Printf("vector store: FAIL (%v)\n", err)
		return err
	}
	defer store.Close()

	if err := store.Init(ctx, config.Project.ID); err != nil {
		fmt.Printf("vector store: FAIL (%v)\n", err)
		return err
	}
	fmt.Println("vector store: OK")

	embedder, err := embeddings.NewGeminiService(config, logger)
	if err != nil {
		fmt.Printf("embeddings:   FAIL (%v)\n", err)
		return err
	}
	if !embedder.IsAvailable(ctx) {
		fmt.Println("embeddings:   FAIL (probe request failed)")
		return fmt.Errorf("embedding service is not available")
	}
	fmt.Println("embeddings:   OK")

	claude, err := llm.NewClaudeService(&config.Claude, logger)
	if err != nil {
		fmt.Printf("claude:       FAIL (%v)\n", err)
		return err
	}
	defer claude.Close()
	if err := claude.HealthCheck(ctx); err != nil {
		fmt.Printf("claude:       FAIL (%v)\n", err)
		return err
	}
	fmt.Println("claude:       OK")

	return nil
}

func runIngest(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	syncMode := flags.Bool("sync", false, "Remove documents no longer present in any datasource")
	hardMode := flags.Bool("hard", false, "Re-ingest every document from scratch")
	listMode := flags.Bool("list", false, "List ingested documents and exit")
	images := flags.Bool("images", false, "Describe and ingest image files")
	if err := flags.Parse(args); err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if *images {
		config.Ingest.ExtractImages = true
	}

	embedder, err := embeddings.NewGeminiService(config, logger)
	if err != nil {
		return err
	}

	var describer interfaces.ImageDescriber
	if config.Ingest.ExtractImages {
		claude, err := llm.NewClaudeService(&config.Claude, logger)
		if err != nil {
			return err
		}
		defer claude.Close()
		describer = claude
	}

	orchestrator, err := ingest.NewOrchestrator(config, store, embedder, pdf.NewExtractor(logger), describer, logger)
	if err != nil {
		return err
	}

	if *listMode {
		ids, err := orchestrator.List(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No documents ingested.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	report, err := orchestrator.Run(ctx, ingest.Options{Sync: *syncMode, Hard: *hardMode})
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func printReport(report *ingest.Report) {
	for _, id := range report.Ingested {
		fmt.Printf("ingested  %s\n", id)
	}
	for _, id := range report.Skipped {
		fmt.Printf("skipped   %s\n", id)
	}
	for _, id := range report.Deleted {
		fmt.Printf("deleted   %s\n", id)
	}
	failed := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Printf("failed    %s: %v\n", id, report.Failed[id])
	}
	fmt.Printf("\n%d ingested, %d skipped, %d deleted, %d failed\n",
		len(report.Ingested), len(report.Skipped), len(report.Deleted), len(report.Failed))
}

func runQuery(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Init(ctx, config.Project.ID); err != nil {
		return err
	}

	embedder, err := embeddings.NewGeminiService(config, logger)
	if err != nil {
		return err
	}

	claude, err := llm.NewClaudeService(&config.Claude, logger)
	if err != nil {
		return err
	}
	defer claude.Close()

	memory := session.NewMemoryStore()
	service := chat.NewService(config, claude, embedder, store, memory, logger)

	// A configured schedule keeps the store in sync while the session runs
	if config.Ingest.Schedule != "" {
		orchestrator, err := ingest.NewOrchestrator(config, store, embedder, pdf.NewExtractor(logger), nil, logger)
		if err != nil {
			return err
		}
		scheduler := ingest.NewScheduler(orchestrator, logger)
		if err := scheduler.Start(config.Ingest.Schedule); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	fmt.Println("Ask a question about your project (exit to quit).")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		answer, err := service.Ask(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("error: %v\n", err)
			continue
		}

		var response strings.Builder
		for token := range answer.Stream {
			fmt.Print(token)
			response.WriteString(token)
		}
		fmt.Println()

		// A truncated response is reported and kept out of the history
		if err := answer.Err(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("error: %v\n", err)
			continue
		}

		if len(answer.Sources) > 0 {
			names := make([]string, 0, len(answer.Sources))
			for _, source := range answer.Sources {
				names = append(names, source.Source)
			}
			fmt.Printf("\nSupporting context: %s\n", strings.Join(names, ", "))
		}

		memory.Append("user", query)
		memory.Append("assistant", response.String())

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}
