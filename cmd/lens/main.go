package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paperlens/internal/config"
	"paperlens/internal/detect"
	"paperlens/internal/knowledge"
	"paperlens/internal/llm"
	"paperlens/internal/qatree"
	"paperlens/internal/queue"
	"paperlens/internal/session"
	"paperlens/internal/stats"
	"paperlens/internal/surface"
	"paperlens/internal/vault"
)

var (
	// Global flags
	verbose    bool
	configPath string
	headless   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lens",
	Short: "paperlens - interactive paper reading assistant",
	Long: `paperlens drives a browser-hosted AI page to read papers with you.

Load a PDF or a link, ask questions, queue follow-ups, and save the
conversation into your note vault when you are done.

Run without arguments to start the interactive reader.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReader()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reading history",
	Long:  "Aggregates the reading log: sessions, questions, time spent.",
	RunE:  runStats,
}

var treesCmd = &cobra.Command{
	Use:   "trees [title]",
	Short: "List saved conversation trees, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTrees,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", configPath)
		return nil
	},
}

var statsCSV bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "paperlens.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run the browser headless")

	statsCmd.Flags().BoolVar(&statsCSV, "csv", false, "export the full log as CSV to stdout")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(treesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runReader wires every component together and hands off to the REPL.
func runReader() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if headless {
		cfg.Chrome.Headless = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	studio := surface.New(surfaceConfig(cfg), logger)
	if err := studio.Open(ctx); err != nil {
		return err
	}
	defer studio.Close()

	var classifier session.Classifier
	caller, err := llm.NewCallerFromConfig(cfg, logger)
	if err != nil {
		logger.Warn("no text backend, notes will land in the inbox", zap.Error(err))
		classifier = knowledge.NewClassifier(nil, cfg.Vault.InboxFolder, logger)
	} else {
		classifier = knowledge.NewClassifier(caller, cfg.Vault.InboxFolder, logger)
	}

	var writer session.NoteWriter
	if cfg.Vault.Path != "" {
		writer = vault.New(cfg.Vault.Path, cfg.Vault.AssetsFolder, cfg.Vault.DefaultTags, logger)
	}

	orch := session.New(session.Deps{
		Surface:    studio,
		Detector:   detect.New(cfg.Detector.ToDetect(), logger),
		Trees:      qatree.NewStore(cfg.Data.Dir, logger),
		Queue:      queue.New(logger),
		Classifier: classifier,
		Writer:     writer,
		Stats:      stats.NewLog(cfg.Data.StatsFile, logger),
		Summarize:  summarizer(caller),
		Logger:     logger,
	})
	defer orch.Close()

	return newREPL(orch, logger).Run(ctx)
}

// summarizer adapts the text backend into a one-line question summarizer.
// Without a backend the tree falls back to truncation.
func summarizer(caller *llm.Caller) qatree.Summarizer {
	if caller == nil {
		return nil
	}
	return func(question string) (string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		prompt := "Summarize this question in at most 5 words, no punctuation:\n" + question
		return caller.Call(ctx, prompt)
	}
}

func surfaceConfig(cfg *config.Config) surface.Config {
	return surface.Config{
		URL:               cfg.Studio.URL,
		InputSelector:     cfg.Studio.InputSelector,
		ChunkSelector:     cfg.Studio.ChunkSelector,
		RunButtonSelector: cfg.Studio.RunButtonSelector,
		NavigationTimeout: cfg.Studio.NavigationTimeout(),
		Bin:               cfg.Chrome.Bin,
		ProfileDir:        cfg.Chrome.ProfileDir,
		DebugPort:         cfg.Chrome.DebugPort,
		Headless:          cfg.Chrome.Headless,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := stats.NewLog(cfg.Data.StatsFile, logger)

	if statsCSV {
		return log.ExportCSV(os.Stdout)
	}

	sum, err := log.Summarize()
	if err != nil {
		return err
	}
	if sum.Sessions == 0 {
		fmt.Println("no reading sessions recorded yet")
		return nil
	}
	fmt.Printf("sessions:   %d (%d in the last 7 days)\n", sum.Sessions, sum.LastWeek)
	fmt.Printf("questions:  %d (%.1f per session)\n", sum.Questions, sum.AvgQuestions)
	fmt.Printf("total time: %s\n", sum.TotalDuration.Round(time.Second))
	for kind, n := range sum.ByKind {
		fmt.Printf("  %-5s %d\n", kind, n)
	}
	if sum.LongestSession.ID != "" {
		fmt.Printf("longest:    %s (%.0fs, %d questions)\n",
			sum.LongestSession.Title,
			sum.LongestSession.DurationSeconds,
			sum.LongestSession.Questions)
	}
	return nil
}

func runTrees(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store := qatree.NewStore(cfg.Data.Dir, logger)

	if len(args) == 1 {
		tree, err := store.Load(args[0])
		if err != nil {
			return err
		}
		if tree.Len() == 0 {
			fmt.Printf("no saved tree for %q\n", args[0])
			return nil
		}
		for _, node := range tree.BreadthFirst() {
			indent := strings.Repeat("  ", tree.Depth(node.ID))
			fmt.Printf("%s- %s\n", indent, node.Summary)
		}
		return nil
	}

	titles := store.List()
	if len(titles) == 0 {
		fmt.Println("no saved trees")
		return nil
	}
	for _, t := range titles {
		fmt.Println(t)
	}
	return nil
}
