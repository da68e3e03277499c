package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kestrelbio/forager/internal/agent"
	"github.com/kestrelbio/forager/internal/config"
	"github.com/kestrelbio/forager/internal/logging"
	"github.com/kestrelbio/forager/internal/orchestrator"
	"github.com/kestrelbio/forager/internal/state"
	"github.com/kestrelbio/forager/pkg/models"
)

var (
	researchCapabilities []string
	researchArea         string
	researchParallel     int
	researchRetries      int
	researchTaskTimeout  time.Duration
	researchDeadline     time.Duration
	researchNoTUI        bool
	researchJSON         bool
	researchLimit        int
)

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Run a research round for a query",
	Long: `Run one research round: the query is dispatched to every requested
capability in parallel, and the ranked findings are fused into a single
deduplicated, confidence-scored result.

By default every capability with a registered agent is queried. The
deep-research capability requires an Anthropic API key (anthropic.api_key
in the config file or the ANTHROPIC_API_KEY environment variable).

Examples:
  forager research "HER2 inhibitors in breast cancer"
  forager research --capabilities clinical-trials,literature "GLP-1 agonists"
  forager research --json --no-tui "JAK inhibitor patent landscape"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().StringSliceVarP(&researchCapabilities, "capabilities", "c", nil,
		"Capabilities to query (default: all registered)")
	researchCmd.Flags().StringVar(&researchArea, "area", "", "Therapeutic area to narrow the search")
	researchCmd.Flags().IntVar(&researchParallel, "parallel", 0, "Max concurrently running tasks")
	researchCmd.Flags().IntVar(&researchRetries, "retries", -1, "Retry budget per task")
	researchCmd.Flags().DurationVar(&researchTaskTimeout, "task-timeout", 0, "Per-task timeout")
	researchCmd.Flags().DurationVar(&researchDeadline, "deadline", 0, "Overall round deadline")
	researchCmd.Flags().BoolVar(&researchNoTUI, "no-tui", false, "Disable the live progress view")
	researchCmd.Flags().BoolVar(&researchJSON, "json", false, "Emit the full result as JSON")
	researchCmd.Flags().IntVar(&researchLimit, "limit", 15, "Max fused findings to print")
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyResearchFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	query := models.Query{
		Text:            strings.Join(args, " "),
		TherapeuticArea: researchArea,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := cfg.State.DBPath
	if dbPath == "" {
		dbPath = state.DefaultDBPath()
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	registry, deep, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	caps, err := resolveCapabilities(registry)
	if err != nil {
		return err
	}

	session := &state.Session{
		ID:              uuid.NewString(),
		Title:           state.TitleFromQuery(query.Text),
		Query:           query.Text,
		TherapeuticArea: query.TherapeuticArea,
	}
	if err := db.CreateSession(ctx, session); err != nil {
		return err
	}

	opts := []orchestrator.Option{
		orchestrator.WithMaxParallel(cfg.Round.MaxParallelTasks),
		orchestrator.WithRetryBudget(cfg.Round.RetryBudget),
		orchestrator.WithPerTaskTimeout(cfg.Round.PerTaskTimeout),
		orchestrator.WithDeadline(cfg.Round.Deadline),
		orchestrator.WithFusionK(cfg.Fusion.K),
		orchestrator.WithTopN(cfg.Confidence.TopN),
		orchestrator.WithSink(db),
	}
	if deep != nil {
		opts = append(opts, orchestrator.WithSynthesizer(deep))
	}

	var result *models.AggregatedResult
	var runErr error
	if researchNoTUI || researchJSON {
		orch := orchestrator.New(registry, logging.Component(log, "orchestrator"), opts...)
		result, runErr = orch.Run(ctx, session.ID, query, caps)
	} else {
		result, runErr = runWithTUI(ctx, session.ID, query, caps, registry, opts)
	}

	if runErr != nil {
		var pe *state.PersistenceError
		if result != nil && errors.As(runErr, &pe) {
			// The round itself succeeded; warn and keep going.
			fmt.Fprintf(os.Stderr, "warning: %v\n", pe)
		} else {
			return runErr
		}
	}
	if result == nil {
		return nil
	}

	if researchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(result)
	return nil
}

// applyResearchFlags overlays command-line flags onto the loaded config.
func applyResearchFlags(cfg *config.Config) {
	if researchParallel > 0 {
		cfg.Round.MaxParallelTasks = researchParallel
	}
	if researchRetries >= 0 {
		cfg.Round.RetryBudget = researchRetries
	}
	if researchTaskTimeout > 0 {
		cfg.Round.PerTaskTimeout = researchTaskTimeout
	}
	if researchDeadline > 0 {
		cfg.Round.Deadline = researchDeadline
	}
}

// buildRegistry registers every agent that can run with the current
// configuration. The deep-research agent is also returned separately so
// the orchestrator can reuse it for summary synthesis.
func buildRegistry(ctx context.Context, cfg *config.Config) (*agent.Registry, *agent.DeepResearchAgent, error) {
	registry := agent.NewRegistry(logging.Component(log, "registry"))
	client := &http.Client{Timeout: cfg.Round.PerTaskTimeout}

	registry.Register(agent.NewClinicalTrialsAgent(client, cfg.Agents.MaxResults))
	registry.Register(agent.NewPubMedAgent(client, cfg.Agents.MaxResults))
	registry.Register(agent.NewPatentsAgent(client, cfg.Agents.MaxResults))

	var deep *agent.DeepResearchAgent
	if cfg.Anthropic.APIKey != "" {
		var err error
		deep, err = agent.NewDeepResearchAgent(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Agents.MaxResults)
		if err != nil {
			return nil, nil, err
		}
		registry.Register(deep)
	} else {
		log.Debug().Msg("no Anthropic API key, deep-research capability unavailable")
	}

	if cfg.Agents.Manifest != "" {
		if err := registry.LoadManifest(cfg.Agents.Manifest); err != nil {
			return nil, nil, err
		}
		if err := registry.Watch(ctx, cfg.Agents.Manifest); err != nil {
			log.Warn().Err(err).Msg("manifest watch unavailable, toggles load once")
		}
	}
	return registry, deep, nil
}

// resolveCapabilities turns the --capabilities flag into a validated
// capability list, defaulting to everything the registry can serve.
func resolveCapabilities(registry *agent.Registry) ([]models.Capability, error) {
	if len(researchCapabilities) == 0 {
		caps := registry.Capabilities()
		if len(caps) == 0 {
			return nil, errors.New("no agents are enabled")
		}
		return caps, nil
	}
	caps := make([]models.Capability, 0, len(researchCapabilities))
	for _, name := range researchCapabilities {
		c := models.Capability(strings.TrimSpace(name))
		if !c.Valid() {
			return nil, fmt.Errorf("unknown capability %q (known: clinical-trials, literature, patents, deep-research)", name)
		}
		caps = append(caps, c)
	}
	return caps, nil
}

func printResult(r *models.AggregatedResult) {
	header := color.New(color.Bold)
	dim := color.New(color.Faint)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	fmt.Println()
	switch r.Status {
	case models.RoundOK:
		good.Printf("● %s", r.Status)
	case models.RoundPartial:
		warn.Printf("● %s", r.Status)
	default:
		bad.Printf("● %s", r.Status)
	}
	fmt.Printf("  confidence %.2f  session %s\n", r.Confidence, r.SessionID)
	dim.Printf("  %d tasks, %d findings, %s\n\n",
		len(r.Outcomes), len(r.Fused), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	if r.Status == models.RoundNoEvidence {
		bad.Println("No evidence gathered. Every task failed or timed out:")
		for _, o := range r.Outcomes {
			fmt.Printf("  %-18s %s", o.Capability, o.State)
			if o.Error != "" {
				dim.Printf("  %s", o.Error)
			}
			fmt.Println()
		}
		return
	}

	header.Println("Findings")
	limit := researchLimit
	if limit <= 0 || limit > len(r.Fused) {
		limit = len(r.Fused)
	}
	for i, entry := range r.Fused[:limit] {
		fmt.Printf("%3d. %s\n", i+1, entry.Title)
		dim.Printf("     score %.4f  sources: %s\n", entry.Score, strings.Join(entry.Sources, ", "))
	}
	if limit < len(r.Fused) {
		dim.Printf("     ... and %d more (use --limit or --json)\n", len(r.Fused)-limit)
	}

	if r.Summary != "" {
		fmt.Println()
		header.Println("Summary")
		fmt.Println(indent(r.Summary, "  "))
	}

	fmt.Println()
	header.Println("Tasks")
	for _, o := range r.Outcomes {
		var stateCol *color.Color
		switch o.State {
		case models.TaskCompleted:
			stateCol = good
		case models.TaskTimedOut:
			stateCol = warn
		default:
			stateCol = bad
		}
		fmt.Printf("  %-18s ", o.Capability)
		stateCol.Printf("%-10s", o.State)
		dim.Printf(" %3d findings  %s", o.EvidenceCount, o.Duration.Round(time.Millisecond))
		if o.Retries > 0 {
			dim.Printf("  (%d retries)", o.Retries)
		}
		if o.Error != "" {
			dim.Printf("  %s", o.Error)
		}
		fmt.Println()
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
