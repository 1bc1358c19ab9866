package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bigdegenenergy/maker-framework/internal/config"
	vlog "github.com/bigdegenenergy/maker-framework/internal/log"
	"github.com/bigdegenenergy/maker-framework/internal/oracle"
	"github.com/bigdegenenergy/maker-framework/internal/run"
	"github.com/bigdegenenergy/maker-framework/internal/source"
	"github.com/bigdegenenergy/maker-framework/internal/task"
	"github.com/bigdegenenergy/maker-framework/internal/types"
	"github.com/bigdegenenergy/maker-framework/internal/voting"
)

// runTask is the shared entry point for the run command.
func runTask(ctx context.Context, src source.Source) error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Init logging
	if logFile := openLogFile(); logFile != nil {
		vlog.Init(cfg.LogLevel, logFile)
		defer logFile.Close()
	} else {
		vlog.Init(cfg.LogLevel, nil)
	}

	// Fetch the task definition
	input, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching task: %w", err)
	}
	t := input.Task

	// Flag overrides, applied before validation so a bad override fails
	// fast too.
	if runK > 0 {
		t.K = runK
	}
	if runSteps > 0 {
		t.TotalSteps = runSteps
	}
	if runMaxSamples > 0 {
		t.MaxSamples = runMaxSamples
	}
	if err := t.Validate(); err != nil {
		return err
	}

	apiKey := cfg.APIKey()
	if apiKey == "" {
		return fmt.Errorf("no API key: set %s", keyEnvName(cfg))
	}

	// Ctrl-C stops the run after the current step; the partial result is
	// still recorded.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: apiTimeout(cfg)}
	steps := bindSteps(t, cfg, apiKey, httpClient)
	selector := task.NewSelector(t, selectionGateway(t, cfg, apiKey, httpClient))

	r, err := run.New(t.Name, input.Ref, t.K, t.TotalSteps)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	disp := task.NewDisplay(t.Name, runVerbose)
	disp.Header()

	engine := &task.Engine{
		Task:     t,
		Steps:    steps,
		Selector: selector,
		Run:      r,
		Display:  disp,
	}

	res, execErr := engine.Execute(ctx)
	if res != nil {
		if err := writeActions(r, res); err != nil {
			vlog.Warn("failed to write actions.json", "err", err)
		}
	}
	if execErr != nil {
		return execErr
	}

	fmt.Printf("Run recorded in %s\n", r.Dir)
	return nil
}

// bindSteps builds one voting engine per step type, each with its own oracle
// client and red-flag validator.
func bindSteps(t *task.Task, cfg *config.Config, apiKey string, httpClient *http.Client) []task.BoundStep {
	maxSamples := cfg.Voting.MaxSamples
	if t.MaxSamples > 0 {
		maxSamples = t.MaxSamples
	}
	parallelism := cfg.Voting.Parallelism
	if runParallel > 0 {
		parallelism = runParallel
	}

	steps := make([]task.BoundStep, 0, len(t.StepTypes))
	for _, st := range t.StepTypes {
		client := &oracle.Client{
			Endpoint:     cfg.Provider.Endpoint,
			APIKey:       apiKey,
			Model:        t.StepTypeModel(st),
			SystemPrompt: st.SystemPrompt,
			PromptTmpl:   st.Prompt,
			Temperature:  cfg.Provider.Temperature,
			MaxTokens:    cfg.Provider.MaxTokens,
			HTTPClient:   httpClient,
		}
		voter := &voting.Engine{
			Gateway:     client,
			Validator:   voting.NewValidator(st.MaxResponseWords, st.RedFlags),
			K:           t.K,
			MaxSamples:  maxSamples,
			Parallelism: parallelism,
		}
		steps = append(steps, task.BoundStep{Type: st, Voter: voter})
	}
	return steps
}

// selectionGateway is the oracle used by the oracle-backed step type
// selector. Its template passes the selection prompt through verbatim.
func selectionGateway(t *task.Task, cfg *config.Config, apiKey string, httpClient *http.Client) oracle.Gateway {
	return &oracle.Client{
		Endpoint:    cfg.Provider.Endpoint,
		APIKey:      apiKey,
		Model:       t.Model,
		PromptTmpl:  "{task_description}",
		Temperature: cfg.Provider.Temperature,
		MaxTokens:   cfg.Provider.MaxTokens,
		HTTPClient:  httpClient,
	}
}

// writeActions persists the resolved actions and final state next to
// meta.json, complete or not.
func writeActions(r *run.Run, res *task.Result) error {
	payload := struct {
		Completed  bool           `json:"completed"`
		Actions    []types.Action `json:"actions"`
		FinalState types.State    `json:"final_state"`
	}{
		Completed:  res.Completed,
		Actions:    res.Actions,
		FinalState: res.FinalState,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return r.WriteFile("actions.json", data)
}

func apiTimeout(cfg *config.Config) time.Duration {
	if d, err := time.ParseDuration(cfg.Provider.APITimeout); err == nil && d > 0 {
		return d
	}
	return 120 * time.Second
}

func keyEnvName(cfg *config.Config) string {
	if cfg.Provider.APIKeyEnv != "" {
		return cfg.Provider.APIKeyEnv
	}
	return "OPENROUTER_API_KEY"
}

func openLogFile() *os.File {
	dir := ".maker"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(dir+"/maker.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return f
}
