package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/scout/internal/agent/telemetry"
)

// RunState is the terminal state of one run.
type RunState string

const (
	RunDone          RunState = "done"
	RunMaxIterations RunState = "max_iterations"
	RunFailed        RunState = "failed"
)

// RunResult is populated once the run's output channel has been closed.
type RunResult struct {
	ID           string
	State        RunState
	Conversation []Message
	Iterations   int
}

// Options tune one agent instance. WarningLabel names the agent in the
// iteration-cap and error markers ("Agent" or "Planner Agent").
type Options struct {
	Model              string
	MaxIterations      int
	MaxConcurrentTools int
	PrepareDirs        []string
	WarningLabel       string
}

// Agent drives the iterative model-call/tool-call cycle. One Agent is
// shared across requests; all per-run state lives in the run itself.
type Agent struct {
	llm      ModelClient
	registry *Registry
	logger   *log.Logger
	tele     *telemetry.Telemetry
	opts     Options
}

func NewAgent(llm ModelClient, registry *Registry, logger *log.Logger, tele *telemetry.Telemetry, opts Options) (*Agent, error) {
	if llm == nil {
		return nil, fmt.Errorf("agent: model client is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("agent: tool registry is required")
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 8
	}
	if opts.MaxConcurrentTools <= 0 {
		opts.MaxConcurrentTools = 4
	}
	if opts.WarningLabel == "" {
		opts.WarningLabel = "Agent"
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	}
	return &Agent{llm: llm, registry: registry, logger: logger, tele: tele, opts: opts}, nil
}

// Run starts a run and returns its output stream plus a result that is
// valid once the stream has been closed. history must already contain the
// system prefix; the task is appended as the human turn. Text is streamed
// as it arrives from the model, before the run completes.
func (a *Agent) Run(ctx context.Context, task string, history []Message) (<-chan string, *RunResult) {
	out := make(chan string)
	res := &RunResult{ID: newRunID()}
	go func() {
		defer close(out)
		start := time.Now()
		a.run(ctx, task, history, out, res)
		if a.tele != nil {
			a.tele.ObserveRun(string(res.State), time.Since(start))
		}
	}()
	return out, res
}

func (a *Agent) run(ctx context.Context, task string, history []Message, out chan<- string, res *RunResult) {
	for _, dir := range a.opts.PrepareDirs {
		if err := clearDir(dir); err != nil {
			a.logger.Printf("preparing %s: %v", dir, err)
		}
	}

	conv := make([]Message, 0, len(history)+2)
	conv = append(conv, history...)
	conv = append(conv, HumanMessage(task))
	res.Conversation = conv
	res.State = RunFailed

	emit := func(s string) bool {
		select {
		case out <- s:
			if a.tele != nil {
				a.tele.AddStreamedBytes(len(s))
			}
			return true
		case <-ctx.Done():
			return false
		}
	}

	specs := a.registry.Specs()

	for iter := 0; iter < a.opts.MaxIterations; iter++ {
		res.Iterations = iter + 1
		a.logger.Printf("run %s iteration %d/%d", res.ID, iter+1, a.opts.MaxIterations)

		modelStart := time.Now()
		fragCh, errCh := a.llm.Stream(ctx, a.opts.Model, conv, specs)

		var fragments []Fragment
		streamedText := false
		for f := range fragCh {
			fragments = append(fragments, f)
			if f.Text != "" {
				streamedText = true
				if !emit(f.Text) {
					res.Conversation = conv
					return
				}
			}
		}
		if a.tele != nil {
			a.tele.ObserveModelCall(a.opts.Model, time.Since(modelStart))
		}
		if err := <-errCh; err != nil {
			a.logger.Printf("run %s model stream failed: %v", res.ID, err)
			emit(fmt.Sprintf("\n[%s Error: An unexpected error occurred during execution. Details: %v]", a.opts.WarningLabel, err))
			res.Conversation = conv
			return
		}
		if len(fragments) == 0 {
			emit(fmt.Sprintf("[%s Error: LLM response stream was empty or did not contain AI message chunks]", a.opts.WarningLabel))
			res.Conversation = conv
			return
		}

		ai := Reassemble(fragments, a.logger)
		conv = append(conv, ai)

		if len(ai.ToolCalls) == 0 {
			res.State = RunDone
			res.Conversation = conv
			return
		}

		conv = append(conv, a.executeCalls(ctx, ai.ToolCalls)...)

		// The iteration cap cuts off before another model call.
		if iter == a.opts.MaxIterations-1 {
			res.State = RunMaxIterations
			res.Conversation = conv
			if streamedText {
				emit(fmt.Sprintf("\n[%s Warning: Reached maximum iterations (%d). The response might be incomplete or waiting for tool results.]",
					a.opts.WarningLabel, a.opts.MaxIterations))
			} else {
				emit(fmt.Sprintf("[%s Error: Reached maximum iterations (%d) without a final answer or text response. The last step might have been tool calls.]",
					a.opts.WarningLabel, a.opts.MaxIterations))
			}
			return
		}
	}
}

// executeCalls runs the calls of one model turn, independent calls in
// parallel, and returns exactly one tool-result message per call in
// completion order.
func (a *Agent) executeCalls(ctx context.Context, calls []ToolCall) []Message {
	results := make(chan Message, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrentTools)
	for _, call := range calls {
		call := call
		g.Go(func() error {
			start := time.Now()
			msg := a.registry.Invoke(gctx, call)
			if a.tele != nil {
				a.tele.ObserveToolCall(call.Name, msg.IsError, time.Since(start))
			}
			results <- msg
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	out := make([]Message, 0, len(calls))
	for m := range results {
		out = append(out, m)
	}
	return out
}

// clearDir removes the files inside dir, creating it if absent.
func clearDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
