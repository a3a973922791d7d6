package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/scout/internal/agent/telemetry"
)

// GuidanceProfile is an immutable named block of task-specific instructions
// selected once per task, before the loop begins.
type GuidanceProfile struct {
	Name         string
	Instructions string
}

var guidanceCatalog = []GuidanceProfile{
	{
		Name: "TravelPlanning",
		Instructions: "GUIDANCE (travel planning): Structure the plan day by day. Check the weather " +
			"forecast for the destination and dates before committing to outdoor activities. Compare " +
			"transport modes with the routing tool and state travel times between stops. Offer a " +
			"calendar link for fixed appointments such as departures and reservations.",
	},
	{
		Name: "ResearchAndSummarize",
		Instructions: "GUIDANCE (research): Use web search to gather current information before " +
			"answering. Cross-check important claims across at least two sources and cite the source " +
			"URLs inline. Summarize findings in short sections with a concluding recommendation.",
	},
	{
		Name: "DefaultGuidance",
		Instructions: "GUIDANCE: Read each tool description carefully, pay close attention to any " +
			"date or time specifics in the request, and build a clear, actionable plan.",
	},
}

func defaultGuidance() GuidanceProfile { return guidanceCatalog[len(guidanceCatalog)-1] }

// Planner is the planning specialization of the run-loop: a smaller fixed
// tool set plus a one-shot guidance classification injected as extra
// context before the loop starts.
type Planner struct {
	llm           ModelClient
	agent         *Agent
	logger        *log.Logger
	guidanceModel string
}

func NewPlanner(llm ModelClient, registry *Registry, logger *log.Logger, tele *telemetry.Telemetry, opts Options, guidanceModel string) (*Planner, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	}
	opts.WarningLabel = "Planner Agent"
	agent, err := NewAgent(llm, registry, logger, tele, opts)
	if err != nil {
		return nil, err
	}
	return &Planner{llm: llm, agent: agent, logger: logger, guidanceModel: guidanceModel}, nil
}

// Run classifies the task into a guidance profile, injects it after the
// caller's system prefix, and drives the shared run-loop.
func (p *Planner) Run(ctx context.Context, task string, history []Message) (<-chan string, *RunResult) {
	profile := p.selectGuidance(ctx, task)
	p.logger.Printf("guidance profile: %s", profile.Name)

	withGuidance := make([]Message, 0, len(history)+1)
	withGuidance = append(withGuidance, history...)
	withGuidance = append(withGuidance, SystemMessage(profile.Instructions))
	return p.agent.Run(ctx, task, withGuidance)
}

// selectGuidance runs the one-shot classification call. Any failure or an
// unrecognized answer falls back to the default profile; the loop must
// never be blocked by this pre-step.
func (p *Planner) selectGuidance(ctx context.Context, task string) GuidanceProfile {
	var names []string
	for _, g := range guidanceCatalog {
		names = append(names, g.Name)
	}
	system := fmt.Sprintf("Classify the user's task into exactly one of these planning categories: %s. "+
		"Respond with the category name only, nothing else.", strings.Join(names, ", "))

	msg, err := Collect(ctx, p.llm, p.guidanceModel, []Message{SystemMessage(system), HumanMessage(task)})
	if err != nil {
		p.logger.Printf("guidance classification failed, using default: %v", err)
		return defaultGuidance()
	}
	answer := strings.TrimSpace(msg.Content)
	for _, g := range guidanceCatalog {
		if strings.EqualFold(answer, g.Name) {
			return g
		}
	}
	p.logger.Printf("unrecognized guidance class %q, using default", answer)
	return defaultGuidance()
}
