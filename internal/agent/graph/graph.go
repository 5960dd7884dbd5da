package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/chative/appointment-assistant/internal/agent/graph/nodes"
	"github.com/chative/appointment-assistant/internal/agent/graph/observers"
	"github.com/chative/appointment-assistant/internal/agent/middleware"
	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/agent/safety"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// Config holds everything needed to build the request pipeline.
type Config struct {
	Screen     *safety.Screen
	Chain      *middleware.Chain
	Classifier model.IntentClassifier
	Drafter    model.ResponseDrafter
	Dispatcher nodes.Dispatcher
	Clinic     model.ClinicConfig
	// Observer is optional and receives node timings.
	Observer observers.NodeObserver
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("graph config is nil")
	}
	if c.Classifier == nil || c.Drafter == nil {
		return fmt.Errorf("classifier and drafter are required")
	}
	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is nil")
	}
	if c.Screen == nil {
		c.Screen = safety.DefaultScreen()
	}
	if c.Chain == nil {
		c.Chain = middleware.NewChain(middleware.DefaultMaxToolCalls)
	}
	return nil
}

// GraphBuilder handles the construction of the request pipeline graph
type GraphBuilder struct {
	config *Config
	graph  *compose.Graph[*model.RequestState, *model.RequestState]
}

// Runner executes the compiled pipeline. A run either ends in a terminal
// status or stops at hitl_node with a pending review that Resume resolves.
type Runner struct {
	runnable compose.Runnable[*model.RequestState, *model.RequestState]
	clinic   model.ClinicConfig
	observer observers.NodeObserver
}

// NewRunner builds and compiles the pipeline.
func NewRunner(ctx context.Context, cfg *Config) (*Runner, error) {
	runnable, err := BuildGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{runnable: runnable, clinic: cfg.Clinic, observer: cfg.Observer}, nil
}

// Process runs one request through the pipeline.
func (r *Runner) Process(ctx context.Context, in model.RequestInput) (*model.RequestState, error) {
	state := model.NewRequestState(in)
	out, err := r.runnable.Invoke(ctx, state, compose.WithCallbacks(observers.NewAllCallbacks(in.RunID, r.observer)...))
	if err != nil {
		return state, fmt.Errorf("pipeline run %s: %w", in.RunID, err)
	}
	if out == nil {
		return state, fmt.Errorf("pipeline run %s: empty output", in.RunID)
	}
	return out, nil
}

// Resume applies a reviewer decision to a state suspended at hitl_node.
func (r *Runner) Resume(state *model.RequestState, decision model.ReviewDecision) error {
	return nodes.ApplyReviewDecision(state, decision, r.clinic)
}

// BuildGraph constructs and returns the compiled pipeline graph
func BuildGraph(ctx context.Context, cfg *Config) (compose.Runnable[*model.RequestState, *model.RequestState], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &GraphBuilder{
		config: cfg,
		graph:  compose.NewGraph[*model.RequestState, *model.RequestState](),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

// addNodes adds all pipeline stages to the graph
func (b *GraphBuilder) addNodes() error {
	c := b.config
	stages := []struct {
		name string
		node *compose.Lambda
	}{
		{nodes.NodeInput, nodes.NewInputNode(c.Screen, c.Chain)},
		{nodes.NodeEmergency, nodes.NewEmergencyNode()},
		{nodes.NodeMedicalAdvice, nodes.NewMedicalAdviceNode(c.Clinic)},
		{nodes.NodeEscalate, nodes.NewEscalateNode(c.Clinic)},
		{nodes.NodeIntent, nodes.NewIntentNode(c.Classifier)},
		{nodes.NodeAction, nodes.NewActionNode(c.Dispatcher)},
		{nodes.NodeNeedsInfo, nodes.NewNeedsInfoNode()},
		{nodes.NodeHITL, nodes.NewHITLNode(c.Drafter, c.Clinic)},
	}

	for _, s := range stages {
		if err := b.graph.AddLambdaNode(s.name, s.node, compose.WithNodeName(s.name)); err != nil {
			logx.Error().Err(err).Str("node", s.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", s.name, err)
		}
	}
	return nil
}

// addEdges creates the fixed connections between stages
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInput},
		{nodes.NodeEmergency, compose.END},
		{nodes.NodeMedicalAdvice, compose.END},
		{nodes.NodeEscalate, compose.END},
		{nodes.NodeIntent, nodes.NodeAction},
		{nodes.NodeNeedsInfo, compose.END},
		{nodes.NodeHITL, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the routing rules after input and action
func (b *GraphBuilder) addBranches() error {
	inputBranch := compose.NewGraphBranch(
		nodes.NewInputCondition(),
		map[string]bool{
			nodes.NodeEmergency:     true,
			nodes.NodeMedicalAdvice: true,
			nodes.NodeEscalate:      true,
			nodes.NodeIntent:        true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeInput, inputBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding input branch")
		return fmt.Errorf("error adding input branch: %w", err)
	}

	actionBranch := compose.NewGraphBranch(
		nodes.NewActionCondition(),
		map[string]bool{
			nodes.NodeNeedsInfo: true,
			nodes.NodeHITL:      true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAction, actionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding action branch")
		return fmt.Errorf("error adding action branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.RequestState, *model.RequestState], error) {
	// The longest path is input, intent, action, hitl.
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(10), compose.WithGraphName("appointment_pipeline"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
