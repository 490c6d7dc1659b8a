// Package mcp exposes the idea gate as Model Context Protocol tools so that
// other agents can ask whether a pitch would pass.
package mcp

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/heuristic"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/usecase/validation"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server serves the wrinkle tools over MCP
type Server struct {
	gate       *validation.Orchestrator
	classifier *heuristic.Classifier
	trickery   *heuristic.TrickeryDetector
	server     *mcp.Server
}

type validateInput struct {
	Text                 string `json:"text" jsonschema:"the pitch to validate"`
	HasExistingValidIdea bool   `json:"hasExistingValidIdea,omitempty" jsonschema:"true if the conversation already has an accepted idea"`
}

type validateOutput struct {
	Valid       bool     `json:"valid"`
	Preview     string   `json:"preview,omitempty"`
	GateMessage string   `json:"gateMessage,omitempty"`
	Glitch      bool     `json:"glitch"`
	Hints       []string `json:"hints,omitempty"`
	Source      string   `json:"source"`
}

type classifyInput struct {
	Text string `json:"text" jsonschema:"text to classify locally"`
}

type classifyOutput struct {
	LooksLikeIdea bool `json:"looksLikeIdea"`
	Trickery      bool `json:"trickery"`
}

type scoreMessage struct {
	Role         string `json:"role" jsonschema:"user or bot"`
	PointsEarned *int   `json:"pointsEarned,omitempty" jsonschema:"wrinkle point delta of a bot turn"`
}

type scoreInput struct {
	Messages []scoreMessage `json:"messages" jsonschema:"conversation turns in order"`
}

type scoreOutput struct {
	Score int `json:"score"`
}

// NewServer registers the tools. trickery may be nil.
func NewServer(gate *validation.Orchestrator, classifier *heuristic.Classifier, trickery *heuristic.TrickeryDetector, version string) *Server {
	s := &Server{
		gate:       gate,
		classifier: classifier,
		trickery:   trickery,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "wrinkle",
			Version: version,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "validate_idea",
		Description: "Run the startup idea gate on a pitch. Returns whether it is accepted, a preview of the idea, or the rejection message with improvement hints.",
	}, s.validateIdea)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "classify_idea",
		Description: "Local checks only: whether text looks like a business idea and whether it is a manipulation attempt.",
	}, s.classifyIdea)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compute_score",
		Description: "Compute the wrinkle point total of a conversation: the sum of bot point deltas, never below zero.",
	}, s.computeScore)

	return s
}

// Run serves until the client disconnects or ctx is canceled
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// Connect starts a session on transport without blocking
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect mcp server")
	}
	return session, nil
}

func (s *Server) validateIdea(ctx context.Context, req *mcp.CallToolRequest, in validateInput) (*mcp.CallToolResult, validateOutput, error) {
	if in.Text == "" {
		return nil, validateOutput{}, goerr.New("text is required")
	}

	result := s.gate.Validate(ctx, in.Text, in.HasExistingValidIdea)
	logging.From(ctx).Info("mcp validate_idea", "valid", result.Valid, "source", result.Source)

	return nil, validateOutput{
		Valid:       result.Valid,
		Preview:     result.Preview,
		GateMessage: result.GateMessage,
		Glitch:      result.Glitch,
		Hints:       result.Hints,
		Source:      string(result.Source),
	}, nil
}

func (s *Server) classifyIdea(ctx context.Context, req *mcp.CallToolRequest, in classifyInput) (*mcp.CallToolResult, classifyOutput, error) {
	out := classifyOutput{LooksLikeIdea: s.classifier.LooksLikeIdea(in.Text)}
	if s.trickery != nil {
		out.Trickery = s.trickery.IsTrickery(in.Text)
	}
	return nil, out, nil
}

func (s *Server) computeScore(ctx context.Context, req *mcp.CallToolRequest, in scoreInput) (*mcp.CallToolResult, scoreOutput, error) {
	messages := make([]*model.Message, 0, len(in.Messages))
	for _, m := range in.Messages {
		messages = append(messages, &model.Message{
			Role:         model.Role(m.Role),
			PointsEarned: m.PointsEarned,
		})
	}
	return nil, scoreOutput{Score: model.ComputeScore(messages)}, nil
}
