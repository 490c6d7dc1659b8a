package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/wrinkle/pkg/adapter"
	"google.golang.org/genai"
)

func TestGenerateContent(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, projectID, "us-central1", "")
	gt.NoError(t, err)

	contents := []*genai.Content{
		genai.NewContentFromText("Reply with the single word: pong", genai.RoleUser),
	}

	resp, err := client.GenerateContent(ctx, contents, nil)
	gt.NoError(t, err)
	gt.S(t, adapter.ResponseText(resp)).Contains("pong")
}

func TestResponseText(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		gt.Equal(t, adapter.ResponseText(nil), "")
	})

	t.Run("no candidates", func(t *testing.T) {
		gt.Equal(t, adapter.ResponseText(&genai.GenerateContentResponse{}), "")
	})

	t.Run("joins text parts and skips thoughts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{
					Content: &genai.Content{
						Role: genai.RoleModel,
						Parts: []*genai.Part{
							{Text: "thinking...", Thought: true},
							{Text: `{"valid":`},
							{Text: ` true}`},
						},
					},
				},
			},
		}
		gt.Equal(t, adapter.ResponseText(resp), `{"valid": true}`)
	})
}
