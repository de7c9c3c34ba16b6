package oracle

import (
	"context"
	"os"

	"google.golang.org/genai"

	"github.com/HartBrook/keyfit/internal/errors"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	// GeminiKeyEnv names the variable holding the Gemini API key.
	GeminiKeyEnv = "GEMINI_API_KEY"
)

// GeminiClient asks Gemini to suppress units.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed oracle. The API key comes from
// GEMINI_API_KEY, falling back to GOOGLE_API_KEY.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	apiKey := os.Getenv(GeminiKeyEnv)
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.OracleAuthFailed("Gemini", GeminiKeyEnv)
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.OracleFailed("failed to create Gemini client", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Suppress asks Gemini to remove unit from sentence.
func (g *GeminiClient) Suppress(ctx context.Context, sentence, unit string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(buildUserPrompt(sentence, unit)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(buildSystemPrompt(), genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.3),
			MaxOutputTokens:   defaultMaxTokens,
		},
	)
	if err != nil {
		return "", errors.OracleFailed("Gemini request failed", err)
	}
	return cleanReply(resp.Text()), nil
}
