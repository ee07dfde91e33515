package summarize

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
)

// generateMethod is the generation capability a candidate model must support.
const generateMethod = "generateContent"

// PickModel selects the first catalog model that supports text generation.
// Called exactly once at process start; the result is immutable for the
// lifetime of the process and injected into every Generator.
func PickModel(ctx context.Context, client *genai.Client) (string, error) {
	it := client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", fmt.Errorf("summarize: list models: %w", err)
		}
		for _, method := range m.SupportedGenerationMethods {
			if method == generateMethod {
				return m.Name, nil
			}
		}
	}
	return "", fmt.Errorf("summarize: no catalog model supports %s", generateMethod)
}
