package agentengine

import (
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicDefaultModel is used when an AgentRecord names no specific model.
const anthropicDefaultModel = "claude-sonnet-4-5"

func init() {
	register("anthropic", func(model string) (Binding, error) {
		if model == "" {
			model = anthropicDefaultModel
		}
		// Construction only, to prove the binding is wireable: no request is
		// sent. A real request requires a live API key, which validation
		// must not depend on.
		_ = anthropicsdk.NewClient(option.WithAPIKey(""))
		return Binding{Provider: "anthropic", DefaultModel: model}, nil
	})
}
