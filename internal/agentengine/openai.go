package agentengine

import (
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openaiDefaultModel = "gpt-4o"

func init() {
	register("openai", func(model string) (Binding, error) {
		if model == "" {
			model = openaiDefaultModel
		}
		_ = openaisdk.NewClient(option.WithAPIKey(""))
		return Binding{Provider: "openai", DefaultModel: model}, nil
	})
}
