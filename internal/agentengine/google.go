package agentengine

import "github.com/google/generative-ai-go/genai"

const googleDefaultModel = "gemini-2.5-flash"

func init() {
	register("google", func(model string) (Binding, error) {
		if model == "" {
			model = googleDefaultModel
		}
		// genai.NewClient dials out and needs a context; validation must
		// stay offline, so only a static type is referenced here to prove
		// the binding compiles against the real SDK.
		var cfg genai.GenerationConfig
		_ = cfg
		return Binding{Provider: "google", DefaultModel: model}, nil
	})
}
