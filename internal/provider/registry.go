package provider

// Model is a logical model identifier as requested by clients. The set is
// closed: Resolve matches exhaustively over these constants with a single
// default arm, so adding a provider is a compile-visible change rather
// than a runtime map edit.
type Model string

const (
	ModelGPT4       Model = "gpt-4"
	ModelGPT35Turbo Model = "gpt-3.5-turbo"
	ModelClaude3    Model = "claude-3"
	ModelGeminiPro  Model = "gemini-pro"
)

// DefaultModel is used when a request carries no model id, and is the
// fallback target for unavailable or unrecognized models.
const DefaultModel = ModelGPT4

// Config carries the provider credentials, collected once at startup and
// injected here. Absence of a key degrades the affected models to
// fallback bindings instead of failing resolution.
type Config struct {
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
}

// Binding is the result of resolving a logical model id: the backend to
// call, the concrete model name to ask it for, and whether the requested
// model is being served natively. Available=false means the turn runs on
// a disclosed fallback and persisted records must be tagged as such.
type Binding struct {
	Requested     string
	Provider      Provider
	ConcreteModel string
	Available     bool
}

// Registry resolves logical model ids to bindings. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	cfg    Config
	openai *OpenAIProvider
	gemini *GeminiProvider
}

// NewRegistry builds a registry from static configuration. gemini may be
// nil when no Gemini credentials exist; gemini-pro then resolves to the
// fallback binding.
func NewRegistry(cfg Config, gemini *GeminiProvider) *Registry {
	return &Registry{
		cfg:    cfg,
		openai: NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL),
		gemini: gemini,
	}
}

// Resolve maps a requested model id to a binding. It never fails: unknown
// ids and models without credentials degrade to the default binding with
// Available=false. Resolution is a pure function of the requested id and
// the registry's configuration, so repeated calls yield identical bindings.
func (r *Registry) Resolve(requested string) Binding {
	switch Model(requested) {
	case ModelGPT4:
		return r.openaiBinding(requested, "gpt-4", true)

	case ModelGPT35Turbo:
		return r.openaiBinding(requested, "gpt-3.5-turbo", true)

	case ModelClaude3:
		// No native Anthropic integration; always served by the fallback.
		return r.openaiBinding(requested, string(DefaultModel), false)

	case ModelGeminiPro:
		if r.gemini != nil {
			return Binding{
				Requested:     requested,
				Provider:      r.gemini,
				ConcreteModel: "gemini-1.5-flash",
				Available:     true,
			}
		}
		return r.openaiBinding(requested, string(DefaultModel), false)

	default:
		// Unrecognized id: most general-purpose binding, disclosed as fallback.
		return r.openaiBinding(requested, string(DefaultModel), false)
	}
}

func (r *Registry) openaiBinding(requested, concrete string, native bool) Binding {
	return Binding{
		Requested:     requested,
		Provider:      r.openai,
		ConcreteModel: concrete,
		Available:     native && r.cfg.OpenAIKey != "",
	}
}
