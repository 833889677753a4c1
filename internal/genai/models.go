package genai

// Models names the model used for each role.
type Models struct {
	Classifier string
	Expander   string
	Answer     string
}

// Default model choices per provider. Answer models on Groq emit a
// <think> section that the pipeline strips.
var defaultModels = map[Provider]Models{
	ProviderGroq: {
		Classifier: "llama-3.1-8b-instant",
		Expander:   "llama-3.1-8b-instant",
		Answer:     "deepseek-r1-distill-llama-70b",
	},
	ProviderCerebras: {
		Classifier: "llama3.1-8b",
		Expander:   "llama3.1-8b",
		Answer:     "qwen-3-32b",
	},
	ProviderOpenAI: {
		Classifier: "gpt-4.1-nano",
		Expander:   "gpt-4.1-mini",
		Answer:     "gpt-4.1-mini",
	},
	ProviderGemini: {
		Classifier: "gemini-2.5-flash-lite",
		Expander:   "gemini-2.5-flash-lite",
		Answer:     "gemini-2.5-flash",
	},
}

// DefaultModels returns the default models for p (zero value if unknown).
func DefaultModels(p Provider) Models {
	return defaultModels[p]
}

// WithOverrides replaces every non-empty field.
func (m Models) WithOverrides(o Models) Models {
	if o.Classifier != "" {
		m.Classifier = o.Classifier
	}
	if o.Expander != "" {
		m.Expander = o.Expander
	}
	if o.Answer != "" {
		m.Answer = o.Answer
	}
	return m
}

// Presets holds the per-strategy generation options.
type Presets struct {
	Classify   Options
	Expand     Options
	University Options
	Web        Options
	Tutor      Options
	Document   Options
}

// NewPresets builds the option set for each pipeline step. Classification
// expects a single word, so its budget is tiny.
func NewPresets(m Models) Presets {
	return Presets{
		Classify:   Options{Model: m.Classifier, MaxTokens: 10, Temperature: 0, Role: RoleClassify},
		Expand:     Options{Model: m.Expander, MaxTokens: 256, Temperature: 0.3, Role: RoleExpand},
		University: Options{Model: m.Answer, MaxTokens: 2048, Temperature: 0.2, Role: RoleAnswer},
		Web:        Options{Model: m.Answer, MaxTokens: 2048, Temperature: 0.2, Role: RoleAnswer},
		Tutor:      Options{Model: m.Answer, MaxTokens: 2048, Temperature: 0.2, Role: RoleAnswer},
		Document:   Options{Model: m.Answer, MaxTokens: 2048, Temperature: 0.1, Role: RoleAnswer},
	}
}
