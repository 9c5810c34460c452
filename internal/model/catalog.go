package model

// Provider identifies a hosted model family.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderAmazon    Provider = "amazon"
)

// LLMModel is a read-only catalog entry describing one callable model.
type LLMModel struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Provider           Provider `json:"provider"`
	Description        string   `json:"description"`
	MaxTokens          int      `json:"maxTokens"`
	DefaultTokens      int      `json:"defaultTokens"`
	DefaultTemperature float64  `json:"defaultTemperature"`
	Capabilities       []string `json:"capabilities"`
}

// GenerationParameters are the scalar tuning values sent with a completion.
type GenerationParameters struct {
	MaxTokens        int     `json:"maxTokens"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
}

// ParameterPreset is a named tuple of generation parameters applied
// atomically. MaxTokens is never part of a preset.
type ParameterPreset struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
}

// ParameterPresets lists the fixed presets, from most deterministic to most
// creative.
var ParameterPresets = []ParameterPreset{
	{
		Name:        "Precise",
		Description: "Highly deterministic with minimal randomness (best for factual Q&A)",
		Temperature: 0.1,
		TopP:        0.9,
	},
	{
		Name:        "Balanced",
		Description: "Default middle-ground settings for general use",
		Temperature: 0.7,
		TopP:        0.95,
	},
	{
		Name:             "Creative",
		Description:      "High variability for more novel and diverse outputs",
		Temperature:      0.9,
		TopP:             1.0,
		FrequencyPenalty: 0.3,
		PresencePenalty:  0.2,
	},
	{
		Name:             "Very Creative",
		Description:      "Maximum creativity and variability (stories, brainstorming)",
		Temperature:      1.0,
		TopP:             1.0,
		FrequencyPenalty: 0.5,
		PresencePenalty:  0.5,
	},
}

// PresetByName looks up a preset by its display name.
func PresetByName(name string) (ParameterPreset, bool) {
	for _, p := range ParameterPresets {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterPreset{}, false
}

// DefaultModelID is the model selected in a fresh state.
const DefaultModelID = "amazon-nova-pro"

// Catalog returns the available model catalog. Callers get a fresh slice;
// entries themselves are configuration and must not be mutated.
func Catalog() []LLMModel {
	out := make([]LLMModel, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogModel looks up a catalog entry by id.
func CatalogModel(id string) (LLMModel, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return LLMModel{}, false
}

var catalog = []LLMModel{
	{
		ID:                 "gpt-4-turbo",
		Name:               "ChatGPT 4.5",
		Provider:           ProviderOpenAI,
		Description:        "Most capable GPT-4 model for complex tasks",
		MaxTokens:          128000,
		DefaultTokens:      4096,
		DefaultTemperature: 0.7,
		Capabilities:       []string{"text", "code", "reasoning"},
	},
	{
		ID:                 "gpt-3.5-turbo",
		Name:               "OpenAI o3-mini",
		Provider:           ProviderOpenAI,
		Description:        "Fast and efficient model for general purpose tasks",
		MaxTokens:          16000,
		DefaultTokens:      2048,
		DefaultTemperature: 0.7,
		Capabilities:       []string{"text", "code"},
	},
	{
		ID:                 "claude-3-7-sonnet-20250219",
		Name:               "Claude Sonnet 3.7",
		Provider:           ProviderAnthropic,
		Description:        "Balanced model with strong reasoning capabilities",
		MaxTokens:          200000,
		DefaultTokens:      4096,
		DefaultTemperature: 0.7,
		Capabilities:       []string{"text", "code", "reasoning", "images"},
	},
	{
		ID:                 "amazon-nova-pro",
		Name:               "Amazon Nova Pro",
		Provider:           ProviderAmazon,
		Description:        "Amazon's most powerful model with enhanced reasoning",
		MaxTokens:          64000,
		DefaultTokens:      4096,
		DefaultTemperature: 0.7,
		Capabilities:       []string{"text", "code", "reasoning", "images"},
	},
	{
		ID:                 "amazon-nova-canvas",
		Name:               "Amazon Nova Canvas",
		Provider:           ProviderAmazon,
		Description:        "Amazon's multimodal model specialized for creative tasks",
		MaxTokens:          128000,
		DefaultTokens:      4096,
		DefaultTemperature: 0.8,
		Capabilities:       []string{"text", "code", "reasoning", "images", "creative"},
	},
	{
		ID:                 "amazon-nova-lite",
		Name:               "Amazon Nova Lite",
		Provider:           ProviderAmazon,
		Description:        "Amazon's general purpose model with strong reasoning",
		MaxTokens:          32000,
		DefaultTokens:      2048,
		DefaultTemperature: 0.7,
		Capabilities:       []string{"text", "code", "reasoning"},
	},
	{
		ID:                 "amazon-nova-micro",
		Name:               "Amazon Nova Micro",
		Provider:           ProviderAmazon,
		Description:        "Fast and efficient model for simpler tasks",
		MaxTokens:          16000,
		DefaultTokens:      1024,
		DefaultTemperature: 0.7,
		Capabilities:       []string{"text", "code"},
	},
}
