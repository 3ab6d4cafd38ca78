package models

var textAndImage = Modalities{
	Input:  []string{"text", "image"},
	Output: []string{"text"},
}

// Catalog is the single source of model definitions. Everything the
// registry derives (aliases, migrations, provider config) comes from here.
var Catalog = []Model{
	{
		ID:          "gpt-5.3-codex",
		Family:      FamilyCodex,
		DisplayName: "GPT-5.3 Codex",
		Version:     "5.3",
		Limit:       Limit{Context: 400000, Output: 128000},
		Modalities:  textAndImage,
		Reasoning:   ReasoningXHigh,
		Aliases:     []string{"gpt-5.3-codex", "gpt 5.3 codex", "codex"},
	},
	{
		ID:          "gpt-5.2",
		Family:      FamilyGPT,
		DisplayName: "GPT-5.2",
		Version:     "5.2",
		Limit:       Limit{Context: 400000, Output: 128000},
		Modalities:  textAndImage,
		Reasoning:   ReasoningXHigh,
		Aliases:     []string{"gpt-5.2", "gpt 5.2"},
	},

	// deprecated GPT models, kept for migration
	{
		ID:          "gpt-5.2-codex",
		Family:      FamilyCodex,
		DisplayName: "GPT-5.2 Codex (deprecated)",
		Version:     "5.2",
		Limit:       Limit{Context: 400000, Output: 128000},
		Modalities:  textAndImage,
		Reasoning:   ReasoningXHigh,
		Deprecated:  true,
		ReplacedBy:  "gpt-5.3-codex",
	},
	{
		ID:          "gpt-5.1-codex",
		Family:      FamilyCodex,
		DisplayName: "GPT-5.1 Codex (deprecated)",
		Version:     "5.1",
		Limit:       Limit{Context: 400000, Output: 128000},
		Modalities:  textAndImage,
		Reasoning:   ReasoningFull,
		Deprecated:  true,
		ReplacedBy:  "gpt-5.3-codex",
	},
	{
		ID:          "gpt-5.1-codex-max",
		Family:      FamilyCodex,
		DisplayName: "GPT-5.1 Codex Max (deprecated)",
		Version:     "5.1",
		Limit:       Limit{Context: 400000, Output: 128000},
		Modalities:  textAndImage,
		Reasoning:   ReasoningXHigh,
		Deprecated:  true,
		ReplacedBy:  "gpt-5.3-codex",
	},
	{
		ID:          "gpt-5.1-codex-mini",
		Family:      FamilyCodex,
		DisplayName: "GPT-5.1 Codex Mini (deprecated)",
		Version:     "5.1",
		Limit:       Limit{Context: 200000, Output: 64000},
		Modalities:  textAndImage,
		Reasoning:   ReasoningBasic,
		Deprecated:  true,
		ReplacedBy:  "gpt-5.3-codex",
	},
	{
		ID:          "gpt-5.1",
		Family:      FamilyGPT,
		DisplayName: "GPT-5.1 (deprecated)",
		Version:     "5.1",
		Limit:       Limit{Context: 400000, Output: 128000},
		Modalities:  textAndImage,
		Reasoning:   ReasoningFull,
		Deprecated:  true,
		ReplacedBy:  "gpt-5.2",
	},

	{
		ID:          "claude-opus-4-6-20260205",
		Family:      FamilyClaude,
		DisplayName: "Claude Opus 4.6",
		Version:     "4.6",
		Limit:       Limit{Context: 200000, Output: 64000},
		Modalities:  textAndImage,
	},
	{
		ID:          "claude-sonnet-4-5-20250929",
		Family:      FamilyClaude,
		DisplayName: "Claude Sonnet 4.5",
		Version:     "4.5",
		Limit:       Limit{Context: 200000, Output: 64000},
		Modalities:  textAndImage,
	},
	{
		ID:          "claude-haiku-4-5-20251001",
		Family:      FamilyClaude,
		DisplayName: "Claude Haiku 4.5",
		Version:     "4.5",
		Limit:       Limit{Context: 200000, Output: 8192},
		Modalities:  textAndImage,
	},

	// deprecated Claude models, kept for migration
	{
		ID:          "claude-opus-4-5-20251101",
		Family:      FamilyClaude,
		DisplayName: "Claude Opus 4.5 (deprecated)",
		Version:     "4.5",
		Limit:       Limit{Context: 200000, Output: 64000},
		Modalities:  textAndImage,
		Deprecated:  true,
		ReplacedBy:  "claude-opus-4-6-20260205",
	},
	{
		ID:          "claude-opus-4-6-20260205-third-party",
		Family:      FamilyClaude,
		DisplayName: "Claude Opus 4.6 third-party (deprecated)",
		Version:     "4.6",
		Limit:       Limit{Context: 200000, Output: 64000},
		Modalities:  textAndImage,
		Deprecated:  true,
		ReplacedBy:  "claude-opus-4-6-20260205",
	},
	{
		ID:          "claude-opus-4-5-20251101-third-party",
		Family:      FamilyClaude,
		DisplayName: "Claude Opus 4.5 third-party (deprecated)",
		Version:     "4.5",
		Limit:       Limit{Context: 200000, Output: 64000},
		Modalities:  textAndImage,
		Deprecated:  true,
		ReplacedBy:  "claude-opus-4-6-20260205",
	},
	{
		ID:          "claude-sonnet-4-5-20250929-third-party",
		Family:      FamilyClaude,
		DisplayName: "Claude Sonnet 4.5 third-party (deprecated)",
		Version:     "4.5",
		Limit:       Limit{Context: 200000, Output: 64000},
		Modalities:  textAndImage,
		Deprecated:  true,
		ReplacedBy:  "claude-sonnet-4-5-20250929",
	},
	{
		ID:          "claude-haiku-4-5-20251001-third-party",
		Family:      FamilyClaude,
		DisplayName: "Claude Haiku 4.5 third-party (deprecated)",
		Version:     "4.5",
		Limit:       Limit{Context: 200000, Output: 8192},
		Modalities:  textAndImage,
		Deprecated:  true,
		ReplacedBy:  "claude-haiku-4-5-20251001",
	},

	{
		ID:          "gemini-3-pro",
		Family:      FamilyGemini,
		DisplayName: "Gemini 3 Pro",
		Version:     "3",
		Limit:       Limit{Context: 1048576, Output: 65536},
		Modalities:  textAndImage,
	},
}

const (
	sonnet = "claude-sonnet-4-5-20250929"
	opus   = "claude-opus-4-6-20260205"
	gpt52  = "gpt-5.2"
	gemini = "gemini-3-pro"
)

var omoAgents = map[string]string{
	"sisyphus":                sonnet,
	"hephaestus":              sonnet,
	"oracle":                  gpt52,
	"librarian":               sonnet,
	"explore":                 sonnet,
	"multimodal-looker":       gemini,
	"prometheus":              gpt52,
	"metis":                   gpt52,
	"momus":                   gpt52,
	"atlas":                   sonnet,
	"build":                   opus,
	"plan":                    opus,
	"sisyphus-junior":         sonnet,
	"OpenCode-Builder":        opus,
	"general":                 sonnet,
	"frontend-ui-ux-engineer": gemini,
	"document-writer":         gemini,
}

var omoCategories = map[string]string{
	"visual-engineering": gemini,
	"ultrabrain":         gemini,
	"deep":               gemini,
	"artistry":           gemini,
	"quick":              sonnet,
	"unspecified-low":    sonnet,
	"unspecified-high":   gpt52,
	"writing":            gemini,
	"visual":             gemini,
	"business-logic":     gpt52,
	"data-analysis":      sonnet,
}
