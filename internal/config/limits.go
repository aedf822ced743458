package config

const (
	// MaxNodeTextLength is the maximum length of a node's text set through the API.
	// Model output is not limited; this only bounds user edits and session topics.
	MaxNodeTextLength = 2000

	// MaxExtraPromptLength is the maximum length of the extra prompt passed to a generation.
	MaxExtraPromptLength = 4000

	// MaxAPIKeyLength is the maximum length of a stored provider API key.
	MaxAPIKeyLength = 512

	// MaxSuggestionCount is the number of built-in topic suggestions.
	MaxSuggestionCount = 13

	// MaxExpandDepth bounds `outliner expand --depth`.
	MaxExpandDepth = 5
)
