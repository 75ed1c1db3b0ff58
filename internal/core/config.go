package core

type ProviderConfig interface {
	GetProvider() string
	GetModel() string
	GetOpenAIAPIKey() string
	GetAnthropicAPIKey() string
	GetOpenRouterAPIKey() string
	GetOllamaAPIKey() string
	GetOllamaBaseURL() string
	GetCustomOpenAIBaseURL() string
	GetCustomOpenAIAPIKey() string
}

// PromptConfig locates optional prompt overrides on disk.
type PromptConfig interface {
	GetAskPromptPath() string
	GetEditPromptPath() string
}
