package venice

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Usage reports token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// listEnvelope is the common {"object": "list", "data": [...]} wrapper the
// service uses for collection endpoints.
type listEnvelope[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}
