package llm

// DefaultPrompt is the task prompt sent when none is configured.
const DefaultPrompt = "Reply with a new concise business idea for AI Agents, " +
	"formatted with headings, sub-headings and bullet points (use markdown formatting)"

// Agent describes the persona that generates ideas: its display name, the
// upstream model and the system instructions.
type Agent struct {
	Name         string `json:"name" toml:"name"`
	Model        string `json:"model" toml:"model"`
	Instructions string `json:"instructions" toml:"instructions"`
}

// DefaultAgent returns the agent used when nothing else is configured.
func DefaultAgent() Agent {
	return Agent{
		Name:         "Assistant",
		Model:        "gpt-5-mini",
		Instructions: "You are a helpful assistant.",
	}
}
