package model

// Role identifies the sender of a prompt message.
type Role string

const (
	RoleSystem    = Role("system")
	RoleUser      = Role("user")
	RoleAssistant = Role("assistant")
)

// PromptMessage is a single role-tagged entry of the sequence sent to the LLM.
type PromptMessage struct {
	Role    Role
	Content string
}
