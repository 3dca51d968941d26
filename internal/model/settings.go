package model

type ProviderKind string

const (
	ProviderHosted = ProviderKind("hosted")
	ProviderLocal  = ProviderKind("local")
	ProviderCustom = ProviderKind("custom")
)

// LLMSettings is the immutable snapshot used for one generation call. The
// settings holder may hot-swap it between calls.
type LLMSettings struct {
	Provider         ProviderKind
	APIKey           string
	APIEndpoint      string
	Model            string
	Temperature      float32
	SystemPrompt     string
	MaxHistoryLength int
}

type ReplyDelayMode string

const (
	ReplyDelayInstant = ReplyDelayMode("instant")
	ReplyDelayFixed   = ReplyDelayMode("fixed")
	ReplyDelayRandom  = ReplyDelayMode("random")
)

type AppSettings struct {
	AutoReplyToAll    bool
	SendFallbackReply bool
	ReplyDelay        ReplyDelayMode
	FixedDelaySeconds int
	MinDelaySeconds   int
	MaxDelaySeconds   int
}

// ChatState tracks the per-chat auto-reply state machine. A chat accepts a
// new generation only while idle.
type ChatState int8

const (
	StateIdle = ChatState(iota)
	StateGenerating
	StateSending
)
