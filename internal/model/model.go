package model

import "sort"

type ChatMessage struct {
	ID            string
	Body          string
	FromMe        bool
	Timestamp     int64
	Author        string
	IsLLMResponse bool
}

type Chat struct {
	ID               string
	Name             string
	IsGroup          bool
	AutoReplyEnabled bool
	UnreadCount      int
	Timestamp        int64
	Messages         []ChatMessage
	LastMessage      *ChatMessage
}

// SortChatsByTimestamp orders chats newest-first, the order the chat list is
// presented in.
func SortChatsByTimestamp(chats []Chat) {
	sort.SliceStable(
		chats, func(i, j int) bool {
			return chats[i].Timestamp > chats[j].Timestamp
		},
	)
}
