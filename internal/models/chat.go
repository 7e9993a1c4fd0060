package models

import "time"

// Chat belongs to exactly one meeting and is created and deleted with it.
type Chat struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Message is a single chat line.
type Message struct {
	Username string    `json:"username"`
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
}
