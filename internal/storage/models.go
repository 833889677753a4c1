package storage

import "time"

// Page is one crawled web page.
type Page struct {
	URL       string
	Title     string
	Content   string
	FetchedAt time.Time
}

// Chunk is one ingested piece of a page.
type Chunk struct {
	ID       string
	Source   string // Page URL
	Title    string
	Position int // Index within the source page
	Text     string
}

// ChatLog is one answered request.
type ChatLog struct {
	RequestID string
	Channel   string
	SessionID string
	Query     string
	Label     string
	Status    string
	Answer    string
	Duration  time.Duration
	CreatedAt time.Time
}
