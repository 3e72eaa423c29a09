package models

import (
	"time"
)

// Poll represents a voting poll with its ordered options
type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	CreatorID string    `json:"-"`
	CreatedBy *Creator  `json:"createdBy,omitempty"` // resolved from CreatorID on read
	CreatedAt time.Time `json:"createdAt"`
}

// Option represents an option within a poll. Its ID is only unique inside the parent poll.
type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// Creator is the display view of the user who created a poll
type Creator struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// TotalVotes 计算所有选项的票数之和
func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, option := range p.Options {
		total += option.Votes
	}
	return total
}

// WebSocketMessage 定义推送给订阅者的消息格式
type WebSocketMessage struct {
	Type    string `json:"type"`
	PollID  string `json:"pollId"`
	Payload *Poll  `json:"payload"`
}

const MessageTypeVoteUpdate = "VOTE_UPDATE"
