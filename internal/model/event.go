package model

import (
	"encoding/json"
	"time"
)

// Collection names used for relations and events.
const (
	CollectionUsers    = "users"
	CollectionProjects = "projects"
)

// RelationMember links a user to each project they created.
const RelationMember = "member"

// EventTypeVote is the event appended to a project for every accepted vote.
const EventTypeVote = "vote"

// Relation is a directed edge between two stored documents.
type Relation struct {
	FromCollection string
	FromKey        string
	Kind           string
	ToCollection   string
	ToKey          string
}

// MemberOf returns the edge recording that userKey created projectKey.
func MemberOf(userKey, projectKey string) Relation {
	return Relation{
		FromCollection: CollectionUsers,
		FromKey:        userKey,
		Kind:           RelationMember,
		ToCollection:   CollectionProjects,
		ToKey:          projectKey,
	}
}

// Event is an immutable entry appended to a document's event log.
type Event struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Key        string          `json:"key"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
}

// VoteData is the payload of a vote event.
type VoteData struct {
	User string `json:"user"`
}

// NewVoteEvent builds the vote event userKey casts on projectKey.
func NewVoteEvent(projectKey, userKey string) (*Event, error) {
	data, err := json.Marshal(VoteData{User: userKey})
	if err != nil {
		return nil, err
	}
	return &Event{
		Collection: CollectionProjects,
		Key:        projectKey,
		Type:       EventTypeVote,
		Data:       data,
	}, nil
}

// Voter decodes the voting user's key from a vote event. It returns "" for
// events with a malformed payload.
func (e Event) Voter() string {
	var v VoteData
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return ""
	}
	return v.User
}
