package models

// EnqueueRequest asks for a new waiting ticket.
type EnqueueRequest struct {
	PlayerID   string     `json:"playerId" validate:"required"`
	TitleID    string     `json:"titleId" validate:"required"`
	QueueName  string     `json:"queueName" validate:"required"`
	Attributes Attributes `json:"attributes,omitempty"`
	// TimeoutSeconds overrides the queue's timeout when positive.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" validate:"gte=0"`
}

// Validate checks the request fields.
func (r *EnqueueRequest) Validate() error {
	return getValidator().Struct(r)
}

// QueueStatus is one row of the queue overview.
type QueueStatus struct {
	TitleID     string             `json:"titleId"`
	QueueName   string             `json:"queueName"`
	DisplayName string             `json:"displayName,omitempty"`
	Enabled     bool               `json:"enabled"`
	MinPlayers  int                `json:"minPlayers"`
	MaxPlayers  int                `json:"maxPlayers"`
	Strategy    AllocationStrategy `json:"serverAllocationStrategy"`
	Waiting     int64              `json:"waiting"`
	ConfigError string             `json:"configError,omitempty"`
}

// RebuildResult reports what an index rebuild changed.
type RebuildResult struct {
	TitleID   string `json:"titleId"`
	QueueName string `json:"queueName"`
	Restored  int    `json:"restored"`
	Purged    int    `json:"purged"`
}
