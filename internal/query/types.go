package query

import "time"

// EventRecord is one persisted envelope, hashes raw.
type EventRecord struct {
	Sequence  int64     `json:"sequence"`
	EventType string    `json:"event_type"`
	AssetID   string    `json:"asset_id,omitempty"`
	Actor     string    `json:"actor"`
	Backend   string    `json:"backend"`
	Payload   []byte    `json:"payload"`
	StateHash []byte    `json:"state_hash"`
	PrevHash  []byte    `json:"prev_hash"`
	Timestamp time.Time `json:"timestamp"`
}

// IntegrityReport summarizes the operator integrity checks.
type IntegrityReport struct {
	IsHealthy       bool     `json:"is_healthy"`
	HashChainBreaks []int64  `json:"hash_chain_breaks,omitempty"`
	OversoldSales   []string `json:"oversold_sales,omitempty"`
}
