package models

import "time"

// FollowerProgress is a point in time summary of the follower, logged with every progress report
type FollowerProgress struct {
	IngestedBlockNumber int64           `json:"ingestedBlockNumber"`
	LatestBlockNumber   int64           `json:"latestBlockNumber"`
	State               string          `json:"state"`
	RecentErrors        []FollowerError `json:"recentErrors,omitempty"`
	RPCErrorCount       int             `json:"rpcErrorCount"`
	StoreErrorCount     int             `json:"storeErrorCount"`
	Since               time.Time       `json:"since"`
}

type FollowerError struct {
	Timestamp   time.Time `json:"timestamp"`
	BlockNumber int64     `json:"blockNumber,omitempty"`
	Error       string    `json:"error"`
	// Source is either "rpc" or "store"
	Source string `json:"source"`
}
