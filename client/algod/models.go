package algod

type Config struct {
	// URL of the algod REST API, including the port when it is not implied by the scheme
	URL         string
	Token       string
	HTTPHeaders map[string]string
}

type statusResponse struct {
	LastRound int64 `json:"last-round"`
}
