package admission

// Result is the outcome of one startup's charge attempt.
type Result struct {
	StartupID string `json:"id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Summary aggregates one scheduler invocation.
type Summary struct {
	Charged int      `json:"charged"`
	Failed  int      `json:"failed"`
	Total   int      `json:"total"`
	Results []Result `json:"results"`
	Message string   `json:"message,omitempty"`
}
