package anthropic

// CostReport is the response from /v1/organizations/cost_report.
type CostReport struct {
	Data     []CostBucket `json:"data"`
	HasMore  bool         `json:"has_more"`
	NextPage string       `json:"next_page"`
}

// CostBucket is one time-bounded group of cost line items.
type CostBucket struct {
	StartingAt string       `json:"starting_at"`
	EndingAt   string       `json:"ending_at"`
	Results    []CostResult `json:"results"`
}

// CostResult is a single cost line item. Amount arrives as a decimal
// string.
type CostResult struct {
	Amount      Amount `json:"amount"`
	Currency    string `json:"currency"`
	CostType    string `json:"cost_type"`
	Model       string `json:"model"`
	Description string `json:"description"`
}

// UsageReport is the response from /v1/organizations/usage_report/messages.
type UsageReport struct {
	Data     []UsageBucket `json:"data"`
	HasMore  bool          `json:"has_more"`
	NextPage string        `json:"next_page"`
}

// UsageBucket is one time-bounded group of token usage entries.
type UsageBucket struct {
	StartingAt string        `json:"starting_at"`
	EndingAt   string        `json:"ending_at"`
	Results    []UsageResult `json:"results"`
}

// UsageResult is token usage for one model within a bucket.
type UsageResult struct {
	Model                string        `json:"model"`
	InputTokens          int64         `json:"input_tokens"`
	UncachedInputTokens  int64         `json:"uncached_input_tokens"`
	CacheReadInputTokens int64         `json:"cache_read_input_tokens"`
	CacheCreation        CacheCreation `json:"cache_creation"`
	OutputTokens         int64         `json:"output_tokens"`
}

// CacheCreation is tokens written to the prompt cache.
type CacheCreation struct {
	Ephemeral1hInputTokens int64 `json:"ephemeral_1h_input_tokens"`
	Ephemeral5mInputTokens int64 `json:"ephemeral_5m_input_tokens"`
}

// TotalInputTokens returns the input token count used for estimates.
// input_tokens is authoritative when present since it already includes
// every category; otherwise the uncached, cache read and cache creation
// counts are summed. Cached tokens are priced like any other input token,
// so estimates overstate spend for cache-heavy workloads.
func (u UsageResult) TotalInputTokens() int64 {
	if u.InputTokens > 0 {
		return u.InputTokens
	}
	return u.UncachedInputTokens + u.CacheReadInputTokens +
		u.CacheCreation.Ephemeral1hInputTokens + u.CacheCreation.Ephemeral5mInputTokens
}
