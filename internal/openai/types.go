package openai

// CostPage is the response from /v1/organization/costs.
type CostPage struct {
	Object   string       `json:"object"`
	Data     []CostBucket `json:"data"`
	HasMore  bool         `json:"has_more"`
	NextPage string       `json:"next_page"`
}

// CostBucket is one time-bounded group of cost line items.
// StartTime and EndTime are epoch seconds.
type CostBucket struct {
	StartTime int64        `json:"start_time"`
	EndTime   int64        `json:"end_time"`
	Results   []CostResult `json:"results"`
}

// CostResult is a single line item.
type CostResult struct {
	Amount    CostAmount `json:"amount"`
	LineItem  string     `json:"line_item"`
	ProjectID string     `json:"project_id"`
}

// CostAmount is a monetary value. The unit of Value depends on the API
// version; see Client.Unit.
type CostAmount struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}
