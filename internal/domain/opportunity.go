package domain

// Opportunity is a ScoredOpportunity: a coin paired with an action, a
// probability score and a risk-managed setup. It lives for one scan cycle;
// only the selected winner becomes a TradeRecord.
type Opportunity struct {
	Coin        CoinSnapshot   `json:"coin"`
	Action      Action         `json:"action"`
	Probability float64        `json:"probability"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Whale       WhaleSignal    `json:"whale"`

	EntryType   EntryType `json:"entry_type"`
	EntryPrice  float64   `json:"entry_price"`
	TargetPrice float64   `json:"target_price"`
	StopPrice   float64   `json:"stop_price"`
	TargetPct   float64   `json:"target_pct"`
	StopPct     float64   `json:"stop_pct"`
	RiskReward  float64   `json:"risk_reward"`

	ExpectedHours float64  `json:"expected_hours"`
	Reasons       []string `json:"reasons"` // filter reasons that qualified it
}

// FunnelStage names where an asset left the funnel.
type FunnelStage string

const (
	StageUniverse FunnelStage = "universe"
	StageFilter   FunnelStage = "filter"
	StageSetup    FunnelStage = "setup"
	StageScore    FunnelStage = "score"
	StageRerank   FunnelStage = "rerank"
)

// Rejection records why one asset did not qualify.
type Rejection struct {
	CoinID  string      `json:"coin_id"`
	Symbol  string      `json:"symbol"`
	Stage   FunnelStage `json:"stage"`
	Reasons []string    `json:"reasons"`
}

// Diagnostics summarises one run of the funnel.
type Diagnostics struct {
	Scanned       int         `json:"scanned"`
	Eligible      int         `json:"eligible"`
	PassedFilters int         `json:"passed_filters"`
	PassedSetup   int         `json:"passed_setup"`
	Qualified     int         `json:"qualified"`
	Rejections    []Rejection `json:"rejections,omitempty"`
}
