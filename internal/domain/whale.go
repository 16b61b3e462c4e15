package domain

// WhaleIntent is the classified intent of large holders.
type WhaleIntent string

const (
	WhaleAccumulating WhaleIntent = "accumulating"
	WhaleDistributing WhaleIntent = "distributing"
	WhaleNeutral      WhaleIntent = "neutral"
)

// WhaleSignal is the output of the whale-intelligence collaborator.
type WhaleSignal struct {
	Intent     WhaleIntent `json:"intent"`
	Confidence float64     `json:"confidence"` // 0–100
}

// NeutralWhale is used whenever the collaborator is disabled or failed.
var NeutralWhale = WhaleSignal{Intent: WhaleNeutral}

// AlignedWith reports whether whales push in the direction of action.
func (w WhaleSignal) AlignedWith(a Action) bool {
	return (a == ActionBuy && w.Intent == WhaleAccumulating) ||
		(a == ActionSell && w.Intent == WhaleDistributing)
}

// Opposes reports whether whales push against action.
func (w WhaleSignal) Opposes(a Action) bool {
	return (a == ActionBuy && w.Intent == WhaleDistributing) ||
		(a == ActionSell && w.Intent == WhaleAccumulating)
}
