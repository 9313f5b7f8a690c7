package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolPending  = "○"
	SymbolComplete = "●"
	SymbolSkipped  = "⊘"
)

// StatusSymbol maps a host or check status to its symbol.
func StatusSymbol(status string) string {
	switch status {
	case "online", "pass", "warn":
		return SymbolComplete
	case "offline", "error", "fail":
		return SymbolFail
	default:
		return SymbolPending
	}
}
