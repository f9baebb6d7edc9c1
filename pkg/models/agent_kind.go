package models

import (
	"fmt"
	"strings"
)

// AgentKind identifies the financial statement a validation agent covers.
type AgentKind string

const (
	// AgentBalanceSheet validates the Balance Sheet.
	AgentBalanceSheet AgentKind = "balance_sheet"
	// AgentProfitLoss validates the Statement of Profit and Loss.
	AgentProfitLoss AgentKind = "profit_loss"
	// AgentCashFlow validates the Cash Flow Statement.
	AgentCashFlow AgentKind = "cash_flow"
	// AgentNotes validates the Notes to Financial Statements.
	AgentNotes AgentKind = "notes"
)

// AllAgentKinds returns every agent kind in canonical run order.
func AllAgentKinds() []AgentKind {
	return []AgentKind{AgentBalanceSheet, AgentProfitLoss, AgentCashFlow, AgentNotes}
}

// Valid returns true if the kind is a known value.
func (k AgentKind) Valid() bool {
	switch k {
	case AgentBalanceSheet, AgentProfitLoss, AgentCashFlow, AgentNotes:
		return true
	default:
		return false
	}
}

// Order returns the canonical position of the kind, or -1 for unknown kinds.
func (k AgentKind) Order() int {
	for i, kind := range AllAgentKinds() {
		if kind == k {
			return i
		}
	}
	return -1
}

// Label returns the display name used in reports.
func (k AgentKind) Label() string {
	switch k {
	case AgentBalanceSheet:
		return "Balance Sheet"
	case AgentProfitLoss:
		return "Profit & Loss"
	case AgentCashFlow:
		return "Cash Flow"
	case AgentNotes:
		return "Notes"
	default:
		return string(k)
	}
}

// ParseAgentKind accepts an identifier, a display label or a short alias.
func ParseAgentKind(s string) (AgentKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	switch norm {
	case "balance_sheet", "balancesheet", "bs":
		return AgentBalanceSheet, nil
	case "profit_loss", "profit_&_loss", "profitloss", "p&l", "pl", "pnl":
		return AgentProfitLoss, nil
	case "cash_flow", "cashflow", "cf":
		return AgentCashFlow, nil
	case "notes", "note":
		return AgentNotes, nil
	default:
		return "", fmt.Errorf("unknown agent kind %q", s)
	}
}

// CanonicalKinds filters kinds down to valid, unique values in canonical order.
func CanonicalKinds(kinds []AgentKind) []AgentKind {
	seen := make(map[AgentKind]bool, len(kinds))
	for _, k := range kinds {
		if k.Valid() {
			seen[k] = true
		}
	}

	out := make([]AgentKind, 0, len(seen))
	for _, k := range AllAgentKinds() {
		if seen[k] {
			out = append(out, k)
		}
	}
	return out
}
