package validation

import (
	"fmt"
	"slices"

	"github.com/ShayCichocki/finval/pkg/models"
)

// Profile is the fixed configuration of one statement validator.
type Profile struct {
	Kind            models.AgentKind
	Label           string
	TaskDescription string
	Criteria        []models.Criterion
	// Reflect enables the second, self-critique completion call.
	Reflect bool
}

var defaultProfiles = map[models.AgentKind]Profile{
	models.AgentBalanceSheet: {
		Kind:            models.AgentBalanceSheet,
		Label:           "Balance Sheet Validation",
		TaskDescription: "Validate Balance Sheet compliance with Schedule III Division II requirements",
		Criteria: []models.Criterion{
			"Current vs Non-current asset/liability classification",
			"Property, Plant and Equipment disclosures",
			"Investment classifications and fair value disclosures",
			"Trade receivables aging and bad debt provisions",
			"Share capital and reserves composition",
			"Borrowings classification and security details",
			"Related party transactions disclosure",
			"Contingent liabilities and commitments",
		},
		Reflect: true,
	},
	models.AgentProfitLoss: {
		Kind:            models.AgentProfitLoss,
		Label:           "Profit & Loss Validation",
		TaskDescription: "Validate Statement of Profit and Loss compliance with Schedule III Division II requirements",
		Criteria: []models.Criterion{
			"Revenue recognition and classification",
			"Operating vs non-operating income segregation",
			"Expense categorization and disclosure",
			"Exceptional and extraordinary items",
			"Tax expense calculation and deferred tax",
			"Earnings per share computation",
			"Other comprehensive income items",
			"Related party transaction disclosures",
		},
	},
	models.AgentCashFlow: {
		Kind:            models.AgentCashFlow,
		Label:           "Cash Flow Validation",
		TaskDescription: "Validate Cash Flow Statement presentation and classification",
		Criteria: []models.Criterion{
			"Operating activities cash flow presentation",
			"Investing activities classification",
			"Financing activities segregation",
			"Reconciliation with net income",
			"Non-cash transactions disclosure",
			"Cash and cash equivalents definition",
			"Foreign exchange impact",
		},
	},
	models.AgentNotes: {
		Kind:            models.AgentNotes,
		Label:           "Notes Validation",
		TaskDescription: "Validate Notes to Accounts for completeness of mandatory disclosures",
		Criteria: []models.Criterion{
			"Accounting policies disclosure",
			"Significant estimates and judgments",
			"Property, plant and equipment details",
			"Investment classification and valuation",
			"Borrowings terms and conditions",
			"Related party relationships and transactions",
			"Contingent liabilities and commitments",
			"Subsequent events disclosure",
		},
	},
}

// DefaultProfile returns the built-in profile for kind.
// The returned criteria slice is a copy and may be modified by the caller.
func DefaultProfile(kind models.AgentKind) (Profile, error) {
	p, ok := defaultProfiles[kind]
	if !ok {
		return Profile{}, fmt.Errorf("no validation profile for agent kind %q", kind)
	}
	p.Criteria = slices.Clone(p.Criteria)
	return p, nil
}

// MustProfile is like DefaultProfile but panics on an unknown kind.
func MustProfile(kind models.AgentKind) Profile {
	p, err := DefaultProfile(kind)
	if err != nil {
		panic(err)
	}
	return p
}
