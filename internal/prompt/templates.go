package prompt

// Placeholders substituted into the domain templates.
const (
	documentPlaceholder = "{{document}}"
	criteriaPlaceholder = "{{criteria}}"
)

// balanceSheetTemplate follows a Schedule III style structural framework.
const balanceSheetTemplate = `You are an expert financial analyst specializing in Balance Sheet validation.

FINANCIAL STATEMENT TEXT:
{{document}}

VALIDATION CRITERIA:
{{criteria}}

Perform systematic validation using this framework:

1. STRUCTURAL ANALYSIS:
   - Verify current/non-current classification
   - Check line item presentations
   - Validate mathematical accuracy

2. DISCLOSURE COMPLIANCE:
   - Assess mandatory disclosures per Schedule III
   - Check notes cross-references
   - Verify comparative figures

3. REGULATORY REQUIREMENTS:
   - Materiality considerations
   - Rounding consistency
   - Related party disclosures

4. QUALITY ASSESSMENT:
   - Identify missing information
   - Flag potential red flags
   - Provide improvement recommendations

Provide detailed findings with specific line references.
`

const profitLossTemplate = `You are an expert financial analyst specializing in Statement of Profit and Loss validation.

FINANCIAL STATEMENT TEXT:
{{document}}

VALIDATION FRAMEWORK:

1. REVENUE ANALYSIS:
   - Verify revenue from operations classification
   - Check other income segregation
   - Assess revenue recognition policies

2. EXPENSE VALIDATION:
   - Employee benefits expense breakdown
   - Finance costs classification
   - Depreciation and amortization
   - Other expenses categorization

3. PROFIT COMPUTATION:
   - Exceptional items treatment
   - Tax expense validation
   - Discontinued operations
   - Other comprehensive income

4. DISCLOSURE REQUIREMENTS:
   - Earnings per share calculation
   - Additional information notes
   - Prior period comparatives

VALIDATION CRITERIA:
{{criteria}}

Provide systematic analysis with compliance assessment.
`

const cashFlowTemplate = `You are an expert financial analyst specializing in Cash Flow Statement validation.

FINANCIAL STATEMENT TEXT:
{{document}}

VALIDATION FRAMEWORK:

1. OPERATING ACTIVITIES:
   - Direct vs indirect method
   - Working capital changes
   - Non-cash adjustments

2. INVESTING ACTIVITIES:
   - Capital expenditure
   - Investment transactions
   - Asset disposals

3. FINANCING ACTIVITIES:
   - Borrowing activities
   - Equity transactions
   - Dividend payments

4. RECONCILIATION & DISCLOSURE:
   - Opening/closing cash reconciliation
   - Non-cash transactions
   - Restricted cash disclosure

CRITERIA:
{{criteria}}

Provide comprehensive validation analysis.
`

const notesTemplate = `You are an expert financial analyst specializing in Notes to Financial Statements validation.

FINANCIAL STATEMENT TEXT:
{{document}}

VALIDATION FRAMEWORK:

1. ACCOUNTING POLICIES:
   - Revenue recognition policy
   - Depreciation methods
   - Inventory valuation
   - Investment classification

2. DETAILED DISCLOSURES:
   - Asset breakdowns and reconciliations
   - Liability terms and conditions
   - Equity movements
   - Income and expense analysis

3. REGULATORY COMPLIANCE:
   - Related party disclosures
   - Contingent liabilities
   - Commitments
   - Subsequent events

4. ADEQUACY ASSESSMENT:
   - Information completeness
   - Clarity and understandability
   - Cross-reference accuracy

CRITERIA:
{{criteria}}

Provide detailed validation with specific improvement recommendations.
`

// metaDirectives are appended to every meta prompt in this order.
var metaDirectives = []string{
	"Breaks down complex validation into manageable subtasks",
	"Uses structured thinking and self-reflection",
	"Implements recursive checking for accuracy",
	"Provides clear, actionable feedback",
	"Follows regulatory compliance requirements",
}

// reflectionQuestions drive the self-reflection pass.
var reflectionQuestions = []string{
	"Did I check all required disclosure items?",
	"Are my findings supported by specific evidence from the document?",
	"Have I considered materiality thresholds?",
	"Are there any inconsistencies I missed?",
	"Do my recommendations align with regulatory requirements?",
}
