package features

// Feature column names. The ordered list returned by Columns is a fixed
// contract between the feature engine and any persisted model: adding or
// removing a column requires retraining, and a loaded model whose frozen
// column list disagrees with this one must be rejected.
const (
	ColDaysUntilDue         = "days_until_due"
	ColDaysSinceIssue       = "days_since_issue"
	ColPaymentTermDays      = "payment_term_days"
	ColIssueMonth           = "issue_month"
	ColIssueQuarter         = "issue_quarter"
	ColIssueDayOfWeek       = "issue_day_of_week"
	ColIssueIsWeekend       = "issue_is_weekend"
	ColDueMonth             = "due_month"
	ColDueQuarter           = "due_quarter"
	ColDueDayOfWeek         = "due_day_of_week"
	ColDueIsWeekend         = "due_is_weekend"
	ColAmountLog            = "invoice_amount_log"
	ColAmountSqrt           = "invoice_amount_sqrt"
	ColCreditLimitLog       = "credit_limit_log"
	ColCreditUtilization    = "credit_utilization"
	ColCustInvoiceCount     = "customer_invoice_count"
	ColCustAvgDaysLate      = "customer_avg_days_late"
	ColCustLateRate         = "customer_late_rate"
	ColCustARConcentration  = "customer_ar_concentration"
	ColTypeRecurring        = "invoice_type_recurring"
	ColTypeMilestone        = "invoice_type_milestone"
	ColChannelOnline        = "channel_online"
	ColAmountXDaysUntilDue  = "amount_x_days_until_due"
	ColAmountXLateRate      = "amount_x_late_rate"
	ColUtilizationXLateRate = "utilization_x_late_rate"
)

// NumFeatures is the width of every feature vector.
const NumFeatures = 25

var columns = [NumFeatures]string{
	// Time features
	ColDaysUntilDue,
	ColDaysSinceIssue,
	ColPaymentTermDays,
	ColIssueMonth,
	ColIssueQuarter,
	ColIssueDayOfWeek,
	ColIssueIsWeekend,
	ColDueMonth,
	ColDueQuarter,
	ColDueDayOfWeek,
	ColDueIsWeekend,

	// Amount features
	ColAmountLog,
	ColAmountSqrt,
	ColCreditLimitLog,
	ColCreditUtilization,

	// Customer history
	ColCustInvoiceCount,
	ColCustAvgDaysLate,
	ColCustLateRate,
	ColCustARConcentration,

	// Categorical
	ColTypeRecurring,
	ColTypeMilestone,
	ColChannelOnline,

	// Interactions
	ColAmountXDaysUntilDue,
	ColAmountXLateRate,
	ColUtilizationXLateRate,
}

// Columns returns the ordered feature-column contract. The caller
// receives a fresh slice; mutating it cannot corrupt the contract.
func Columns() []string {
	out := make([]string, NumFeatures)
	copy(out, columns[:])
	return out
}

// ColumnsMatch reports whether other is exactly the current contract,
// same names in the same order.
func ColumnsMatch(other []string) bool {
	if len(other) != NumFeatures {
		return false
	}
	for i, c := range columns {
		if other[i] != c {
			return false
		}
	}
	return true
}
