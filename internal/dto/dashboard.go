package dto

// DashboardSummary aggregates the figures shown on the admin landing page.
type DashboardSummary struct {
	ActiveStudents   int     `json:"active_students"`
	Enrollments      int     `json:"enrollments"`
	OpenDebts        int     `json:"open_debts"`
	OutstandingTotal float64 `json:"outstanding_total"`
	CollectedTotal   float64 `json:"collected_total"`
}
