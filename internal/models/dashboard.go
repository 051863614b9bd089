package models

// DashboardStats holds the admin landing page counters.
type DashboardStats struct {
	TotalStudents  int     `db:"total_students" json:"total_students"`
	TotalTeachers  int     `db:"total_teachers" json:"total_teachers"`
	TotalClasses   int     `db:"total_classes" json:"total_classes"`
	MonthlyRevenue float64 `db:"monthly_revenue" json:"monthly_revenue"`
}
