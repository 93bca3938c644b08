package model

// OverviewStats are the dashboard counters.
type OverviewStats struct {
	TotalPatients   int `json:"total_patients" db:"total_patients"`
	TotalSnapshots  int `json:"total_snapshots" db:"total_snapshots"`
	SnapshotsWeekly int `json:"snapshots_weekly" db:"snapshots_weekly"`
	TotalAdmins     int `json:"total_admins" db:"total_admins"`
}
