package models

// Activity is one entry of the service's recent scan history
type Activity struct {
	ID        int    `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Verdict   string `json:"verdict"`
	Details   string `json:"details"`
}

// OverviewStats is the dashboard summary served by overview-stats.
// PieData is ordered safe, suspicious, threats.
type OverviewStats struct {
	TotalScans      int        `json:"total_scans"`
	ThreatsDetected int        `json:"threats_detected"`
	SafeScans       int        `json:"safe_scans"`
	PieData         [3]int     `json:"pie_data"`
	RecentActivity  []Activity `json:"recent_activity"`
}

// EmptyOverview is shown when the service cannot be reached
func EmptyOverview() *OverviewStats {
	return &OverviewStats{RecentActivity: []Activity{}}
}

// SuspiciousScans derives the middle pie segment
func (s *OverviewStats) SuspiciousScans() int {
	return s.PieData[1]
}

// HealthStatus is the body of the service root endpoint
type HealthStatus struct {
	Status string `json:"status"`
}
