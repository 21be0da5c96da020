package dto

// AnalyticsSummary holds the dashboard totals over a window
type AnalyticsSummary struct {
	Days           int   `json:"days"`
	PageViews      int64 `json:"page_views"`
	UniqueVisitors int64 `json:"unique_visitors"`
	ProgramViews   int64 `json:"program_views"`
	ProgramClicks  int64 `json:"program_clicks"`
	Searches       int64 `json:"searches"`
	Programs       int64 `json:"programs"`
	PendingReports int64 `json:"pending_reports"`
}

// DailyTraffic is one day of page views
type DailyTraffic struct {
	Date      string `json:"date"`
	PageViews int64  `json:"page_views"`
	Visitors  int64  `json:"visitors"`
}

// TrafficAnalytics is the traffic dashboard
type TrafficAnalytics struct {
	Days         int            `json:"days"`
	Daily        []DailyTraffic `json:"daily"`
	TopPaths     []PathCount    `json:"top_paths"`
	TopReferrers []PathCount    `json:"top_referrers"`
}

// PathCount is a counted path or referrer
type PathCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// SearchCount is a counted normalized search
type SearchCount struct {
	Query      string  `json:"query"`
	Count      int64   `json:"count"`
	AvgResults float64 `json:"avg_results"`
}

// SearchAnalytics is the search dashboard
type SearchAnalytics struct {
	Days        int           `json:"days"`
	Total       int64         `json:"total"`
	TopQueries  []SearchCount `json:"top_queries"`
	ZeroResults []SearchCount `json:"zero_results"`
}

// TopProgram is a program ranked by rolling engagement
type TopProgram struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
}

// TopProgramsAnalytics is the top-programs dashboard
type TopProgramsAnalytics struct {
	Days     int          `json:"days"`
	Programs []TopProgram `json:"programs"`
}

// EmptyTrafficAnalytics is the zeroed shape returned when the query fails
func EmptyTrafficAnalytics(days int) TrafficAnalytics {
	return TrafficAnalytics{Days: days, Daily: []DailyTraffic{}, TopPaths: []PathCount{}, TopReferrers: []PathCount{}}
}

// EmptySearchAnalytics is the zeroed shape returned when the query fails
func EmptySearchAnalytics(days int) SearchAnalytics {
	return SearchAnalytics{Days: days, TopQueries: []SearchCount{}, ZeroResults: []SearchCount{}}
}

// EmptyTopPrograms is the zeroed shape returned when the query fails
func EmptyTopPrograms(days int) TopProgramsAnalytics {
	return TopProgramsAnalytics{Days: days, Programs: []TopProgram{}}
}
