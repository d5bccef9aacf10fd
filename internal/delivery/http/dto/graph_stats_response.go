package dto

type RelationshipCountsResponse struct {
	Owns    int64 `json:"owns"`
	Desires int64 `json:"desires"`
	Rates   int64 `json:"rates"`
	Swapped int64 `json:"swapped"`
	Total   int64 `json:"total"`
}

type GraphStatsResponse struct {
	Users         int64                      `json:"users"`
	Skills        int64                      `json:"skills"`
	Relationships RelationshipCountsResponse `json:"relationships"`
}
