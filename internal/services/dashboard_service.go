package services

type DashboardStore interface {
	CountClusters() (int, error)
	CountPosts() (int, error)
	CountAllResponses() (int, error)
	ListPosts() ([]*Post, error)
	ListClusters() ([]*Cluster, error)
	CountPostsByCluster() (map[int64]int, error)
	ListResponsesByPost(postID int64) ([]*Response, error)
}

// DashboardService computes the landing summary and the per-cluster view.
type DashboardService struct {
	store DashboardStore
}

func NewDashboardService(store DashboardStore) *DashboardService {
	return &DashboardService{store: store}
}

// PostSummary is one row of the dashboard: a post with its independently
// computed sentiment distribution.
type PostSummary struct {
	Post           *Post   `json:"post"`
	TotalResponses int     `json:"total_responses"`
	PositivePct    float64 `json:"positive_pct"`
	NegativePct    float64 `json:"negative_pct"`
	NeutralPct     float64 `json:"neutral_pct"`
}

type DashboardSummary struct {
	ClusterCount  int           `json:"cluster_count"`
	PostCount     int           `json:"post_count"`
	ResponseCount int           `json:"response_count"`
	Posts         []PostSummary `json:"posts"`
}

// Summary fans the single-post distribution out over every post. Posts with
// zero responses come back with all-zero percentages rather than an error.
func (s *DashboardService) Summary() (*DashboardSummary, error) {
	clusters, err := s.store.CountClusters()
	if err != nil {
		return nil, err
	}
	posts, err := s.store.CountPosts()
	if err != nil {
		return nil, err
	}
	responses, err := s.store.CountAllResponses()
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListPosts()
	if err != nil {
		return nil, err
	}
	rows := make([]PostSummary, 0, len(all))
	for _, p := range all {
		rs, err := s.store.ListResponsesByPost(p.ID)
		if err != nil {
			return nil, err
		}
		d := ComputeDistribution(rs)
		rows = append(rows, PostSummary{
			Post:           p,
			TotalResponses: d.Total,
			PositivePct:    d.PositivePct,
			NegativePct:    d.NegativePct,
			NeutralPct:     d.NeutralPct,
		})
	}
	return &DashboardSummary{
		ClusterCount:  clusters,
		PostCount:     posts,
		ResponseCount: responses,
		Posts:         rows,
	}, nil
}

// ClusterRow is one bar of the posts-per-cluster chart.
type ClusterRow struct {
	ClusterID   int64  `json:"cluster_id"`
	ClusterName string `json:"cluster_name"`
	PostCount   int    `json:"post_count"`
}

// ClusterView lists every cluster with its post count, ordered by id.
func (s *DashboardService) ClusterView() ([]ClusterRow, error) {
	clusters, err := s.store.ListClusters()
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountPostsByCluster()
	if err != nil {
		return nil, err
	}
	rows := make([]ClusterRow, 0, len(clusters))
	for _, c := range clusters {
		rows = append(rows, ClusterRow{ClusterID: c.ID, ClusterName: c.Name, PostCount: counts[c.ID]})
	}
	return rows, nil
}
