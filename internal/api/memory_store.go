package api

import (
	"sort"
	"sync"

	"github.com/pulsedash/pulsedash/internal/services"
)

// MemoryStore is a mutex-guarded in-process Store. It backs the router tests
// and serves as the default backend when no SQLite path is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*services.User
	clusters  map[int64]*services.Cluster
	posts     map[int64]*services.Post
	responses map[int64]*services.Response
	ageGroups map[int64]*services.AgeGroup
	regions   map[int64]*services.Region
	audit     []services.AuditEntry

	nextClusterID  int64
	nextPostID     int64
	nextResponseID int64
	nextAgeGroupID int64
	nextRegionID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     map[string]*services.User{},
		clusters:  map[int64]*services.Cluster{},
		posts:     map[int64]*services.Post{},
		responses: map[int64]*services.Response{},
		// id 0 is the reserved undisclosed row in both dimensions
		ageGroups: map[int64]*services.AgeGroup{0: {ID: 0, Label: "Undisclosed"}},
		regions:   map[int64]*services.Region{0: {ID: 0, Name: "Undisclosed"}},

		nextClusterID:  1,
		nextPostID:     1,
		nextResponseID: 1,
		nextAgeGroupID: 1,
		nextRegionID:   1,
	}
}

func (s *MemoryStore) FindUser(username string) (*services.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) AddUser(u *services.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *u
	s.users[u.Username] = &stored
	return nil
}

func (s *MemoryStore) InsertCluster(c *services.Cluster) (*services.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	stored.ID = s.nextClusterID
	s.nextClusterID++
	s.clusters[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) UpdateCluster(c *services.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	s.clusters[c.ID] = &stored
	return nil
}

// DeleteCluster cascades to the cluster's posts and their responses.
func (s *MemoryStore) DeleteCluster(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pid, p := range s.posts {
		if p.ClusterID != id {
			continue
		}
		s.deleteResponsesOfLocked(pid)
		delete(s.posts, pid)
	}
	delete(s.clusters, id)
	return nil
}

func (s *MemoryStore) GetCluster(id int64) (*services.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clusters[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) ListClusters() ([]*services.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		v := *c
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountClusters() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clusters), nil
}

func (s *MemoryStore) CountPostsByCluster() (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[int64]int{}
	for _, p := range s.posts {
		out[p.ClusterID]++
	}
	return out, nil
}

func (s *MemoryStore) InsertPost(p *services.Post) (*services.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *p
	stored.ID = s.nextPostID
	s.nextPostID++
	s.posts[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) UpdatePost(p *services.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *p
	s.posts[p.ID] = &stored
	return nil
}

// DeletePost cascades to the post's responses.
func (s *MemoryStore) DeletePost(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteResponsesOfLocked(id)
	delete(s.posts, id)
	return nil
}

func (s *MemoryStore) deleteResponsesOfLocked(postID int64) {
	for rid, r := range s.responses {
		if r.PostID == postID {
			delete(s.responses, rid)
		}
	}
}

func (s *MemoryStore) GetPost(id int64) (*services.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) ListPosts() ([]*services.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Post, 0, len(s.posts))
	for _, p := range s.posts {
		v := *p
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListPostsByCluster(clusterID int64) ([]*services.Post, error) {
	all, _ := s.ListPosts()
	out := make([]*services.Post, 0, len(all))
	for _, p := range all {
		if p.ClusterID == clusterID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountPosts() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts), nil
}

func (s *MemoryStore) GetResponse(id int64) (*services.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responses[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (s *MemoryStore) AddResponses(rs []*services.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		stored := *r
		stored.ID = s.nextResponseID
		s.nextResponseID++
		s.responses[stored.ID] = &stored
	}
	return nil
}

func (s *MemoryStore) UpdateResponse(r *services.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *r
	s.responses[r.ID] = &stored
	return nil
}

func (s *MemoryStore) DeleteResponse(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.responses, id)
	return nil
}

func (s *MemoryStore) ListResponses(postID int64, c services.Criteria) ([]*services.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Response{}
	for _, r := range s.responses {
		if r.PostID != postID || !c.Matches(r) {
			continue
		}
		v := *r
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListResponsesByPost(postID int64) ([]*services.Response, error) {
	return s.ListResponses(postID, services.Criteria{})
}

func (s *MemoryStore) CountResponses(postID int64, c services.Criteria) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.responses {
		if r.PostID == postID && c.Matches(r) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountAllResponses() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.responses), nil
}

func (s *MemoryStore) ListAgeGroups() ([]*services.AgeGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.AgeGroup, 0, len(s.ageGroups))
	for _, g := range s.ageGroups {
		v := *g
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetAgeGroup(id int64) (*services.AgeGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.ageGroups[id]
	if !ok {
		return nil, nil
	}
	out := *g
	return &out, nil
}

func (s *MemoryStore) InsertAgeGroup(g *services.AgeGroup) (*services.AgeGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *g
	stored.ID = s.nextAgeGroupID
	s.nextAgeGroupID++
	s.ageGroups[stored.ID] = &stored
	out := stored
	return &out, nil
}

// DeleteAgeGroup reassigns dependent responses to the undisclosed bucket,
// then removes the row. Returns the number of reassigned responses.
func (s *MemoryStore) DeleteAgeGroup(id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ageGroups[id]; !ok {
		return 0, services.NewNotFoundError("age group not found")
	}
	reassigned := 0
	for _, r := range s.responses {
		if r.AgeGroup.Known && r.AgeGroup.ID == id {
			r.AgeGroup = services.Undisclosed()
			reassigned++
		}
	}
	delete(s.ageGroups, id)
	return reassigned, nil
}

func (s *MemoryStore) ListRegions() ([]*services.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Region, 0, len(s.regions))
	for _, r := range s.regions {
		v := *r
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetRegion(id int64) (*services.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (s *MemoryStore) InsertRegion(r *services.Region) (*services.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *r
	stored.ID = s.nextRegionID
	s.nextRegionID++
	s.regions[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) DeleteRegion(id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regions[id]; !ok {
		return 0, services.NewNotFoundError("region not found")
	}
	reassigned := 0
	for _, r := range s.responses {
		if r.Region.Known && r.Region.ID == id {
			r.Region = services.Undisclosed()
			reassigned++
		}
	}
	delete(s.regions, id)
	return reassigned, nil
}

func (s *MemoryStore) AddAudit(e services.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}

func (s *MemoryStore) ListAudit() []services.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]services.AuditEntry(nil), s.audit...)
}
