package services

import (
	"strconv"
	"strings"
	"time"
)

type ClusterStore interface {
	InsertCluster(c *Cluster) (*Cluster, error)
	UpdateCluster(c *Cluster) error
	DeleteCluster(id int64) error
	GetCluster(id int64) (*Cluster, error)
	ListClusters() ([]*Cluster, error)
	AddAudit(entry AuditEntry)
}

// ClusterService manages clusters. Every mutation requires an admin session;
// deleting a cluster cascades to its posts and their responses.
type ClusterService struct {
	store ClusterStore
	now   func() time.Time
}

func NewClusterService(store ClusterStore) *ClusterService {
	return &ClusterService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *ClusterService) List() ([]*Cluster, error) {
	return s.store.ListClusters()
}

func (s *ClusterService) Get(id int64) (*Cluster, error) {
	c, err := s.store.GetCluster(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewNotFoundError("cluster not found")
	}
	return c, nil
}

func (s *ClusterService) Create(session Session, name string) (*Cluster, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("cluster name is required")
	}
	created, err := s.store.InsertCluster(&Cluster{Name: name})
	if err != nil {
		return nil, err
	}
	s.audit(session, "create_cluster", created.ID, created.Name)
	return created, nil
}

func (s *ClusterService) Update(session Session, id int64, name string) (*Cluster, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("cluster name is required")
	}
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	if err := s.store.UpdateCluster(c); err != nil {
		return nil, err
	}
	s.audit(session, "update_cluster", id, name)
	return c, nil
}

func (s *ClusterService) Delete(session Session, id int64) error {
	if !session.IsAdmin() {
		return NewForbiddenError("admin privileges required")
	}
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.store.DeleteCluster(id); err != nil {
		return err
	}
	s.audit(session, "delete_cluster", id, "")
	return nil
}

func (s *ClusterService) audit(session Session, action string, id int64, note string) {
	s.store.AddAudit(AuditEntry{
		Time:   s.now(),
		Actor:  session.Username,
		Action: action,
		Target: strconv.FormatInt(id, 10),
		Note:   note,
	})
}
