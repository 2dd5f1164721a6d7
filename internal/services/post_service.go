package services

import (
	"strconv"
	"strings"
	"time"
)

type PostStore interface {
	InsertPost(p *Post) (*Post, error)
	UpdatePost(p *Post) error
	DeletePost(id int64) error
	GetPost(id int64) (*Post, error)
	ListPosts() ([]*Post, error)
	ListPostsByCluster(clusterID int64) ([]*Post, error)
	GetCluster(id int64) (*Cluster, error)
	AddAudit(entry AuditEntry)
}

// PostInput carries the create/edit form fields. All four are mandatory; a
// partial submission is a validation error the presentation layer re-renders
// with a message, never a silent no-op.
type PostInput struct {
	ClusterID   int64
	PublishDate time.Time
	Link        string
	Message     string
}

// PostService manages posts. Mutations are admin-only; deleting a post
// cascades to its responses.
type PostService struct {
	store PostStore
	now   func() time.Time
}

func NewPostService(store PostStore) *PostService {
	return &PostService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostService) List(clusterID *int64) ([]*Post, error) {
	if clusterID != nil {
		return s.store.ListPostsByCluster(*clusterID)
	}
	return s.store.ListPosts()
}

func (s *PostService) Get(id int64) (*Post, error) {
	p, err := s.store.GetPost(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("post not found")
	}
	return p, nil
}

func (s *PostService) Create(session Session, in PostInput) (*Post, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	created, err := s.store.InsertPost(&Post{
		ClusterID:   in.ClusterID,
		PublishDate: in.PublishDate,
		Link:        strings.TrimSpace(in.Link),
		Message:     strings.TrimSpace(in.Message),
	})
	if err != nil {
		return nil, err
	}
	s.audit(session, "create_post", created.ID, "")
	return created, nil
}

func (s *PostService) Update(session Session, id int64, in PostInput) (*Post, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	p.ClusterID = in.ClusterID
	p.PublishDate = in.PublishDate
	p.Link = strings.TrimSpace(in.Link)
	p.Message = strings.TrimSpace(in.Message)
	if err := s.store.UpdatePost(p); err != nil {
		return nil, err
	}
	s.audit(session, "update_post", id, "")
	return p, nil
}

func (s *PostService) Delete(session Session, id int64) error {
	if !session.IsAdmin() {
		return NewForbiddenError("admin privileges required")
	}
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.store.DeletePost(id); err != nil {
		return err
	}
	s.audit(session, "delete_post", id, "")
	return nil
}

// validate enforces the all-four-fields rule and checks the cluster exists.
func (s *PostService) validate(in PostInput) error {
	missing := []string{}
	if in.ClusterID == 0 {
		missing = append(missing, "cluster")
	}
	if in.PublishDate.IsZero() {
		missing = append(missing, "publish date")
	}
	if strings.TrimSpace(in.Link) == "" {
		missing = append(missing, "link")
	}
	if strings.TrimSpace(in.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return NewInvalidError("missing required fields: " + strings.Join(missing, ", "))
	}
	cluster, err := s.store.GetCluster(in.ClusterID)
	if err != nil {
		return err
	}
	if cluster == nil {
		return NewNotFoundError("cluster not found")
	}
	return nil
}

func (s *PostService) audit(session Session, action string, id int64, note string) {
	s.store.AddAudit(AuditEntry{
		Time:   s.now(),
		Actor:  session.Username,
		Action: action,
		Target: strconv.FormatInt(id, 10),
		Note:   note,
	})
}
