package services

import (
	"strconv"
	"strings"
	"time"
)

type ResponseStore interface {
	GetPost(id int64) (*Post, error)
	GetResponse(id int64) (*Response, error)
	AddResponses(rs []*Response) error
	UpdateResponse(r *Response) error
	DeleteResponse(id int64) error
	ListAgeGroups() ([]*AgeGroup, error)
	ListRegions() ([]*Region, error)
	InsertAgeGroup(g *AgeGroup) (*AgeGroup, error)
	InsertRegion(r *Region) (*Region, error)
	// DeleteAgeGroup and DeleteRegion reassign dependent responses to the
	// undisclosed bucket before removing the dimension row, in one
	// transaction. They return the number of reassigned responses.
	DeleteAgeGroup(id int64) (int, error)
	DeleteRegion(id int64) (int, error)
	AddAudit(entry AuditEntry)
}

// ResponseInput is one bulk-loaded fact record. Missing demographic fields
// default to the undisclosed variants rather than failing the load.
type ResponseInput struct {
	Date      time.Time
	Message   string
	Submitter string
	AgeGroup  DemographicRef
	Gender    Gender
	Region    DemographicRef
	Sentiment Sentiment
}

// ResponseService handles response fact-data: bulk ingestion, the explicit
// admin edit/delete operations, and the dimension removals that must not
// destroy response history.
type ResponseService struct {
	store ResponseStore
	now   func() time.Time
}

func NewResponseService(store ResponseStore) *ResponseService {
	return &ResponseService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// BulkAdd loads externally-ingested responses under one post.
func (s *ResponseService) BulkAdd(session Session, postID int64, inputs []ResponseInput) (int, error) {
	if !session.IsAdmin() {
		return 0, NewForbiddenError("admin privileges required")
	}
	post, err := s.store.GetPost(postID)
	if err != nil {
		return 0, err
	}
	if post == nil {
		return 0, NewNotFoundError("post not found")
	}
	rs := make([]*Response, 0, len(inputs))
	for _, in := range inputs {
		r, err := s.build(postID, in)
		if err != nil {
			return 0, err
		}
		rs = append(rs, r)
	}
	if err := s.store.AddResponses(rs); err != nil {
		return 0, err
	}
	s.audit(session, "bulk_add_responses", postID, strconv.Itoa(len(rs)))
	return len(rs), nil
}

func (s *ResponseService) Edit(session Session, id int64, in ResponseInput) (*Response, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	existing, err := s.store.GetResponse(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NewNotFoundError("response not found")
	}
	updated, err := s.build(existing.PostID, in)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	if err := s.store.UpdateResponse(updated); err != nil {
		return nil, err
	}
	s.audit(session, "edit_response", id, "")
	return updated, nil
}

func (s *ResponseService) Delete(session Session, id int64) error {
	if !session.IsAdmin() {
		return NewForbiddenError("admin privileges required")
	}
	existing, err := s.store.GetResponse(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return NewNotFoundError("response not found")
	}
	if err := s.store.DeleteResponse(id); err != nil {
		return err
	}
	s.audit(session, "delete_response", id, "")
	return nil
}

func (s *ResponseService) ListAgeGroups() ([]*AgeGroup, error) {
	return s.store.ListAgeGroups()
}

func (s *ResponseService) ListRegions() ([]*Region, error) {
	return s.store.ListRegions()
}

func (s *ResponseService) CreateAgeGroup(session Session, label string) (*AgeGroup, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, NewInvalidError("age group label is required")
	}
	created, err := s.store.InsertAgeGroup(&AgeGroup{Label: label})
	if err != nil {
		return nil, err
	}
	s.audit(session, "create_age_group", created.ID, label)
	return created, nil
}

func (s *ResponseService) CreateRegion(session Session, name string) (*Region, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("region name is required")
	}
	created, err := s.store.InsertRegion(&Region{Name: name})
	if err != nil {
		return nil, err
	}
	s.audit(session, "create_region", created.ID, name)
	return created, nil
}

// DeleteAgeGroup removes an age group. Dependent responses fall back to the
// undisclosed bucket; losing response history is unacceptable, so this is
// an explicit reassignment, not a cascade.
func (s *ResponseService) DeleteAgeGroup(session Session, id int64) (int, error) {
	if !session.IsAdmin() {
		return 0, NewForbiddenError("admin privileges required")
	}
	if id == 0 {
		return 0, NewInvalidError("the undisclosed age group is reserved")
	}
	reassigned, err := s.store.DeleteAgeGroup(id)
	if err != nil {
		return 0, err
	}
	s.audit(session, "delete_age_group", id, strconv.Itoa(reassigned))
	return reassigned, nil
}

// DeleteRegion mirrors DeleteAgeGroup for the region dimension.
func (s *ResponseService) DeleteRegion(session Session, id int64) (int, error) {
	if !session.IsAdmin() {
		return 0, NewForbiddenError("admin privileges required")
	}
	if id == 0 {
		return 0, NewInvalidError("the undisclosed region is reserved")
	}
	reassigned, err := s.store.DeleteRegion(id)
	if err != nil {
		return 0, err
	}
	s.audit(session, "delete_region", id, strconv.Itoa(reassigned))
	return reassigned, nil
}

func (s *ResponseService) build(postID int64, in ResponseInput) (*Response, error) {
	sentiment, ok := ParseSentiment(string(in.Sentiment))
	if !ok {
		return nil, NewInvalidError("unknown sentiment code " + strconv.Quote(string(in.Sentiment)))
	}
	gender := in.Gender
	if gender == "" {
		gender = GenderNotDisclosed
	}
	if _, ok := ParseGender(string(gender)); !ok {
		return nil, NewInvalidError("unknown gender code " + strconv.Quote(string(gender)))
	}
	date := in.Date
	if date.IsZero() {
		date = dateOnly(s.now())
	}
	return &Response{
		PostID:    postID,
		Date:      date,
		Message:   in.Message,
		Submitter: in.Submitter,
		AgeGroup:  in.AgeGroup,
		Gender:    gender,
		Region:    in.Region,
		Sentiment: sentiment,
	}, nil
}

func (s *ResponseService) audit(session Session, action string, id int64, note string) {
	s.store.AddAudit(AuditEntry{
		Time:   s.now(),
		Actor:  session.Username,
		Action: action,
		Target: strconv.FormatInt(id, 10),
		Note:   note,
	})
}
