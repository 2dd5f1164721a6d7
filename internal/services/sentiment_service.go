package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

const dateLayout = "2006-01-02"

type SentimentStore interface {
	GetPost(id int64) (*Post, error)
	ListResponses(postID int64, c Criteria) ([]*Response, error)
	ListResponsesByPost(postID int64) ([]*Response, error)
	CountResponses(postID int64, c Criteria) (int, error)
	GetAgeGroup(id int64) (*AgeGroup, error)
	GetRegion(id int64) (*Region, error)
}

// SentimentService assembles the per-post sentiment view: distribution,
// filter options derived from the post's full response set, and the paged
// response list.
type SentimentService struct {
	store    SentimentStore
	pageSize int
}

func NewSentimentService(store SentimentStore, pageSize int) *SentimentService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SentimentService{store: store, pageSize: pageSize}
}

// GenderOption is a selectable gender filter choice.
type GenderOption struct {
	Code  Gender `json:"code"`
	Label string `json:"label"`
}

// ViewOptions is the resolved filter widget payload. Option sets always
// reflect the post's full response set, regardless of active filters.
type ViewOptions struct {
	Genders   []GenderOption `json:"genders"`
	AgeGroups []AgeGroup     `json:"age_groups"`
	Regions   []Region       `json:"regions"`
	MinDate   string         `json:"min_date,omitempty"`
	MaxDate   string         `json:"max_date,omitempty"`
}

// SentimentView is the full sentiment-analysis payload for one post.
type SentimentView struct {
	Post         *Post            `json:"post"`
	Distribution Distribution     `json:"distribution"`
	Options      ViewOptions      `json:"options"`
	Page         *Page[*Response] `json:"page,omitempty"`
}

// View computes the complete payload: distribution over the filtered set,
// options over the full set, and the requested response page.
func (s *SentimentService) View(postID int64, c Criteria, pageNumber int) (*SentimentView, error) {
	post, filtered, err := s.filteredSet(postID, c)
	if err != nil {
		return nil, err
	}
	opts, err := s.options(postID)
	if err != nil {
		return nil, err
	}
	SortResponses(filtered)
	page := Paginate(filtered, s.pageSize, pageNumber)
	return &SentimentView{
		Post:         post,
		Distribution: ComputeDistribution(filtered),
		Options:      opts,
		Page:         &page,
	}, nil
}

// ChartPayload is the partial-fetch variant returning only the chart data,
// matching the asynchronous chart refresh.
func (s *SentimentService) ChartPayload(postID int64, c Criteria) (Distribution, error) {
	_, filtered, err := s.filteredSet(postID, c)
	if err != nil {
		return Distribution{}, err
	}
	return ComputeDistribution(filtered), nil
}

// PagePayload is the partial-fetch variant returning only one response page.
func (s *SentimentService) PagePayload(postID int64, c Criteria, pageNumber int) (*Page[*Response], error) {
	_, filtered, err := s.filteredSet(postID, c)
	if err != nil {
		return nil, err
	}
	SortResponses(filtered)
	page := Paginate(filtered, s.pageSize, pageNumber)
	return &page, nil
}

// CountFiltered counts matches without materializing the response list.
func (s *SentimentService) CountFiltered(postID int64, c Criteria) (int, error) {
	if _, err := s.post(postID); err != nil {
		return 0, err
	}
	return s.store.CountResponses(postID, c)
}

// ExportCSV renders the filtered response set as CSV, ordered the same way
// as the paged list.
func (s *SentimentService) ExportCSV(postID int64, c Criteria) ([]byte, error) {
	_, filtered, err := s.filteredSet(postID, c)
	if err != nil {
		return nil, err
	}
	SortResponses(filtered)
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "post_id", "date", "submitter", "gender", "age_group_id", "region_id", "sentiment", "message"})
	for _, r := range filtered {
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.PostID, 10),
			r.Date.Format(dateLayout),
			r.Submitter,
			string(r.Gender),
			refColumn(r.AgeGroup),
			refColumn(r.Region),
			string(r.Sentiment),
			r.Message,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func refColumn(ref DemographicRef) string {
	if !ref.Known {
		return ""
	}
	return strconv.FormatInt(ref.ID, 10)
}

func (s *SentimentService) post(postID int64) (*Post, error) {
	post, err := s.store.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, NewNotFoundError("post not found")
	}
	return post, nil
}

func (s *SentimentService) filteredSet(postID int64, c Criteria) (*Post, []*Response, error) {
	post, err := s.post(postID)
	if err != nil {
		return nil, nil, err
	}
	filtered, err := s.store.ListResponses(postID, c)
	if err != nil {
		return nil, nil, err
	}
	return post, filtered, nil
}

func (s *SentimentService) options(postID int64) (ViewOptions, error) {
	full, err := s.store.ListResponsesByPost(postID)
	if err != nil {
		return ViewOptions{}, err
	}
	raw := CollectOptions(full)
	out := ViewOptions{}
	for _, g := range raw.Genders {
		out.Genders = append(out.Genders, GenderOption{Code: g, Label: g.Label()})
	}
	for _, ref := range raw.AgeGroups {
		if !ref.Known {
			out.AgeGroups = append(out.AgeGroups, AgeGroup{ID: 0, Label: "Undisclosed"})
			continue
		}
		ag, err := s.store.GetAgeGroup(ref.ID)
		if err != nil {
			return ViewOptions{}, err
		}
		if ag != nil {
			out.AgeGroups = append(out.AgeGroups, *ag)
		}
	}
	for _, ref := range raw.Regions {
		if !ref.Known {
			out.Regions = append(out.Regions, Region{ID: 0, Name: "Undisclosed"})
			continue
		}
		rg, err := s.store.GetRegion(ref.ID)
		if err != nil {
			return ViewOptions{}, err
		}
		if rg != nil {
			out.Regions = append(out.Regions, *rg)
		}
	}
	if len(full) > 0 {
		out.MinDate = raw.MinDate.Format(dateLayout)
		out.MaxDate = raw.MaxDate.Format(dateLayout)
	}
	return out, nil
}
