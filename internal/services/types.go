package services

import "time"

// Role determines what a logged-in user may do. Public users get read-only
// access to every analytics view; admins may also mutate clusters, posts and
// responses.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePublic Role = "public"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RolePublic:
		return Role(s), true
	}
	return "", false
}

// Session is the caller identity passed explicitly into every service call
// that needs it. There is no ambient "current user" state.
type Session struct {
	Username string
	Role     Role
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Gender is the single-letter code attached to a response.
type Gender string

const (
	GenderMale         Gender = "M"
	GenderFemale       Gender = "F"
	GenderOther        Gender = "O"
	GenderNotDisclosed Gender = "N"
)

// GenderDomain is the canonical ordered enumeration used for chart axes.
// The order is fixed so a category with zero responses still holds its slot.
func GenderDomain() []Gender {
	return []Gender{GenderMale, GenderFemale, GenderOther, GenderNotDisclosed}
}

func ParseGender(s string) (Gender, bool) {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderOther, GenderNotDisclosed:
		return Gender(s), true
	}
	return "", false
}

func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	case GenderOther:
		return "Other"
	case GenderNotDisclosed:
		return "Not Disclosed"
	}
	return string(g)
}

// Sentiment is the pre-labeled classification of a response. Classification
// itself happens upstream; this system only aggregates.
type Sentiment string

const (
	SentimentPositive Sentiment = "P"
	SentimentNegative Sentiment = "N"
	SentimentNeutral  Sentiment = "U"
)

func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(s), true
	}
	return "", false
}

func (s Sentiment) Label() string {
	switch s {
	case SentimentPositive:
		return "Positive"
	case SentimentNegative:
		return "Negative"
	case SentimentNeutral:
		return "Neutral"
	}
	return string(s)
}

// DemographicRef is a tagged reference to a shared dimension row (age group
// or region). Undisclosed replaces the reserved id-0 sentinel of the storage
// layer, so exclusion rules are a type-level case instead of a magic number.
type DemographicRef struct {
	ID    int64 `json:"id"`
	Known bool  `json:"known"`
}

func KnownRef(id int64) DemographicRef {
	if id == 0 {
		return Undisclosed()
	}
	return DemographicRef{ID: id, Known: true}
}

func Undisclosed() DemographicRef { return DemographicRef{} }

// RefFromID converts a stored dimension id into a ref; the reserved id 0
// maps to Undisclosed.
func RefFromID(id int64) DemographicRef { return KnownRef(id) }

// StorageID is the inverse mapping used at the persistence boundary.
func (r DemographicRef) StorageID() int64 {
	if !r.Known {
		return 0
	}
	return r.ID
}

// Cluster is a named grouping of posts (a campaign or topic bucket).
type Cluster struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post is a published social-media post owned by exactly one cluster.
type Post struct {
	ID          int64     `json:"id"`
	ClusterID   int64     `json:"cluster_id"`
	PublishDate time.Time `json:"publish_date"`
	Link        string    `json:"link"`
	Message     string    `json:"message"`
}

// AgeGroup is a shared reference dimension. ID 0 is the reserved
// "undisclosed" row and never appears in per-dimension breakdowns.
type AgeGroup struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Region is a shared reference dimension (a state in the source data).
// ID 0 is the reserved "undisclosed" row.
type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Response is a single survey/comment record tied to one post. Responses are
// bulk-loaded fact data; only admins may edit or delete them afterwards.
type Response struct {
	ID        int64          `json:"id"`
	PostID    int64          `json:"post_id"`
	Date      time.Time      `json:"date"`
	Message   string         `json:"message"`
	Submitter string         `json:"submitter"`
	AgeGroup  DemographicRef `json:"age_group"`
	Gender    Gender         `json:"gender"`
	Region    DemographicRef `json:"region"`
	Sentiment Sentiment      `json:"sentiment"`
}

// User is a login credential. Passwords are stored as bcrypt hashes only.
type User struct {
	Username     string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// AuditEntry records an admin mutation.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
