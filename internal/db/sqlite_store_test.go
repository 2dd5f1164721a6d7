package db

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pulsedash/pulsedash/internal/services"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	if err := RunMigrations(conn, ""); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := NewSQLiteStore(conn)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return store
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	u := &services.User{Username: "diya", PasswordHash: []byte("$2a$fakehash"), Role: services.RoleAdmin, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := store.AddUser(u); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	got, err := store.FindUser("diya")
	if err != nil || got == nil {
		t.Fatalf("FindUser = %+v, %v", got, err)
	}
	if got.Role != services.RoleAdmin || string(got.PasswordHash) != "$2a$fakehash" {
		t.Fatalf("user mangled: %+v", got)
	}
	if missing, err := store.FindUser("ghost"); err != nil || missing != nil {
		t.Fatalf("unknown user should be nil, nil; got %+v, %v", missing, err)
	}
}

func seedPost(t *testing.T, store *SQLiteStore) *services.Post {
	t.Helper()
	c, err := store.InsertCluster(&services.Cluster{Name: "Election"})
	if err != nil {
		t.Fatalf("InsertCluster: %v", err)
	}
	p, err := store.InsertPost(&services.Post{
		ClusterID:   c.ID,
		PublishDate: mustDate(t, "2024-03-01"),
		Link:        "https://example.com/p",
		Message:     "poll day",
	})
	if err != nil {
		t.Fatalf("InsertPost: %v", err)
	}
	return p
}

func TestResponseFilters(t *testing.T) {
	store := newTestStore(t)
	post := seedPost(t, store)

	ag, _ := store.InsertAgeGroup(&services.AgeGroup{Label: "18-24"})
	rg, _ := store.InsertRegion(&services.Region{Name: "Kerala"})

	female := services.GenderFemale
	rs := []*services.Response{
		{PostID: post.ID, Date: mustDate(t, "2024-03-02"), Gender: female, AgeGroup: services.KnownRef(ag.ID), Region: services.KnownRef(rg.ID), Sentiment: services.SentimentPositive},
		{PostID: post.ID, Date: mustDate(t, "2024-03-03"), Gender: services.GenderMale, AgeGroup: services.Undisclosed(), Region: services.Undisclosed(), Sentiment: services.SentimentNegative},
		{PostID: post.ID, Date: mustDate(t, "2024-03-05"), Gender: female, AgeGroup: services.KnownRef(ag.ID), Region: services.Undisclosed(), Sentiment: services.SentimentNeutral},
	}
	if err := store.AddResponses(rs); err != nil {
		t.Fatalf("AddResponses: %v", err)
	}

	got, err := store.ListResponses(post.ID, services.Criteria{Gender: &female})
	if err != nil || len(got) != 2 {
		t.Fatalf("gender filter = %d rows, %v", len(got), err)
	}

	undisclosed := services.Undisclosed()
	got, err = store.ListResponses(post.ID, services.Criteria{Region: &undisclosed})
	if err != nil || len(got) != 2 {
		t.Fatalf("undisclosed region filter = %d rows, %v", len(got), err)
	}

	from := mustDate(t, "2024-03-03")
	to := mustDate(t, "2024-03-04")
	n, err := store.CountResponses(post.ID, services.Criteria{DateFrom: &from, DateTo: &to})
	if err != nil || n != 1 {
		t.Fatalf("date range count = %d, %v", n, err)
	}

	// stored refs come back as tagged variants
	all, err := store.ListResponsesByPost(post.ID)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListResponsesByPost = %d, %v", len(all), err)
	}
	if !all[0].AgeGroup.Known || all[1].AgeGroup.Known {
		t.Fatalf("ref tagging wrong: %+v %+v", all[0].AgeGroup, all[1].AgeGroup)
	}
}

func TestCascadeDeletes(t *testing.T) {
	store := newTestStore(t)
	post := seedPost(t, store)
	if err := store.AddResponses([]*services.Response{
		{PostID: post.ID, Date: mustDate(t, "2024-03-02"), Gender: services.GenderNotDisclosed, Sentiment: services.SentimentPositive},
	}); err != nil {
		t.Fatalf("AddResponses: %v", err)
	}

	if err := store.DeleteCluster(post.ClusterID); err != nil {
		t.Fatalf("DeleteCluster: %v", err)
	}
	if n, _ := store.CountPosts(); n != 0 {
		t.Fatalf("posts survived cluster delete: %d", n)
	}
	if n, _ := store.CountAllResponses(); n != 0 {
		t.Fatalf("responses survived cluster delete: %d", n)
	}
}

func TestDimensionDeleteReassignsRows(t *testing.T) {
	store := newTestStore(t)
	post := seedPost(t, store)
	ag, _ := store.InsertAgeGroup(&services.AgeGroup{Label: "25-34"})

	if err := store.AddResponses([]*services.Response{
		{PostID: post.ID, Date: mustDate(t, "2024-03-02"), Gender: services.GenderMale, AgeGroup: services.KnownRef(ag.ID), Sentiment: services.SentimentPositive},
		{PostID: post.ID, Date: mustDate(t, "2024-03-02"), Gender: services.GenderMale, AgeGroup: services.KnownRef(ag.ID), Sentiment: services.SentimentNegative},
		{PostID: post.ID, Date: mustDate(t, "2024-03-02"), Gender: services.GenderMale, Sentiment: services.SentimentNeutral},
	}); err != nil {
		t.Fatalf("AddResponses: %v", err)
	}

	reassigned, err := store.DeleteAgeGroup(ag.ID)
	if err != nil || reassigned != 2 {
		t.Fatalf("DeleteAgeGroup = %d, %v", reassigned, err)
	}
	all, _ := store.ListResponsesByPost(post.ID)
	if len(all) != 3 {
		t.Fatalf("responses lost in dimension delete: %d", len(all))
	}
	for _, r := range all {
		if r.AgeGroup.Known {
			t.Fatalf("response %d still references deleted age group", r.ID)
		}
	}

	if _, err := store.DeleteAgeGroup(999); err == nil {
		t.Fatal("deleting a missing age group should fail")
	}
}

func TestAuditRoundTrip(t *testing.T) {
	store := newTestStore(t)
	store.AddAudit(services.AuditEntry{Time: time.Now().UTC(), Actor: "root", Action: "create_cluster", Target: "1", Note: "Election"})
	store.AddAudit(services.AuditEntry{Time: time.Now().UTC(), Actor: "root", Action: "delete_cluster", Target: "1"})

	got := store.ListAudit()
	if len(got) != 2 || got[0].Action != "create_cluster" || got[1].Action != "delete_cluster" {
		t.Fatalf("audit trail wrong: %+v", got)
	}
}
