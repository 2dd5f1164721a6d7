package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pulsedash/pulsedash/internal/api"
	"github.com/pulsedash/pulsedash/internal/services"
)

const dateLayout = "2006-01-02"

// SQLiteStore persists the full api.Store surface in SQLite. Dates are TEXT
// in YYYY-MM-DD so lexical comparison matches chronological order; timestamps
// are RFC 3339.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) FindUser(username string) (*services.User, error) {
	row := s.db.QueryRow(`SELECT username, password_hash, role, created_at FROM app_user WHERE username = ?`, username)
	var u services.User
	var created string
	if err := row.Scan(&u.Username, &u.PasswordHash, &u.Role, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

func (s *SQLiteStore) AddUser(u *services.User) error {
	_, err := s.db.Exec(`INSERT INTO app_user (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.PasswordHash, string(u.Role), u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertCluster(c *services.Cluster) (*services.Cluster, error) {
	res, err := s.db.Exec(`INSERT INTO cluster (name) VALUES (?)`, c.Name)
	if err != nil {
		return nil, fmt.Errorf("insert cluster: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &services.Cluster{ID: id, Name: c.Name}, nil
}

func (s *SQLiteStore) UpdateCluster(c *services.Cluster) error {
	_, err := s.db.Exec(`UPDATE cluster SET name = ? WHERE id = ?`, c.Name, c.ID)
	if err != nil {
		return fmt.Errorf("update cluster: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteCluster(id int64) error {
	// posts and responses go with it via ON DELETE CASCADE
	_, err := s.db.Exec(`DELETE FROM cluster WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cluster: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCluster(id int64) (*services.Cluster, error) {
	row := s.db.QueryRow(`SELECT id, name FROM cluster WHERE id = ?`, id)
	var c services.Cluster
	if err := row.Scan(&c.ID, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cluster: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) ListClusters() ([]*services.Cluster, error) {
	rows, err := s.db.Query(`SELECT id, name FROM cluster ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()
	out := []*services.Cluster{}
	for rows.Next() {
		var c services.Cluster
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountClusters() (int, error) {
	return s.countRows(`SELECT COUNT(*) FROM cluster`)
}

func (s *SQLiteStore) CountPostsByCluster() (map[int64]int, error) {
	rows, err := s.db.Query(`SELECT cluster_id, COUNT(*) FROM post GROUP BY cluster_id`)
	if err != nil {
		return nil, fmt.Errorf("count posts by cluster: %w", err)
	}
	defer rows.Close()
	out := map[int64]int{}
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertPost(p *services.Post) (*services.Post, error) {
	res, err := s.db.Exec(`INSERT INTO post (cluster_id, publish_date, link, message) VALUES (?, ?, ?, ?)`,
		p.ClusterID, p.PublishDate.Format(dateLayout), p.Link, p.Message)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	created := *p
	created.ID = id
	return &created, nil
}

func (s *SQLiteStore) UpdatePost(p *services.Post) error {
	_, err := s.db.Exec(`UPDATE post SET cluster_id = ?, publish_date = ?, link = ?, message = ? WHERE id = ?`,
		p.ClusterID, p.PublishDate.Format(dateLayout), p.Link, p.Message, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeletePost(id int64) error {
	_, err := s.db.Exec(`DELETE FROM post WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPost(id int64) (*services.Post, error) {
	row := s.db.QueryRow(`SELECT id, cluster_id, publish_date, link, message FROM post WHERE id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListPosts() ([]*services.Post, error) {
	return s.queryPosts(`SELECT id, cluster_id, publish_date, link, message FROM post ORDER BY id`)
}

func (s *SQLiteStore) ListPostsByCluster(clusterID int64) ([]*services.Post, error) {
	return s.queryPosts(`SELECT id, cluster_id, publish_date, link, message FROM post WHERE cluster_id = ? ORDER BY id`, clusterID)
}

func (s *SQLiteStore) CountPosts() (int, error) {
	return s.countRows(`SELECT COUNT(*) FROM post`)
}

func (s *SQLiteStore) queryPosts(query string, args ...any) ([]*services.Post, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	out := []*services.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*services.Post, error) {
	var p services.Post
	var date string
	if err := row.Scan(&p.ID, &p.ClusterID, &date, &p.Link, &p.Message); err != nil {
		return nil, err
	}
	var err error
	p.PublishDate, err = time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse publish_date %q: %w", date, err)
	}
	return &p, nil
}

func (s *SQLiteStore) GetResponse(id int64) (*services.Response, error) {
	row := s.db.QueryRow(`SELECT id, post_id, date, message, submitter, age_group_id, gender, region_id, sentiment FROM response WHERE id = ?`, id)
	r, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get response: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) AddResponses(rs []*services.Response) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("add responses: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO response (post_id, date, message, submitter, age_group_id, gender, region_id, sentiment) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("add responses: %w", err)
	}
	defer stmt.Close()
	for _, r := range rs {
		res, err := stmt.Exec(r.PostID, r.Date.Format(dateLayout), r.Message, r.Submitter,
			r.AgeGroup.StorageID(), string(r.Gender), r.Region.StorageID(), string(r.Sentiment))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("add responses: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			r.ID = id
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateResponse(r *services.Response) error {
	_, err := s.db.Exec(`UPDATE response SET date = ?, message = ?, submitter = ?, age_group_id = ?, gender = ?, region_id = ?, sentiment = ? WHERE id = ?`,
		r.Date.Format(dateLayout), r.Message, r.Submitter, r.AgeGroup.StorageID(),
		string(r.Gender), r.Region.StorageID(), string(r.Sentiment), r.ID)
	if err != nil {
		return fmt.Errorf("update response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteResponse(id int64) error {
	_, err := s.db.Exec(`DELETE FROM response WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	return nil
}

// criteriaWhere translates filter criteria into a WHERE clause. Date bounds
// compare lexically, which matches chronology for YYYY-MM-DD text.
func criteriaWhere(postID int64, c services.Criteria) (string, []any) {
	where := []string{"post_id = ?"}
	args := []any{postID}
	if c.Gender != nil {
		where = append(where, "gender = ?")
		args = append(args, string(*c.Gender))
	}
	if c.AgeGroup != nil {
		where = append(where, "age_group_id = ?")
		args = append(args, c.AgeGroup.StorageID())
	}
	if c.Region != nil {
		where = append(where, "region_id = ?")
		args = append(args, c.Region.StorageID())
	}
	if c.DateFrom != nil {
		where = append(where, "date >= ?")
		args = append(args, c.DateFrom.Format(dateLayout))
	}
	if c.DateTo != nil {
		where = append(where, "date <= ?")
		args = append(args, c.DateTo.Format(dateLayout))
	}
	return strings.Join(where, " AND "), args
}

func (s *SQLiteStore) ListResponses(postID int64, c services.Criteria) ([]*services.Response, error) {
	where, args := criteriaWhere(postID, c)
	rows, err := s.db.Query(`SELECT id, post_id, date, message, submitter, age_group_id, gender, region_id, sentiment FROM response WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	out := []*services.Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListResponsesByPost(postID int64) ([]*services.Response, error) {
	return s.ListResponses(postID, services.Criteria{})
}

func (s *SQLiteStore) CountResponses(postID int64, c services.Criteria) (int, error) {
	where, args := criteriaWhere(postID, c)
	return s.countRows(`SELECT COUNT(*) FROM response WHERE `+where, args...)
}

func (s *SQLiteStore) CountAllResponses() (int, error) {
	return s.countRows(`SELECT COUNT(*) FROM response`)
}

func scanResponse(row rowScanner) (*services.Response, error) {
	var r services.Response
	var date, gender, sentiment string
	var ageGroupID, regionID int64
	if err := row.Scan(&r.ID, &r.PostID, &date, &r.Message, &r.Submitter, &ageGroupID, &gender, &regionID, &sentiment); err != nil {
		return nil, err
	}
	var err error
	r.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse response date %q: %w", date, err)
	}
	r.AgeGroup = services.RefFromID(ageGroupID)
	r.Region = services.RefFromID(regionID)
	r.Gender = services.Gender(gender)
	r.Sentiment = services.Sentiment(sentiment)
	return &r, nil
}

func (s *SQLiteStore) ListAgeGroups() ([]*services.AgeGroup, error) {
	rows, err := s.db.Query(`SELECT id, label FROM age_group ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list age groups: %w", err)
	}
	defer rows.Close()
	out := []*services.AgeGroup{}
	for rows.Next() {
		var g services.AgeGroup
		if err := rows.Scan(&g.ID, &g.Label); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetAgeGroup(id int64) (*services.AgeGroup, error) {
	row := s.db.QueryRow(`SELECT id, label FROM age_group WHERE id = ?`, id)
	var g services.AgeGroup
	if err := row.Scan(&g.ID, &g.Label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get age group: %w", err)
	}
	return &g, nil
}

func (s *SQLiteStore) InsertAgeGroup(g *services.AgeGroup) (*services.AgeGroup, error) {
	res, err := s.db.Exec(`INSERT INTO age_group (label) VALUES (?)`, g.Label)
	if err != nil {
		return nil, fmt.Errorf("insert age group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &services.AgeGroup{ID: id, Label: g.Label}, nil
}

// DeleteAgeGroup reassigns dependent responses to the reserved row 0, then
// deletes the dimension row, in one transaction.
func (s *SQLiteStore) DeleteAgeGroup(id int64) (int, error) {
	return s.deleteDimension(`age_group`, `UPDATE response SET age_group_id = 0 WHERE age_group_id = ?`, id)
}

func (s *SQLiteStore) ListRegions() ([]*services.Region, error) {
	rows, err := s.db.Query(`SELECT id, name FROM region ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()
	out := []*services.Region{}
	for rows.Next() {
		var r services.Region
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetRegion(id int64) (*services.Region, error) {
	row := s.db.QueryRow(`SELECT id, name FROM region WHERE id = ?`, id)
	var r services.Region
	if err := row.Scan(&r.ID, &r.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get region: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) InsertRegion(r *services.Region) (*services.Region, error) {
	res, err := s.db.Exec(`INSERT INTO region (name) VALUES (?)`, r.Name)
	if err != nil {
		return nil, fmt.Errorf("insert region: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &services.Region{ID: id, Name: r.Name}, nil
}

func (s *SQLiteStore) DeleteRegion(id int64) (int, error) {
	return s.deleteDimension(`region`, `UPDATE response SET region_id = 0 WHERE region_id = ?`, id)
}

func (s *SQLiteStore) deleteDimension(table, reassign string, id int64) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&exists); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	if exists == 0 {
		_ = tx.Rollback()
		return 0, services.NewNotFoundError(strings.ReplaceAll(table, "_", " ") + " not found")
	}
	res, err := tx.Exec(reassign, id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("reassign %s responses: %w", table, err)
	}
	reassigned, _ := res.RowsAffected()
	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return int(reassigned), nil
}

// AddAudit is fire-and-forget: an audit write failure must not fail the
// mutation it records.
func (s *SQLiteStore) AddAudit(e services.AuditEntry) {
	_, err := s.db.Exec(`INSERT INTO audit_log (time, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339), e.Actor, e.Action, e.Target, e.Note)
	if err != nil {
		log.Printf("sqlite store: add audit: %v", err)
	}
}

func (s *SQLiteStore) ListAudit() []services.AuditEntry {
	rows, err := s.db.Query(`SELECT time, actor, action, target, note FROM audit_log ORDER BY id`)
	if err != nil {
		log.Printf("sqlite store: list audit: %v", err)
		return nil
	}
	defer rows.Close()
	out := []services.AuditEntry{}
	for rows.Next() {
		var e services.AuditEntry
		var ts string
		if err := rows.Scan(&ts, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			log.Printf("sqlite store: scan audit: %v", err)
			return out
		}
		e.Time, _ = time.Parse(time.RFC3339, ts)
		out = append(out, e)
	}
	return out
}

func (s *SQLiteStore) countRows(query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

var _ api.Store = (*SQLiteStore)(nil)
