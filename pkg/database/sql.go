package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-gorp/gorp/v3"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/openswoop/syllabank/pkg/catalog"
)

// SQL stores the catalog in any database/sql backend gorp has a dialect
// for: sqlite (default), postgres, mysql and libsql.
type SQL struct {
	db    *sql.DB
	dbmap *gorp.DbMap
	now   func() time.Time
}

var _ Database = (*SQL)(nil)

// Open connects to dsn and creates the tables if it's our first run. The
// scheme picks the driver: postgres://, mysql://, libsql:// (or http(s)://,
// ws(s)://), sqlite://, and anything else is a sqlite file path.
func Open(ctx context.Context, dsn string) (*SQL, error) {
	driver, source, dialect, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite3" {
		// sqlite serializes writers anyway, and ":memory:" is per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	dbmap := &gorp.DbMap{Db: db, Dialect: dialect}
	dbmap.AddTableWithName(UniversityRow{}, "universities").SetKeys(true, "ID")
	dbmap.AddTableWithName(CourseRow{}, "courses").SetKeys(true, "ID").
		SetUniqueTogether("university_id", "subject", "number")
	dbmap.AddTableWithName(SectionRow{}, "sections").SetKeys(true, "ID")
	dbmap.AddTableWithName(ErrorRow{}, "scrape_errors").SetKeys(true, "ID")
	if err := dbmap.CreateTablesIfNotExists(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQL{db: db, dbmap: dbmap, now: time.Now}, nil
}

func parseDSN(dsn string) (driver, source string, dialect gorp.Dialect, err error) {
	switch {
	case dsn == "":
		return "", "", nil, errors.New("database dsn is required")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, gorp.PostgresDialect{}, nil
	case strings.HasPrefix(dsn, "mysql://"):
		cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
		}
		return "mysql", cfg.FormatDSN(), gorp.MySQLDialect{Engine: "InnoDB", Encoding: "utf8mb4"}, nil
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "http://"), strings.HasPrefix(dsn, "https://"),
		strings.HasPrefix(dsn, "ws://"), strings.HasPrefix(dsn, "wss://"):
		return "libsql", dsn, gorp.SqliteDialect{}, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(dsn, "sqlite://"), gorp.SqliteDialect{}, nil
	}
	return "sqlite3", dsn, gorp.SqliteDialect{}, nil
}

// ErrUniversityNotFound is returned when no stored university matches a name.
var ErrUniversityNotFound = errors.New("university not found")

// match returns the stored university that best matches any of the wanted
// names, or ok=false when none reaches UniversityMatchThreshold.
func (s *SQL) match(db gorp.SqlExecutor, wanted []string) (u catalog.University, score float64, ok bool, err error) {
	var rows []UniversityRow
	if _, err := db.Select(&rows, "select * from universities order by id"); err != nil {
		return u, 0, false, fmt.Errorf("failed to list universities: %w", err)
	}

	best := -1
	for i, row := range rows {
		candidate, err := row.University()
		if err != nil {
			return u, 0, false, err
		}
		if sc := similarity(wanted, append([]string{candidate.Name}, candidate.Aliases...)); sc > score {
			best, score, u = i, sc, candidate
		}
	}
	if best < 0 || score < UniversityMatchThreshold {
		return catalog.University{}, score, false, nil
	}
	return u, score, true, nil
}

// FindUniversity looks a university up by name or alias without creating
// it.
func (s *SQL) FindUniversity(ctx context.Context, name string) (catalog.University, error) {
	u, _, ok, err := s.match(s.dbmap.WithContext(ctx), []string{name})
	if err != nil {
		return catalog.University{}, err
	}
	if !ok {
		return catalog.University{}, fmt.Errorf("%w: %s", ErrUniversityNotFound, name)
	}
	return u, nil
}

// GetOrCreateUniversity returns the university fuzzily matching name or one
// of its aliases, recording any new aliases, or inserts a new one.
func (s *SQL) GetOrCreateUniversity(ctx context.Context, name string, aliases []string) (catalog.University, error) {
	db := s.dbmap.WithContext(ctx)

	wanted := append([]string{name}, aliases...)
	u, score, ok, err := s.match(db, wanted)
	if err != nil {
		return catalog.University{}, err
	}
	if ok {
		slog.DebugContext(ctx, "matched university", "name", name, "university", u.Name, "score", score)
		if merged, changed := mergeAliases(u, wanted); changed {
			row := newUniversityRow(merged)
			if _, err := db.Update(&row); err != nil {
				return catalog.University{}, fmt.Errorf("failed to update university aliases: %w", err)
			}
			u = merged
		}
		return u, nil
	}

	row := newUniversityRow(catalog.University{Name: name, Aliases: aliases})
	if err := db.Insert(&row); err != nil {
		return catalog.University{}, fmt.Errorf("failed to insert university %s: %w", name, err)
	}
	slog.InfoContext(ctx, "created university", "name", name, "id", row.ID)
	return row.University()
}

// mergeAliases adds every wanted name the university does not already
// carry as its name or an alias.
func mergeAliases(u catalog.University, wanted []string) (catalog.University, bool) {
	known := map[string]bool{normalizeName(u.Name): true}
	for _, alias := range u.Aliases {
		known[normalizeName(alias)] = true
	}
	changed := false
	for _, name := range wanted {
		key := normalizeName(name)
		if key == "" || known[key] {
			continue
		}
		known[key] = true
		u.Aliases = append(u.Aliases, name)
		changed = true
	}
	return u, changed
}

// SaveUniversity overwrites the stored terms, timezone and attributes of an
// existing university.
func (s *SQL) SaveUniversity(ctx context.Context, u catalog.University) error {
	row := newUniversityRow(u)
	n, err := s.dbmap.WithContext(ctx).Update(&row)
	if err != nil {
		return fmt.Errorf("failed to update university %d: %w", u.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("university %d does not exist", u.ID)
	}
	return nil
}

func (s *SQL) Universities(ctx context.Context) ([]catalog.University, error) {
	var rows []UniversityRow
	if _, err := s.dbmap.WithContext(ctx).Select(&rows, "select * from universities order by id"); err != nil {
		return nil, fmt.Errorf("failed to list universities: %w", err)
	}
	universities := make([]catalog.University, 0, len(rows))
	for _, row := range rows {
		u, err := row.University()
		if err != nil {
			return nil, err
		}
		universities = append(universities, u)
	}
	return universities, nil
}

// UpsertCourse updates the course stored under (university, subject, number)
// in place, or inserts it. created reports whether a new row was inserted.
func (s *SQL) UpsertCourse(ctx context.Context, course catalog.Course, universityID int64) (int64, bool, error) {
	db := s.dbmap.WithContext(ctx)
	row := newCourseRow(course, universityID, s.now())

	id, err := s.courseID(db, universityID, course.Subject, course.Number)
	if err != nil {
		return 0, false, err
	}
	if id == 0 {
		err := db.Insert(&row)
		if err == nil {
			return row.ID, true, nil
		}
		if !isUniqueViolation(err) {
			return 0, false, fmt.Errorf("failed to insert course %s: %w", course.Code(), err)
		}
		// Lost a race with another writer; fall through to the update.
		if id, err = s.courseID(db, universityID, course.Subject, course.Number); err != nil {
			return 0, false, err
		}
	}

	row.ID = id
	if _, err := db.Update(&row); err != nil {
		return 0, false, fmt.Errorf("failed to update course %s: %w", course.Code(), err)
	}
	return id, false, nil
}

func (s *SQL) courseID(db gorp.SqlExecutor, universityID int64, subject, number string) (int64, error) {
	id, err := db.SelectInt(
		"select id from courses where university_id = :university_id and subject = :subject and number = :number",
		map[string]interface{}{"university_id": universityID, "subject": subject, "number": number})
	if err != nil {
		return 0, fmt.Errorf("failed to look up course %s %s: %w", subject, number, err)
	}
	return id, nil
}

// ReplaceSections deletes every section of the course and inserts the given
// set, in one transaction of its own.
func (s *SQL) ReplaceSections(ctx context.Context, courseID int64, sections []catalog.Section) (int, error) {
	tx, err := s.dbmap.WithContext(ctx).(*gorp.DbMap).Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec("delete from sections where course_id = :course_id",
		map[string]interface{}{"course_id": courseID}); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to delete sections of course %d: %w", courseID, err)
	}

	rows := make([]interface{}, 0, len(sections))
	for _, section := range sections {
		row := newSectionRow(section, courseID)
		rows = append(rows, &row)
	}
	if len(rows) > 0 {
		if err := tx.Insert(rows...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert sections of course %d: %w", courseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sections of course %d: %w", courseID, err)
	}
	return len(rows), nil
}

// Courses reads back every course of the university with its sections,
// ordered by subject and number.
func (s *SQL) Courses(ctx context.Context, universityID int64) ([]StoredCourse, error) {
	db := s.dbmap.WithContext(ctx)
	args := map[string]interface{}{"university_id": universityID}

	var courseRows []CourseRow
	if _, err := db.Select(&courseRows,
		"select * from courses where university_id = :university_id order by subject, number", args); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	var sectionRows []SectionRow
	if _, err := db.Select(&sectionRows,
		"select s.* from sections s join courses c on c.id = s.course_id where c.university_id = :university_id order by s.id",
		args); err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}

	sections := make(map[int64][]catalog.Section)
	for _, row := range sectionRows {
		section, err := row.Section()
		if err != nil {
			return nil, err
		}
		sections[row.CourseID] = append(sections[row.CourseID], section)
	}

	courses := make([]StoredCourse, 0, len(courseRows))
	for _, row := range courseRows {
		course, err := row.StoredCourse()
		if err != nil {
			return nil, err
		}
		course.Sections = sections[row.ID]
		courses = append(courses, course)
	}
	return courses, nil
}

func (s *SQL) SaveErrors(ctx context.Context, runID string, universityID int64, errs []catalog.ScrapeError) error {
	if len(errs) == 0 {
		return nil
	}
	tx, err := s.dbmap.WithContext(ctx).(*gorp.DbMap).Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, e := range errs {
		row := ErrorRow{
			RunID:        runID,
			UniversityID: universityID,
			Kind:         string(e.Kind),
			Subject:      e.Subject,
			Number:       e.Number,
			Message:      e.Message,
			CreatedAt:    e.Time.UTC().Format(time.RFC3339Nano),
		}
		if err := tx.Insert(&row); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert scrape error: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQL) ScrapeErrors(ctx context.Context, runID string) ([]catalog.ScrapeError, error) {
	var rows []ErrorRow
	if _, err := s.dbmap.WithContext(ctx).Select(&rows,
		"select * from scrape_errors where run_id = :run_id order by id",
		map[string]interface{}{"run_id": runID}); err != nil {
		return nil, fmt.Errorf("failed to list scrape errors: %w", err)
	}
	errs := make([]catalog.ScrapeError, 0, len(rows))
	for _, row := range rows {
		errs = append(errs, row.ScrapeError())
	}
	return errs, nil
}

// LatestRun returns the id of the most recent run that logged errors for
// the university, or "" when there is none.
func (s *SQL) LatestRun(ctx context.Context, universityID int64) (string, error) {
	runID, err := s.dbmap.WithContext(ctx).SelectStr(
		"select run_id from scrape_errors where university_id = :university_id order by id desc limit 1",
		map[string]interface{}{"university_id": universityID})
	if err != nil {
		return "", fmt.Errorf("failed to find latest run: %w", err)
	}
	return runID, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteError sqlite3.Error
	if errors.As(err, &sqliteError) {
		return errors.Is(sqliteError.ExtendedCode, sqlite3.ErrConstraintUnique)
	}
	var mysqlError *mysql.MySQLError
	if errors.As(err, &mysqlError) {
		return mysqlError.Number == 1062
	}
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		return pgError.Code == "23505"
	}
	return false
}
