package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nubip/schedsync/internal/config"
	"github.com/nubip/schedsync/internal/model"
)

//go:embed schema.sql
var schema string

// Connect opens and pings a PostgreSQL pool.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Postgres implements Store on PostgreSQL.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates missing tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) Semester(ctx context.Context, id int64) (*model.Semester, error) {
	const query = `SELECT id, start_date, end_date, week_type FROM semesters WHERE id = $1`
	var s model.Semester
	if err := p.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("semester %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get semester: %w", err)
	}
	return &s, nil
}

func (p *Postgres) Semesters(ctx context.Context) ([]model.Semester, error) {
	const query = `SELECT id, start_date, end_date, week_type FROM semesters ORDER BY start_date ASC, id ASC`
	var out []model.Semester
	if err := p.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return out, nil
}

func (p *Postgres) CreateSemester(ctx context.Context, s *model.Semester) error {
	if err := s.Validate(); err != nil {
		return err
	}
	const query = `INSERT INTO semesters (start_date, end_date, week_type) VALUES ($1, $2, $3) RETURNING id`
	if err := p.db.QueryRowxContext(ctx, query, s.StartDate, s.EndDate, s.WeekType).Scan(&s.ID); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

func (p *Postgres) EnsureFaculty(ctx context.Context, name string) error {
	const query = `INSERT INTO faculties (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	if _, err := p.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("ensure faculty: %w", err)
	}
	return nil
}

func (p *Postgres) GetOrCreateSpecialty(ctx context.Context, code, faculty string) (*model.Specialty, error) {
	const query = `
INSERT INTO specialties (code, faculty_name) VALUES ($1, NULLIF($2, ''))
ON CONFLICT (code) DO UPDATE SET faculty_name = COALESCE(specialties.faculty_name, EXCLUDED.faculty_name)
RETURNING id, code, COALESCE(faculty_name, '') AS faculty_name`
	var s model.Specialty
	if err := p.db.GetContext(ctx, &s, query, code, faculty); err != nil {
		return nil, fmt.Errorf("get or create specialty %q: %w", code, err)
	}
	return &s, nil
}

func (p *Postgres) GetOrCreateGroup(ctx context.Context, g model.Group) (*model.Group, error) {
	const query = `
INSERT INTO student_groups (name, year, specialty_id, number, type, faculty_name)
VALUES (:name, :year, :specialty_id, :number, :type, NULLIF(:faculty_name, ''))
ON CONFLICT (year, specialty_id, number) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name, year, specialty_id, number, type, COALESCE(faculty_name, '') AS faculty_name`
	rows, err := sqlx.NamedQueryContext(ctx, p.db, query, g)
	if err != nil {
		return nil, fmt.Errorf("get or create group %q: %w", g.Name, err)
	}
	defer rows.Close()

	var out model.Group
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get or create group %q: %w", g.Name, err)
		}
		return nil, fmt.Errorf("get or create group %q: no row returned", g.Name)
	}
	if err := rows.StructScan(&out); err != nil {
		return nil, fmt.Errorf("scan group: %w", err)
	}
	return &out, nil
}

func (p *Postgres) GetOrCreateSubject(ctx context.Context, title string) (*model.Subject, error) {
	const query = `
INSERT INTO subjects (title) VALUES ($1)
ON CONFLICT (title) DO UPDATE SET title = EXCLUDED.title
RETURNING id, title, course_id`
	var s model.Subject
	if err := p.db.GetContext(ctx, &s, query, title); err != nil {
		return nil, fmt.Errorf("get or create subject %q: %w", title, err)
	}
	return &s, nil
}

func (p *Postgres) SetSubjectCourse(ctx context.Context, subjectID, courseID int64) error {
	const query = `UPDATE subjects SET course_id = $2 WHERE id = $1`
	res, err := p.db.ExecContext(ctx, query, subjectID, courseID)
	if err != nil {
		return fmt.Errorf("link subject course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subject %d: %w", subjectID, ErrNotFound)
	}
	return nil
}

func (p *Postgres) SaveLessonNumbers(ctx context.Context, numbers []model.LessonNumber) error {
	const query = `
INSERT INTO lesson_numbers (number, start_minute, end_minute) VALUES (:number, :start_minute, :end_minute)
ON CONFLICT (number) DO UPDATE SET start_minute = EXCLUDED.start_minute, end_minute = EXCLUDED.end_minute`
	for i := range numbers {
		if _, err := p.db.NamedExecContext(ctx, query, numbers[i]); err != nil {
			return fmt.Errorf("save lesson number %d: %w", numbers[i].Number, err)
		}
	}
	return nil
}

func (p *Postgres) LessonNumbers(ctx context.Context) (map[int]model.LessonNumber, error) {
	const query = `SELECT number, start_minute, end_minute FROM lesson_numbers ORDER BY number`
	var rows []model.LessonNumber
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list lesson numbers: %w", err)
	}
	out := make(map[int]model.LessonNumber, len(rows))
	for _, n := range rows {
		out[n.Number] = n
	}
	return out, nil
}

func (p *Postgres) UpsertLesson(ctx context.Context, l *model.Lesson, groupIDs []int64) (created bool, err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin lesson transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := l.ID
	if id == "" {
		id = uuid.NewString()
	}
	const upsert = `
INSERT INTO lessons (id, day_of_week, week_frequency, lesson_number, semester_id, subject_id, location, meeting_url, type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (subject_id, day_of_week, lesson_number, week_frequency, semester_id)
DO UPDATE SET location = EXCLUDED.location
RETURNING id, (xmax = 0) AS inserted`
	var row struct {
		ID       string `db:"id"`
		Inserted bool   `db:"inserted"`
	}
	if err = tx.GetContext(ctx, &row, upsert, id, l.DayOfWeek, l.Frequency, l.LessonNumber,
		l.SemesterID, l.SubjectID, l.Location, l.MeetingURL, l.Type); err != nil {
		return false, fmt.Errorf("upsert lesson: %w", err)
	}

	const link = `INSERT INTO lesson_groups (lesson_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, gid := range groupIDs {
		if _, err = tx.ExecContext(ctx, link, row.ID, gid); err != nil {
			return false, fmt.Errorf("link lesson group %d: %w", gid, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit lesson: %w", err)
	}
	l.ID = row.ID
	return row.Inserted, nil
}

func (p *Postgres) DeleteLessons(ctx context.Context, semesterID int64) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM lessons WHERE semester_id = $1`, semesterID)
	if err != nil {
		return 0, fmt.Errorf("delete lessons: %w", err)
	}
	return res.RowsAffected()
}

func (p *Postgres) Lessons(ctx context.Context, f LessonFilter) ([]model.Lesson, error) {
	if f.empty() {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	if f.IDs != nil {
		args = append(args, pq.Array(f.IDs))
		conditions = append(conditions, fmt.Sprintf("l.id = ANY($%d::uuid[])", len(args)))
	}
	if f.SemesterIDs != nil {
		args = append(args, pq.Array(f.SemesterIDs))
		conditions = append(conditions, fmt.Sprintf("l.semester_id = ANY($%d)", len(args)))
	}
	if f.CourseIDs != nil {
		args = append(args, pq.Array(f.CourseIDs))
		conditions = append(conditions, fmt.Sprintf("s.course_id = ANY($%d)", len(args)))
	}
	if f.GroupNames != nil {
		args = append(args, pq.Array(f.GroupNames))
		conditions = append(conditions, fmt.Sprintf(
			"l.id IN (SELECT lg.lesson_id FROM lesson_groups lg JOIN student_groups g ON g.id = lg.group_id WHERE g.name = ANY($%d))", len(args)))
	}

	query := `SELECT l.id, l.day_of_week, l.week_frequency, l.lesson_number, l.semester_id, l.subject_id,
s.title AS subject_title, s.course_id, l.location, l.meeting_url, l.type
FROM lessons l JOIN subjects s ON s.id = l.subject_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY l.semester_id, l.day_of_week, l.lesson_number, s.title, l.week_frequency"

	var lessons []model.Lesson
	if err := p.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	if len(lessons) == 0 {
		return lessons, nil
	}

	ids := make([]string, len(lessons))
	byID := make(map[string]int, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
		byID[l.ID] = i
	}

	const groupQuery = `SELECT lg.lesson_id, g.name FROM lesson_groups lg JOIN student_groups g ON g.id = lg.group_id
WHERE lg.lesson_id = ANY($1::uuid[]) ORDER BY g.name`
	var links []struct {
		LessonID string `db:"lesson_id"`
		Name     string `db:"name"`
	}
	if err := p.db.SelectContext(ctx, &links, groupQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list lesson groups: %w", err)
	}
	for _, link := range links {
		if i, ok := byID[link.LessonID]; ok {
			lessons[i].Groups = append(lessons[i].Groups, link.Name)
		}
	}
	return lessons, nil
}

func (p *Postgres) SetMeetingURL(ctx context.Context, ids []string, url string) (int64, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE lessons SET meeting_url = $1 WHERE id = ANY($2::uuid[])`, url, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("set meeting url: %w", err)
	}
	return res.RowsAffected()
}

func (p *Postgres) SetLessonType(ctx context.Context, ids []string, t model.LessonType) (int64, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE lessons SET type = $1 WHERE id = ANY($2::uuid[])`, t, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("set lesson type: %w", err)
	}
	return res.RowsAffected()
}

func (p *Postgres) AddScheduleFile(ctx context.Context, f *model.ScheduleFile) error {
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_files (path, semester_id, faculty_name, uploaded_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := p.db.QueryRowxContext(ctx, query, f.Path, f.SemesterID, f.FacultyName, f.UploadedAt).Scan(&f.ID); err != nil {
		return fmt.Errorf("add schedule file: %w", err)
	}
	return nil
}

func (p *Postgres) PendingScheduleFiles(ctx context.Context) ([]model.ScheduleFile, error) {
	const query = `SELECT id, path, semester_id, faculty_name, uploaded_at, processed_at, error
FROM schedule_files WHERE processed_at IS NULL ORDER BY uploaded_at ASC, id ASC`
	var out []model.ScheduleFile
	if err := p.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list pending schedule files: %w", err)
	}
	return out, nil
}

func (p *Postgres) MarkScheduleFile(ctx context.Context, id int64, processedAt time.Time, errText string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE schedule_files SET processed_at = $2, error = $3 WHERE id = $1`, id, processedAt, errText)
	if err != nil {
		return fmt.Errorf("mark schedule file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule file %d: %w", id, ErrNotFound)
	}
	return nil
}
