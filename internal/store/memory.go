package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nubip/schedsync/internal/model"
)

type lessonKey struct {
	subjectID int64
	day       model.DayOfWeek
	number    int
	freq      model.WeekFrequency
	semester  int64
}

type groupKey struct {
	year        int
	specialtyID int64
	number      string
}

// Memory is an in-process Store used by dry runs and tests.
type Memory struct {
	mu sync.Mutex

	nextID int64

	semesters   map[int64]model.Semester
	faculties   map[string]struct{}
	specialties map[string]model.Specialty
	groups      map[groupKey]model.Group
	subjects    map[string]model.Subject
	numbers     map[int]model.LessonNumber
	lessons     map[string]*model.Lesson
	lessonIndex map[lessonKey]string
	// lessonGroups maps a lesson id to its group ids.
	lessonGroups map[string]map[int64]struct{}
	files        map[int64]model.ScheduleFile
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		semesters:    make(map[int64]model.Semester),
		faculties:    make(map[string]struct{}),
		specialties:  make(map[string]model.Specialty),
		groups:       make(map[groupKey]model.Group),
		subjects:     make(map[string]model.Subject),
		numbers:      make(map[int]model.LessonNumber),
		lessons:      make(map[string]*model.Lesson),
		lessonIndex:  make(map[lessonKey]string),
		lessonGroups: make(map[string]map[int64]struct{}),
		files:        make(map[int64]model.ScheduleFile),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) Semester(_ context.Context, id int64) (*model.Semester, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.semesters[id]
	if !ok {
		return nil, fmt.Errorf("semester %d: %w", id, ErrNotFound)
	}
	return &s, nil
}

func (m *Memory) Semesters(_ context.Context) ([]model.Semester, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Semester, 0, len(m.semesters))
	for _, s := range m.semesters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateSemester(_ context.Context, s *model.Semester) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.semesters[s.ID] = *s
	return nil
}

func (m *Memory) EnsureFaculty(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faculties[name] = struct{}{}
	return nil
}

func (m *Memory) GetOrCreateSpecialty(_ context.Context, code, faculty string) (*model.Specialty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.specialties[code]
	if !ok {
		s = model.Specialty{ID: m.id(), Code: code, FacultyName: faculty}
	} else if s.FacultyName == "" {
		s.FacultyName = faculty
	}
	m.specialties[code] = s
	return &s, nil
}

func (m *Memory) GetOrCreateGroup(_ context.Context, g model.Group) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := groupKey{year: g.Year, specialtyID: g.SpecialtyID, number: g.Number}
	existing, ok := m.groups[k]
	if ok {
		existing.Name = g.Name
		m.groups[k] = existing
		return &existing, nil
	}
	g.ID = m.id()
	m.groups[k] = g
	return &g, nil
}

func (m *Memory) GetOrCreateSubject(_ context.Context, title string) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[title]
	if !ok {
		s = model.Subject{ID: m.id(), Title: title}
		m.subjects[title] = s
	}
	return &s, nil
}

func (m *Memory) SetSubjectCourse(_ context.Context, subjectID, courseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for title, s := range m.subjects {
		if s.ID == subjectID {
			id := courseID
			s.CourseID = &id
			m.subjects[title] = s
			return nil
		}
	}
	return fmt.Errorf("subject %d: %w", subjectID, ErrNotFound)
}

func (m *Memory) SaveLessonNumbers(_ context.Context, numbers []model.LessonNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range numbers {
		m.numbers[n.Number] = n
	}
	return nil
}

func (m *Memory) LessonNumbers(_ context.Context) (map[int]model.LessonNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]model.LessonNumber, len(m.numbers))
	for k, v := range m.numbers {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) UpsertLesson(_ context.Context, l *model.Lesson, groupIDs []int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.semesters[l.SemesterID]; !ok {
		return false, fmt.Errorf("upsert lesson: semester %d: %w", l.SemesterID, ErrNotFound)
	}
	k := lessonKey{subjectID: l.SubjectID, day: l.DayOfWeek, number: l.LessonNumber, freq: l.Frequency, semester: l.SemesterID}
	created := false
	id, ok := m.lessonIndex[k]
	if ok {
		m.lessons[id].Location = l.Location
	} else {
		id = l.ID
		if id == "" {
			id = uuid.NewString()
		}
		stored := *l
		stored.ID = id
		stored.Groups = nil
		m.lessons[id] = &stored
		m.lessonIndex[k] = id
		m.lessonGroups[id] = make(map[int64]struct{})
		created = true
	}
	for _, gid := range groupIDs {
		m.lessonGroups[id][gid] = struct{}{}
	}
	l.ID = id
	return created, nil
}

func (m *Memory) DeleteLessons(_ context.Context, semesterID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, id := range m.lessonIndex {
		if k.semester != semesterID {
			continue
		}
		delete(m.lessonIndex, k)
		delete(m.lessons, id)
		delete(m.lessonGroups, id)
		n++
	}
	return n, nil
}

func (m *Memory) Lessons(_ context.Context, f LessonFilter) ([]model.Lesson, error) {
	if f.empty() {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	subjects := make(map[int64]model.Subject, len(m.subjects))
	for _, s := range m.subjects {
		subjects[s.ID] = s
	}
	groupNames := make(map[int64]string, len(m.groups))
	for _, g := range m.groups {
		groupNames[g.ID] = g.Name
	}

	ids := toSet(f.IDs)
	semesters := toSet(f.SemesterIDs)
	courses := toSet(f.CourseIDs)
	wantGroups := toSet(f.GroupNames)

	var out []model.Lesson
	for id, stored := range m.lessons {
		l := *stored
		subject := subjects[l.SubjectID]
		l.SubjectTitle = subject.Title
		l.CourseID = subject.CourseID
		l.Groups = nil
		for gid := range m.lessonGroups[id] {
			l.Groups = append(l.Groups, groupNames[gid])
		}
		sort.Strings(l.Groups)

		if ids != nil && !ids[l.ID] {
			continue
		}
		if semesters != nil && !semesters[l.SemesterID] {
			continue
		}
		if courses != nil && (l.CourseID == nil || !courses[*l.CourseID]) {
			continue
		}
		if wantGroups != nil && !anyIn(l.Groups, wantGroups) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.SemesterID != b.SemesterID:
			return a.SemesterID < b.SemesterID
		case a.DayOfWeek != b.DayOfWeek:
			return a.DayOfWeek < b.DayOfWeek
		case a.LessonNumber != b.LessonNumber:
			return a.LessonNumber < b.LessonNumber
		case a.SubjectTitle != b.SubjectTitle:
			return a.SubjectTitle < b.SubjectTitle
		default:
			return a.Frequency < b.Frequency
		}
	})
	return out, nil
}

func (m *Memory) SetMeetingURL(_ context.Context, ids []string, url string) (int64, error) {
	return m.updateLessons(ids, func(l *model.Lesson) { l.MeetingURL = url }), nil
}

func (m *Memory) SetLessonType(_ context.Context, ids []string, t model.LessonType) (int64, error) {
	return m.updateLessons(ids, func(l *model.Lesson) { l.Type = t }), nil
}

func (m *Memory) updateLessons(ids []string, fn func(*model.Lesson)) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if l, ok := m.lessons[id]; ok {
			fn(l)
			n++
		}
	}
	return n
}

func (m *Memory) AddScheduleFile(_ context.Context, f *model.ScheduleFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	f.ID = m.id()
	m.files[f.ID] = *f
	return nil
}

func (m *Memory) PendingScheduleFiles(_ context.Context) ([]model.ScheduleFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduleFile
	for _, f := range m.files {
		if f.ProcessedAt == nil {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) MarkScheduleFile(_ context.Context, id int64, processedAt time.Time, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return fmt.Errorf("schedule file %d: %w", id, ErrNotFound)
	}
	at := processedAt
	f.ProcessedAt = &at
	f.Error = errText
	m.files[id] = f
	return nil
}

func toSet[T comparable](items []T) map[T]bool {
	if items == nil {
		return nil
	}
	set := make(map[T]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

func anyIn(items []string, set map[string]bool) bool {
	for _, it := range items {
		if set[it] {
			return true
		}
	}
	return false
}
