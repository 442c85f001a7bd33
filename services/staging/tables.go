package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"coursemetrics/lib/pagestore"
)

// Staged record shapes. Dimensions are deduplicated by natural key; facts
// keep one row per source event.

type Student struct {
	StudentID     string `json:"student_hash"`
	MaskedName    string `json:"full_name_masked"`
	Role          string `json:"role"`
	IsDeactivated bool   `json:"is_deactivated"`
}

type Course struct {
	CourseID      int64   `json:"course_id"`
	Title         string  `json:"title"`
	Headline      string  `json:"headline"`
	Url           string  `json:"url"`
	LanguageCode  string  `json:"language_code"`
	LevelCode     string  `json:"level_code"`
	Category      string  `json:"category"`
	SubCategory   string  `json:"sub_category"`
	Instructor    string  `json:"instructor"`
	DurationHours float64 `json:"duracao_horas"`
	NumLectures   int     `json:"num_lectures"`
	NumQuizzes    int     `json:"num_quizzes"`
	Rating        float64 `json:"rating"`
}

type CourseProgress struct {
	StudentID        string  `json:"student_hash"`
	CourseID         int64   `json:"course_id"`
	CompletionRatio  float64 `json:"completion_ratio"`
	VideoMinutes     float64 `json:"num_video_consumed_minutes"`
	EnrollDate       string  `json:"enroll_date"`
	StartDate        string  `json:"start_date"`
	CompletionDate   string  `json:"completion_date"`
	LastAccessedDate string  `json:"last_accessed_date"`
	IsAssigned       bool    `json:"is_assigned"`
}

type ActivityItem struct {
	StudentID      string  `json:"student_hash"`
	CourseID       int64   `json:"course_id"`
	ItemID         int64   `json:"item_id"`
	ItemType       string  `json:"item_type"`
	ItemTitle      string  `json:"item_title"`
	FinalResult    float64 `json:"final_result"`
	MarkedComplete bool    `json:"marked_complete"`
	CompletionTime string  `json:"completion_time"`
}

type Language struct {
	Code string `json:"language_code"`
	Name string `json:"language_name"`
}

type Level struct {
	Code string `json:"level_code"`
	Name string `json:"level_name"`
}

type Category struct {
	Name string `json:"category"`
}

type SubCategory struct {
	Name     string `json:"sub_category"`
	Category string `json:"category"`
}

type Instructor struct {
	Name string `json:"instructor"`
}

// Tables holds one transformation run's full output.
type Tables struct {
	Students       []Student
	Courses        []Course
	CourseProgress []CourseProgress
	ActivityItems  []ActivityItem
	Languages      []Language
	Levels         []Level
	Categories     []Category
	SubCategories  []SubCategory
	Instructors    []Instructor
}

// TableDef declares a staged table's name and column order. TableOrder is
// the single source of truth for processing order everywhere downstream
// (files, sheets, mart tables); nothing depends on directory listing order.
type TableDef struct {
	Name    string
	Columns []string
}

var TableOrder = []TableDef{
	{"stg_students", []string{"student_hash", "full_name_masked", "role", "is_deactivated"}},
	{"stg_courses", []string{"course_id", "title", "headline", "url", "language_code", "level_code", "category", "sub_category", "instructor", "duracao_horas", "num_lectures", "num_quizzes", "rating"}},
	{"stg_course_progress", []string{"student_hash", "course_id", "completion_ratio", "num_video_consumed_minutes", "enroll_date", "start_date", "completion_date", "last_accessed_date", "is_assigned"}},
	{"stg_activity_items", []string{"student_hash", "course_id", "item_id", "item_type", "item_title", "final_result", "marked_complete", "completion_time"}},
	{"stg_languages", []string{"language_code", "language_name"}},
	{"stg_levels", []string{"level_code", "level_name"}},
	{"stg_categories", []string{"category"}},
	{"stg_sub_categories", []string{"sub_category", "category"}},
	{"stg_instructors", []string{"instructor"}},
}

// Cells flattens one table into rows of plain values in TableOrder column
// order, for consumers that render or load tables generically.
func (t *Tables) Cells(name string) [][]any {
	var rows [][]any
	switch name {
	case "stg_students":
		for _, r := range t.Students {
			rows = append(rows, []any{r.StudentID, r.MaskedName, r.Role, r.IsDeactivated})
		}
	case "stg_courses":
		for _, r := range t.Courses {
			rows = append(rows, []any{r.CourseID, r.Title, r.Headline, r.Url, r.LanguageCode, r.LevelCode, r.Category, r.SubCategory, r.Instructor, r.DurationHours, r.NumLectures, r.NumQuizzes, r.Rating})
		}
	case "stg_course_progress":
		for _, r := range t.CourseProgress {
			rows = append(rows, []any{r.StudentID, r.CourseID, r.CompletionRatio, r.VideoMinutes, r.EnrollDate, r.StartDate, r.CompletionDate, r.LastAccessedDate, r.IsAssigned})
		}
	case "stg_activity_items":
		for _, r := range t.ActivityItems {
			rows = append(rows, []any{r.StudentID, r.CourseID, r.ItemID, r.ItemType, r.ItemTitle, r.FinalResult, r.MarkedComplete, r.CompletionTime})
		}
	case "stg_languages":
		for _, r := range t.Languages {
			rows = append(rows, []any{r.Code, r.Name})
		}
	case "stg_levels":
		for _, r := range t.Levels {
			rows = append(rows, []any{r.Code, r.Name})
		}
	case "stg_categories":
		for _, r := range t.Categories {
			rows = append(rows, []any{r.Name})
		}
	case "stg_sub_categories":
		for _, r := range t.SubCategories {
			rows = append(rows, []any{r.Name, r.Category})
		}
	case "stg_instructors":
		for _, r := range t.Instructors {
			rows = append(rows, []any{r.Name})
		}
	}
	return rows
}

func tablePath(dir, name string) string {
	return filepath.Join(dir, name+".json")
}

// Write persists every staged table as `<dir>/<name>.json`, full overwrite,
// each file written atomically.
func (t *Tables) Write(dir string) error {
	files := []struct {
		name string
		v    any
	}{
		{"stg_students", t.Students},
		{"stg_courses", t.Courses},
		{"stg_course_progress", t.CourseProgress},
		{"stg_activity_items", t.ActivityItems},
		{"stg_languages", t.Languages},
		{"stg_levels", t.Levels},
		{"stg_categories", t.Categories},
		{"stg_sub_categories", t.SubCategories},
		{"stg_instructors", t.Instructors},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return err
		}
		// an empty table is an empty list, not null
		if string(data) == "null" {
			data = []byte("[]")
		}
		if err := pagestore.WriteAtomic(tablePath(dir, f.name), data); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

// Read loads previously staged tables back from disk for the publish and
// mart-load stages.
func Read(dir string) (*Tables, error) {
	t := &Tables{}
	files := []struct {
		name string
		v    any
	}{
		{"stg_students", &t.Students},
		{"stg_courses", &t.Courses},
		{"stg_course_progress", &t.CourseProgress},
		{"stg_activity_items", &t.ActivityItems},
		{"stg_languages", &t.Languages},
		{"stg_levels", &t.Levels},
		{"stg_categories", &t.Categories},
		{"stg_sub_categories", &t.SubCategories},
		{"stg_instructors", &t.Instructors},
	}
	for _, f := range files {
		data, err := os.ReadFile(tablePath(dir, f.name))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingUpstream, f.name)
		}
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, f.v); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
	}
	return t, nil
}
