package staging

import (
	"context"
	"encoding/json"
	"testing"

	"coursemetrics/lib/pagestore"
	"coursemetrics/lib/platforms/udemy"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeDataset(t *testing.T, store pagestore.Store, res udemy.Resource, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, pagestore.WriteAtomic(store.DatasetPath(res.Name), data))
}

func seedStore(t *testing.T) pagestore.Store {
	store := pagestore.NewStore(t.TempDir())

	writeDataset(t, store, udemy.ResourceCourses, []udemy.Course{
		{
			ID:                     101,
			Title:                  "Go do zero",
			InstructionalLevel:     "Beginner Level",
			Locale:                 udemy.Locale{Locale: "pt_BR", Title: "Português"},
			PrimaryCategory:        udemy.Category{Title: "Development"},
			PrimarySubcategory:     udemy.Category{Title: "Programming Languages"},
			VisibleInstructors:     []udemy.Instructor{{DisplayName: "Marina Costa"}},
			EstimatedContentLength: 90,
		},
		{
			ID:                 102,
			Title:              "SQL avançado",
			InstructionalLevel: "Beginner Level",
			Locale:             udemy.Locale{Locale: "pt_BR", Title: "Português"},
			PrimaryCategory:    udemy.Category{Title: "Development"},
			PrimarySubcategory: udemy.Category{Title: "Databases"},
			VisibleInstructors: []udemy.Instructor{{DisplayName: "Paulo Reis"}},
		},
	})
	writeDataset(t, store, udemy.ResourceCourseProgress, []udemy.UserCourseActivity{
		{UserEmail: "Alice@Example.com", UserRole: "student", CourseID: 101, CompletionRatio: 80},
		{UserEmail: "bob@example.com", UserRole: "student", CourseID: 101, CompletionRatio: 20},
		{UserEmail: "alice@example.com", UserRole: "student", CourseID: 102, CompletionRatio: 5},
	})
	writeDataset(t, store, udemy.ResourceActivityItems, []udemy.UserActivityItem{
		{UserEmail: " alice@example.com ", CourseID: 101, ItemID: 9001, ItemType: "lecture"},
		{UserEmail: "bob@example.com", CourseID: 101, ItemID: 9002, ItemType: "quiz"},
	})

	return store
}

func TestTransformIdentityConsistency(t *testing.T) {
	store := seedStore(t)
	tables, err := NewTransformer(store, true).Transform(context.Background())
	require.NoError(t, err)

	// alice appears in both fact sources; her id must match everywhere
	require.Len(t, tables.Students, 2)
	alice := tables.Students[0]
	require.Equal(t, "Aluno 01", alice.MaskedName)
	require.Equal(t, alice.StudentID, tables.CourseProgress[0].StudentID)
	require.Equal(t, alice.StudentID, tables.CourseProgress[2].StudentID)
	require.Equal(t, alice.StudentID, tables.ActivityItems[0].StudentID)

	bob := tables.Students[1]
	require.Equal(t, "Aluno 02", bob.MaskedName)
	require.Equal(t, bob.StudentID, tables.ActivityItems[1].StudentID)
	require.NotEqual(t, alice.StudentID, bob.StudentID)

	// digests, not emails
	require.Len(t, alice.StudentID, 64)
}

func TestTransformIdentifiedMode(t *testing.T) {
	store := seedStore(t)
	tables, err := NewTransformer(store, false).Transform(context.Background())
	require.NoError(t, err)

	require.Equal(t, "alice@example.com", tables.Students[0].StudentID)
	require.Empty(t, tables.Students[0].MaskedName)
	require.Equal(t, "alice@example.com", tables.ActivityItems[0].StudentID)
}

func TestTransformDimensionDedup(t *testing.T) {
	store := seedStore(t)
	tables, err := NewTransformer(store, true).Transform(context.Background())
	require.NoError(t, err)

	// both courses share pt_BR, Development, Beginner Level
	require.Len(t, tables.Languages, 1)
	require.Equal(t, Language{Code: "pt_BR", Name: "Português"}, tables.Languages[0])
	require.Len(t, tables.Levels, 1)
	require.Equal(t, "beginner_level", tables.Levels[0].Code)
	require.Len(t, tables.Categories, 1)
	require.Len(t, tables.SubCategories, 2)
	require.Len(t, tables.Instructors, 2)

	// facts are not deduplicated
	require.Len(t, tables.CourseProgress, 3)
	require.Len(t, tables.ActivityItems, 2)
}

func TestTransformCourseDerivedFields(t *testing.T) {
	store := seedStore(t)
	tables, err := NewTransformer(store, true).Transform(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1.5, tables.Courses[0].DurationHours)
	require.Equal(t, "Marina Costa", tables.Courses[0].Instructor)
	require.Equal(t, "pt_BR", tables.Courses[0].LanguageCode)
}

func TestTransformMissingUpstream(t *testing.T) {
	store := pagestore.NewStore(t.TempDir())
	_, err := NewTransformer(store, true).Transform(context.Background())
	require.ErrorIs(t, err, ErrMissingUpstream)
}

func TestTablesWriteReadRoundtrip(t *testing.T) {
	store := seedStore(t)
	tables, err := NewTransformer(store, true).Transform(context.Background())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, tables.Write(dir))
	loaded, err := Read(dir)
	require.NoError(t, err)

	if diff := cmp.Diff(tables, loaded); diff != "" {
		t.Fatalf("staged tables changed across write/read (-want +got):\n%s", diff)
	}
}

func TestReadMissingStagedTable(t *testing.T) {
	_, err := Read(t.TempDir())
	require.ErrorIs(t, err, ErrMissingUpstream)
}

func TestCellsMatchTableOrder(t *testing.T) {
	store := seedStore(t)
	tables, err := NewTransformer(store, true).Transform(context.Background())
	require.NoError(t, err)

	for _, def := range TableOrder {
		rows := tables.Cells(def.Name)
		require.NotEmpty(t, rows, def.Name)
		for _, row := range rows {
			require.Len(t, row, len(def.Columns), def.Name)
		}
	}
}
