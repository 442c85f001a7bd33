package udemy

// Raw record shapes for the analytics endpoints this pipeline extracts.
// Fields absent from a response decode to their zero value; downstream
// stages treat that as "empty", never as an error.

type Locale struct {
	Locale string `json:"locale"`
	Title  string `json:"title"`
}

type Instructor struct {
	DisplayName string `json:"display_name"`
}

type Category struct {
	Title string `json:"title"`
}

type Course struct {
	ID                     int64        `json:"id"`
	Title                  string       `json:"title"`
	Headline               string       `json:"headline"`
	Url                    string       `json:"url"`
	InstructionalLevel     string       `json:"instructional_level"`
	Locale                 Locale       `json:"locale"`
	PrimaryCategory        Category     `json:"primary_category"`
	PrimarySubcategory     Category     `json:"primary_subcategory"`
	VisibleInstructors     []Instructor `json:"visible_instructors"`
	EstimatedContentLength int          `json:"estimated_content_length"` // minutes
	NumLectures            int          `json:"num_lectures"`
	NumQuizzes             int          `json:"num_quizzes"`
	AvgRating              float64      `json:"avg_rating"`
	IsPracticeTestCourse   bool         `json:"is_practice_test_course"`
}

type UserCourseActivity struct {
	UserName                string  `json:"user_name"`
	UserSurname             string  `json:"user_surname"`
	UserEmail               string  `json:"user_email"`
	UserRole                string  `json:"user_role"`
	UserIsDeactivated       bool    `json:"user_is_deactivated"`
	CourseID                int64   `json:"course_id"`
	CourseTitle             string  `json:"course_title"`
	CourseCategory          string  `json:"course_category"`
	CompletionRatio         float64 `json:"completion_ratio"`
	NumVideoConsumedMinutes float64 `json:"num_video_consumed_minutes"`
	CourseEnrollDate        string  `json:"course_enroll_date"`
	CourseStartDate         string  `json:"course_start_date"`
	CourseCompletionDate    string  `json:"course_completion_date"`
	LastAccessedDate        string  `json:"last_accessed_date"`
	IsAssigned              bool    `json:"is_assigned"`
	AssignedBy              string  `json:"assigned_by"`
}

type UserActivityItem struct {
	UserEmail          string  `json:"user_email"`
	CourseID           int64   `json:"course_id"`
	CourseTitle        string  `json:"course_title"`
	ItemID             int64   `json:"item_id"`
	ItemType           string  `json:"item_type"`
	ItemTitle          string  `json:"item_title"`
	ItemStartTime      string  `json:"item_start_time"`
	ItemCompletionTime string  `json:"item_completion_time"`
	ItemFinalResult    float64 `json:"item_final_result"`
	ItemMarkedComplete bool    `json:"item_marked_complete"`
}

// Resource is one paginated endpoint walked by the fetcher. Name doubles as
// the page-cache directory and the consolidated dataset file prefix.
type Resource struct {
	Name     string
	Endpoint string
}

var (
	ResourceCourses = Resource{
		Name:     "course",
		Endpoint: "courses/",
	}
	ResourceCourseProgress = Resource{
		Name:     "user_course_progress",
		Endpoint: "analytics/user-course-activity/",
	}
	ResourceActivityItems = Resource{
		Name:     "user_activity_item",
		Endpoint: "analytics/user-activity-item/",
	}
)

// Resources lists every extracted endpoint in processing order.
var Resources = []Resource{
	ResourceCourses,
	ResourceCourseProgress,
	ResourceActivityItems,
}
