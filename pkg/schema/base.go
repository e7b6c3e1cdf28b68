package schema

// QuestionType represents how a question is answered.
type QuestionType string

const (
	QuestionRating     QuestionType = "rating"     // 1-5 scale unless options override it
	QuestionBoolean    QuestionType = "boolean"    // No/Yes mapped to numeric option values
	QuestionPercentage QuestionType = "percentage" // percentage bands mapped to numeric option values
	QuestionOpen       QuestionType = "open"       // free text, never scored
)

// Unanswered is the sentinel value of a numeric answer that was left blank.
const Unanswered = 0

// ValidationLimits defines the constraints for various fields.
const (
	RatingMin              = 1
	RatingMax              = 5
	TierCount              = 5
	SchoolNameMax          = 200
	CityMax                = 100
	RoleMax                = 100
	OpenAnswerMax          = 2000
	QuestionCategoryMax    = 60
	RecommendationMin      = 10
	RecommendationMax      = 2000
	DefaultCollectionName  = "assessments"
	DefaultRecentLimit     = 10
	DefaultDashboardLimit  = 50
	DefaultScoreBucketSize = 5
)
