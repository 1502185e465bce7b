package model

// InsightReport is the JSON shape the completion API is instructed to emit.
// The generator parses the model's output into this struct — both to check
// structurally that the response honoured the schema, and so downstream
// consumers (the card projection) work with typed fields instead of digging
// through map[string]any.
//
// The shape mirrors the instruction block in the prompt exactly; if one
// changes, the other must change with it.
type InsightReport struct {
	Summary      Summary      `json:"summary"`
	Skills       Skills       `json:"skills"`
	Insights     Insights     `json:"insights"`
	Metrics      Metrics      `json:"metrics"`
	CareerPath   CareerPath   `json:"careerPath"`
	PlatformData PlatformData `json:"platformData"`
}

type Summary struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	YearOfExperience string `json:"yearOfExperience"`
}

type Skills struct {
	Languages       []string `json:"languages"`
	Frameworks      []string `json:"frameworks"`
	Tools           []string `json:"tools"`
	Specializations []string `json:"specializations"`
}

type Insights struct {
	Code   CodeInsights   `json:"code"`
	Social SocialInsights `json:"social"`
}

type CodeInsights struct {
	Strengths         []string `json:"strengths"`
	Improvements      []string `json:"improvements"`
	Recommendations   []string `json:"recommendations"`
	ProjectHighlights []string `json:"projectHighlights"`
}

type SocialInsights struct {
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
	Highlights      []string `json:"highlights"`
}

type Metrics struct {
	GitHubActivity       float64 `json:"githubActivity"`
	CodingProficiency    float64 `json:"codingProficiency"`
	ProfessionalPresence float64 `json:"professionalPresence"`
	SocialEngagement     float64 `json:"socialEngagement"`
	OverallScore         float64 `json:"overallScore"`
	ActivityLevel        string  `json:"activityLevel"` // e.g. "low", "moderate", "high"
	CollaborationScore   float64 `json:"collaborationScore"`
}

type CareerPath struct {
	CurrentLevel        string   `json:"currentLevel"`
	NextSteps           []string `json:"nextSteps"`
	RoleRecommendations []string `json:"roleRecommendations"`
	SalaryRange         string   `json:"salaryRange"`
}

type PlatformData struct {
	ConnectedPlatforms []string `json:"connectedPlatforms"`
	CodeScore          float64  `json:"codeScore"`
	SocialScore        float64  `json:"socialScore"`
}
