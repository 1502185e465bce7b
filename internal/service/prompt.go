package service

import (
	"strings"

	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/platform"
)

// notConnectedMarker is what the prompt shows for a platform the user has
// not linked. The model is told to reason only from the data present, so
// the marker has to be unambiguous rather than an empty object.
const notConnectedMarker = "Not connected"

// reportSchema is the exact JSON shape the model must return. Kept as a
// literal so the instruction block and ai.ParseReport's expectations can't
// drift apart silently.
const reportSchema = `{
  "summary": {"title": "", "description": "", "yearOfExperience": ""},
  "skills": {"languages": [], "frameworks": [], "tools": [], "specializations": []},
  "insights": {
    "code": {"strengths": [], "improvements": [], "recommendations": [], "projectHighlights": []},
    "social": {"strengths": [], "improvements": [], "recommendations": [], "highlights": []}
  },
  "metrics": {
    "githubActivity": 0, "codingProficiency": 0, "professionalPresence": 0,
    "socialEngagement": 0, "overallScore": 0, "collaborationScore": 0,
    "activityLevel": ""
  },
  "careerPath": {"currentLevel": "", "salaryRange": "", "nextSteps": [], "roleRecommendations": []},
  "platformData": {"connectedPlatforms": [], "codeScore": 0, "socialScore": 0}
}`

// BuildInsightPrompt assembles the completion prompt from the user's
// platform payloads.
//
// Sections appear in the fixed platform.All() order regardless of when the
// user connected each platform, so the same data always produces the same
// prompt. Connected platforms contribute their raw stored payload; the rest
// get the "Not connected" marker.
func BuildInsightPrompt(conns []model.PlatformConnection) string {
	byPlatform := make(map[platform.Type]model.PlatformConnection, len(conns))
	for _, conn := range conns {
		byPlatform[platform.Type(conn.Platform)] = conn
	}

	var b strings.Builder
	b.WriteString("You are a career analyst for software developers. ")
	b.WriteString("Analyze the developer's presence across the platforms below and produce a portfolio insight report.\n\n")

	for _, p := range platform.All() {
		b.WriteString("### ")
		b.WriteString(p.DisplayName())
		b.WriteString("\n")
		if conn, ok := byPlatform[p]; ok && len(conn.Payload) > 0 {
			b.Write(conn.Payload)
		} else {
			b.WriteString(notConnectedMarker)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("Base every statement strictly on the data above. ")
	b.WriteString("Treat platforms marked \"Not connected\" as absent: do not invent activity for them, ")
	b.WriteString("and reflect the missing signal in the relevant scores.\n\n")
	b.WriteString("Respond with a JSON object matching this schema exactly:\n")
	b.WriteString(reportSchema)
	b.WriteString("\n\nScores are numbers from 0 to 100. ")
	b.WriteString("Return ONLY valid JSON. No markdown, no code fences, no commentary.")

	return b.String()
}
