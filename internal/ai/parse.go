package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/model"
)

// StripCodeFences removes a surrounding Markdown code block from the model's
// output. Models frequently answer
//
//	```json
//	{ ... }
//	```
//
// even when told to return bare JSON, so the parser has to accept both
// shapes. Only a LEADING fence is honoured: a ``` appearing in the middle of
// otherwise-bare output is content, not wrapping.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line, including any language tag ("json").
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			// A one-line "```json {...} ```" — strip the markers directly.
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	return s
}

// ParseReport turns the model's raw text output into a validated report.
//
// It returns BOTH the typed struct and the cleaned raw bytes: the snapshot
// stores the bytes verbatim (so nothing the model said is lost), while the
// struct is used for the structural check here and the card projection later.
//
// STRUCTURAL VALIDATION:
// encoding/json fills missing fields with zero values rather than failing,
// so a syntactically-valid-but-wrong response ({"ok":true}) would otherwise
// slip through. We require the sections a report cannot function without;
// beyond that the model gets latitude.
func ParseReport(raw string) (*model.InsightReport, json.RawMessage, error) {
	cleaned := StripCodeFences(raw)

	var report model.InsightReport
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return nil, nil, apperror.MalformedAIResponse(
			fmt.Sprintf("model output is not valid JSON: %v", err))
	}

	if report.Summary.Title == "" && report.Summary.Description == "" {
		return nil, nil, apperror.MalformedAIResponse("model output is missing the summary section")
	}
	if len(report.Skills.Languages) == 0 && len(report.Skills.Frameworks) == 0 &&
		len(report.Skills.Tools) == 0 && len(report.Skills.Specializations) == 0 {
		return nil, nil, apperror.MalformedAIResponse("model output is missing the skills section")
	}

	return &report, json.RawMessage(cleaned), nil
}
