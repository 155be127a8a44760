package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks request validation failures.
var ErrInvalidRequest = errors.New("invalid content request")

// ValidateRequest rejects requests without a usable keyword or with an
// out-of-range word count.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.Keyword) == "" {
		return fmt.Errorf("%w: keyword cannot be empty", ErrInvalidRequest)
	}
	if req.ContentType == "" {
		return fmt.Errorf("%w: content_type cannot be empty", ErrInvalidRequest)
	}
	if req.WordCount != 0 && (req.WordCount < 300 || req.WordCount > 10000) {
		return fmt.Errorf("%w: word_count must be between 300 and 10000", ErrInvalidRequest)
	}
	return nil
}

// ValidateResearch checks the research stage output shape.
func ValidateResearch(output *ResearchOutput) error {
	if output == nil {
		return errors.New("research output missing")
	}
	var problems []string
	if output.Keyword == "" {
		problems = append(problems, "missing keyword")
	}
	if output.TotalSources < 1 {
		problems = append(problems, "no sources analyzed")
	}
	if len(output.MainTopics) == 0 {
		problems = append(problems, "no topics identified")
	}
	for _, topic := range output.MainTopics {
		if topic.Importance < 0 || topic.Importance > 1 {
			problems = append(problems, fmt.Sprintf("importance out of range for topic %q", topic.Title))
		}
	}
	return joinProblems("research output", problems)
}

// ValidateBrief checks the brief stage output shape.
func ValidateBrief(brief *Brief) error {
	if brief == nil {
		return errors.New("content brief missing")
	}
	var problems []string
	if brief.Keyword == "" {
		problems = append(problems, "missing keyword")
	}
	if len(brief.TitleSuggestions) == 0 {
		problems = append(problems, "missing title suggestions")
	}
	if brief.TargetWordCount < 300 {
		problems = append(problems, "target word count too low")
	}
	if brief.SearchIntent == "" {
		problems = append(problems, "missing search intent")
	}
	if len(brief.Structure) == 0 {
		problems = append(problems, "missing content structure")
	}
	return joinProblems("content brief", problems)
}

// ValidateFacts checks the facts stage output shape.
func ValidateFacts(output *FactsOutput) error {
	if output == nil {
		return errors.New("facts output missing")
	}
	var problems []string
	if output.Keyword == "" {
		problems = append(problems, "missing keyword")
	}
	for _, fact := range output.Facts {
		if fact.RelevanceScore < 0 || fact.RelevanceScore > 1 {
			problems = append(problems, "relevance score out of range")
			break
		}
	}
	return joinProblems("facts output", problems)
}

// ValidateGenerated checks the content stage output shape.
func ValidateGenerated(output *GeneratedContent) error {
	if output == nil {
		return errors.New("generated content missing")
	}
	var problems []string
	if output.Title == "" {
		problems = append(problems, "missing title")
	}
	if len(output.Sections) == 0 {
		problems = append(problems, "no content sections")
	}
	return joinProblems("generated content", problems)
}

func joinProblems(subject string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s validation failed: %s", subject, strings.Join(problems, "; "))
}
