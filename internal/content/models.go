package content

import "strings"

// Request is the client input for one content generation run.
type Request struct {
	Keyword           string   `json:"keyword" binding:"required"`
	SecondaryKeywords []string `json:"secondary_keywords,omitempty"`
	ContentType       string   `json:"content_type" binding:"required"`
	TargetAudience    string   `json:"target_audience,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	WordCount         int      `json:"word_count,omitempty" binding:"omitempty,min=300,max=10000"`
	BrandVoice        string   `json:"brand_voice,omitempty"`
	ExtraInstructions string   `json:"extra_instructions,omitempty"`
}

// Normalize trims the keyword and applies defaults.
func (r *Request) Normalize() {
	r.Keyword = strings.TrimSpace(r.Keyword)
	if r.Tone == "" {
		r.Tone = "professional"
	}
	if r.WordCount == 0 {
		r.WordCount = 1500
	}
}

// Topic is one subject surfaced by competitive research.
type Topic struct {
	Title         string   `json:"title"`
	Frequency     int      `json:"frequency"`
	Importance    float64  `json:"importance"`
	CommonPhrases []string `json:"common_phrases,omitempty"`
	Sources       []string `json:"sources,omitempty"`
}

// ResearchOutput is the research stage result.
type ResearchOutput struct {
	Keyword            string   `json:"keyword"`
	SearchIntent       string   `json:"search_intent,omitempty"`
	TotalSources       int      `json:"total_sources"`
	TotalWordsAnalyzed int      `json:"total_words_analyzed"`
	MainTopics         []Topic  `json:"main_topics"`
	StructurePatterns  []string `json:"structure_patterns,omitempty"`
	AuthoritySignals   []string `json:"authority_signals,omitempty"`
}

// BriefSection is one recommended section of the planned content.
type BriefSection struct {
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	SuggestedHeading string   `json:"suggested_heading,omitempty"`
	KeyPoints        []string `json:"key_points,omitempty"`
	WordCount        int      `json:"word_count"`
	Importance       float64  `json:"importance"`
}

// Brief is the brief stage result.
type Brief struct {
	Keyword          string         `json:"keyword"`
	TitleSuggestions []string       `json:"title_suggestions"`
	TargetWordCount  int            `json:"target_word_count"`
	TargetAudience   string         `json:"target_audience,omitempty"`
	SearchIntent     string         `json:"search_intent"`
	Structure        []BriefSection `json:"structure"`
	Differentiation  string         `json:"differentiation,omitempty"`
	GapAnalysis      string         `json:"gap_analysis,omitempty"`
}

// Fact is one statistic or claim gathered for the content.
type Fact struct {
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	Date           string  `json:"date,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
	RelatedTopic   string  `json:"related_topic,omitempty"`
}

// FactsOutput is the facts stage result.
type FactsOutput struct {
	Keyword            string   `json:"keyword"`
	Facts              []Fact   `json:"facts"`
	RecentDevelopments []string `json:"recent_developments,omitempty"`
}

// Section is one written section of the final content.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// GeneratedContent is the content stage result.
type GeneratedContent struct {
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	Sections        []Section `json:"sections"`
	WordCount       int       `json:"word_count"`
	Tags            []string  `json:"tags,omitempty"`
}

// FullContent assembles the markdown document.
func (g GeneratedContent) FullContent() string {
	var builder strings.Builder
	builder.WriteString("# ")
	builder.WriteString(g.Title)
	builder.WriteString("\n\n")
	for _, section := range g.Sections {
		builder.WriteString("## ")
		builder.WriteString(section.Heading)
		builder.WriteString("\n\n")
		builder.WriteString(section.Body)
		builder.WriteString("\n\n")
	}
	return builder.String()
}
