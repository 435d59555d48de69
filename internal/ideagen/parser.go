package ideagen

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/buildmate/internal/models"
)

const (
	fallbackTitle         = "Untitled Idea"
	fallbackDescription   = "No description available"
	fallbackTechUsed      = "Not specified"
	fallbackLearningFocus = "General Android development"
)

// blockSeparator is a paragraph break: a newline, optional whitespace, then one or more newlines.
var blockSeparator = regexp.MustCompile(`\n\s*\n+`)

type field int

const (
	fieldNone field = iota
	fieldTitle
	fieldDescription
	fieldDifficulty
	fieldTechUsed
	fieldLearningFocus
)

// labelPrefixes are checked in order; matching is case-insensitive and includes the colon.
var labelPrefixes = []struct {
	prefix string
	field  field
}{
	{strings.ToLower(LabelTitle) + ":", fieldTitle},
	{strings.ToLower(LabelDescription) + ":", fieldDescription},
	{strings.ToLower(LabelDifficulty) + ":", fieldDifficulty},
	{"techused:", fieldTechUsed},
	{"tech used:", fieldTechUsed},
	{"learningfocus:", fieldLearningFocus},
	{"learning focus:", fieldLearningFocus},
}

// Parser converts raw model output into ideas.
type Parser struct {
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// NewParser returns a Parser stamping ideas with the wall clock.
func NewParser(l logrus.FieldLogger) *Parser {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Parser{Now: time.Now, Logger: l}
}

var defaultParser = NewParser(nil)

// Parse splits raw into paragraph blocks and builds one idea per non-empty block, in order.
// Blank input yields an empty slice.
func Parse(raw, userID string, skillID int64) []models.Idea {
	return defaultParser.Parse(raw, userID, skillID)
}

func (p *Parser) Parse(raw, userID string, skillID int64) []models.Idea {
	out := []models.Idea{}
	if strings.TrimSpace(raw) == "" {
		p.Logger.Warn("raw text is blank, no ideas parsed")
		return out
	}

	blocks := blockSeparator.Split(raw, -1)
	p.Logger.WithField("blocks", len(blocks)).Debug("parsing idea blocks")

	for i, block := range blocks {
		idea, ok, err := p.parseBlock(block, userID, skillID)
		if err != nil {
			p.Logger.WithError(err).WithField("block", i).Error("skipping unparseable block")
			continue
		}
		if !ok {
			continue
		}
		out = append(out, idea)
	}

	p.Logger.WithField("ideas", len(out)).Debug("parsed ideas")
	return out
}

func (p *Parser) parseBlock(block, userID string, skillID int64) (idea models.Idea, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("parse block: %v", r)
		}
	}()

	lines := nonEmptyLines(block)
	if len(lines) == 0 {
		return models.Idea{}, false, nil
	}

	var title, description, difficulty, techUsed, learningFocus string
	for _, line := range lines {
		f, value := matchLabel(line)
		switch f {
		case fieldTitle:
			title = value
		case fieldDescription:
			description = value
		case fieldDifficulty:
			difficulty = value
		case fieldTechUsed:
			techUsed = value
		case fieldLearningFocus:
			learningFocus = value
		}
	}

	if strings.TrimSpace(title) == "" {
		title = fallbackTitle
		if len(lines) > 0 {
			title = lines[0]
		}
	}
	if strings.TrimSpace(description) == "" {
		description = fallbackDescription
		if len(lines) > 1 {
			description = lines[1]
		}
	}
	if strings.TrimSpace(techUsed) == "" {
		techUsed = fallbackTechUsed
	}
	if strings.TrimSpace(learningFocus) == "" {
		learningFocus = fallbackLearningFocus
	}

	return models.Idea{
		UserID:        userID,
		SkillID:       skillID,
		IdeaTitle:     title,
		Description:   description,
		Difficulty:    NormalizeDifficulty(difficulty),
		TechUsed:      techUsed,
		LearningFocus: learningFocus,
		CreatedAt:     p.Now(),
	}, true, nil
}

// NormalizeDifficulty collapses free text into Easy, Intermediate or Hard, checked in that order.
// Anything unrecognised is Intermediate.
func NormalizeDifficulty(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "easy"):
		return models.DifficultyEasy
	case strings.Contains(lower, "intermediate"):
		return models.DifficultyIntermediate
	case strings.Contains(lower, "hard"):
		return models.DifficultyHard
	default:
		return models.DifficultyIntermediate
	}
}

func matchLabel(line string) (field, string) {
	lower := strings.ToLower(line)
	for _, l := range labelPrefixes {
		if strings.HasPrefix(lower, l.prefix) {
			_, value, _ := strings.Cut(line, ":")
			return l.field, strings.TrimSpace(value)
		}
	}
	return fieldNone, ""
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
