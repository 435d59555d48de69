// Package ideagen turns a skill profile into a generation prompt and turns the model's free-form reply back
// into structured ideas. Both halves share the label contract below; changing a label breaks the other side.
package ideagen

import (
	"strings"

	"github.com/yoockh/buildmate/internal/models"
)

// Labels the model is told to emit, one per line.
const (
	LabelTitle         = "Title"
	LabelDescription   = "Description"
	LabelDifficulty    = "Difficulty"
	LabelTechUsed      = "TechUsed"
	LabelLearningFocus = "LearningFocus"
)

const promptTemplate = `You are an expert Software developer who suggests innovative project ideas for learners.

User Profile:
- Tech Stack: {{tech_stack}}
- Libraries/Tools Known: {{libraries}}
- Experience Level: {{experience}}
- Learning Goal: {{goal}} even if learning goal is not mention you give them a learning goal according to their skills which he mentioned.
- Additional Context: {{notes}}

Your task: Generate exactly 1 unique, practical, and engaging any software project like android app, cross platform app , website , api , webpages, Animations , automations , use in hardware devices etc. idea that:
1. Matches their experience level ({{experience}})
2. Uses their preferred tech stack and libraries
3. Helps them achieve their learning goal

Output EXACTLY this format (with these exact labels):
Title: [Creative app name]
Description: [2-3 sentences explaining what the app does and why it's useful]
Difficulty: [Easy/Intermediate/Hard]
TechUsed: [List the specific libraries, frameworks, and technologies from their stack that would be used]
LearningFocus: [The key skills and concepts they'll learn from building this project]

Make the idea practical, achievable, and perfectly aligned with their stated goal.`

// BuildPrompt renders the instruction sent to the model for one skill profile.
func BuildPrompt(skill models.UserSkill) string {
	libraries := "None specified"
	if len(skill.Libraries) > 0 {
		libraries = strings.Join(skill.Libraries, ", ")
	}
	notes := "None"
	if skill.AdditionalNotes != nil {
		notes = *skill.AdditionalNotes
	}

	r := strings.NewReplacer(
		"{{tech_stack}}", skill.TechStack,
		"{{libraries}}", libraries,
		"{{experience}}", skill.ExperienceLevel,
		"{{goal}}", skill.Goal,
		"{{notes}}", notes,
	)
	return r.Replace(promptTemplate)
}
