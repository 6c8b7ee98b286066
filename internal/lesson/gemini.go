package lesson

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"lingoquest/internal/gemini"
)

const systemPrompt = `You write short, cheerful Spanish lessons for children.
Answer with a single JSON object with the fields introduction, vocabulary
(word, translation, phonetic, example), exercises (type, question, options,
correctAnswer, hints, explanation, experienceReward) and summary
(congratulations, keyPoints, practiceWords). Every exercise has 4 options.`

// GeminiClient generates lessons with a Gemini text model.
type GeminiClient struct {
	client *gemini.Client
	model  string
}

// NewGeminiClient creates a lesson generator that calls model through client
func NewGeminiClient(client *gemini.Client, model string) *GeminiClient {
	return &GeminiClient{client: client, model: model}
}

// Generate asks the model for a lesson on topic pitched at profile, then
// repairs the reply so every exercise is answerable.
func (g *GeminiClient) Generate(ctx context.Context, topic string, profile LearnerProfile) (*Lesson, error) {
	temperature := 0.7
	req := &gemini.GenerateContentRequest{
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: systemPrompt}}},
		Contents: []gemini.Content{{
			Role:  "user",
			Parts: []gemini.Part{{Text: userPrompt(topic, profile)}},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			ResponseMimeType: "application/json",
			Temperature:      &temperature,
		},
	}

	resp, err := g.client.GenerateContent(ctx, g.model, req)
	if err != nil {
		return nil, fmt.Errorf("generate lesson: %w", err)
	}

	l, err := Parse([]byte(resp.Text()), topic, nil)
	if err != nil {
		return nil, err
	}
	l.ID = uuid.NewString()
	l.Topic = topic
	return l, nil
}

func userPrompt(topic string, profile LearnerProfile) string {
	name := profile.Name
	if name == "" {
		name = "a young learner"
	}
	return fmt.Sprintf("Create a lesson about %q for %s in grade %d. Use 4 to 6 vocabulary words and 3 to 5 exercises.",
		topic, name, profile.GradeLevel)
}
