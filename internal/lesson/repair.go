package lesson

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
)

var genericFillers = []string{"None of these", "I'm not sure", "All of these", "Something else", "Maybe later"}

// Parse decodes a generated payload and repairs it. Markdown code fences
// around the JSON are tolerated.
func Parse(raw []byte, topic string, rng *rand.Rand) (*Lesson, error) {
	body := strings.TrimSpace(string(raw))
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var l Lesson
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrepairable, err)
	}
	if l.Topic == "" {
		l.Topic = topic
	}
	if err := Repair(&l, rng); err != nil {
		return nil, err
	}
	return &l, nil
}

// Repair normalizes a lesson in place so that every exercise has exactly
// four distinct options containing the correct answer. Exercises without a
// question or an answer are dropped. It returns ErrUnrepairable when no
// exercise survives. A nil rng uses the global source.
func Repair(l *Lesson, rng *rand.Rand) error {
	vocab := l.Vocabulary[:0]
	for _, v := range l.Vocabulary {
		v.Word = strings.TrimSpace(v.Word)
		if v.Word == "" {
			continue
		}
		vocab = append(vocab, v)
	}
	l.Vocabulary = vocab

	exercises := l.Exercises[:0]
	for _, ex := range l.Exercises {
		if repairExercise(&ex, l.Vocabulary, rng) {
			exercises = append(exercises, ex)
		}
	}
	l.Exercises = exercises
	if len(l.Exercises) == 0 {
		return ErrUnrepairable
	}

	if strings.TrimSpace(l.Introduction) == "" {
		l.Introduction = fmt.Sprintf("Let's learn about %s!", l.Topic)
	}
	if l.Summary.Congratulations == "" {
		l.Summary.Congratulations = "Great job finishing this lesson!"
	}
	if l.Summary.KeyPoints == nil {
		l.Summary.KeyPoints = []string{}
	}
	if len(l.Summary.PracticeWords) == 0 {
		words := make([]string, 0, len(l.Vocabulary))
		for _, v := range l.Vocabulary {
			words = append(words, v.Word)
		}
		l.Summary.PracticeWords = words
	}
	return nil
}

func repairExercise(ex *Exercise, vocab []VocabularyItem, rng *rand.Rand) bool {
	ex.Question = strings.TrimSpace(ex.Question)
	ex.CorrectAnswer = strings.TrimSpace(ex.CorrectAnswer)
	if ex.Question == "" || ex.CorrectAnswer == "" {
		return false
	}
	if ex.Type == "" {
		ex.Type = DefaultExerciseType
	}
	if ex.ExperienceReward <= 0 {
		ex.ExperienceReward = DefaultExerciseReward
	}
	if ex.Hints == nil {
		ex.Hints = []string{}
	}

	if optionsValid(ex.Options, ex.CorrectAnswer) {
		return true
	}

	seen := map[string]bool{normalize(ex.CorrectAnswer): true}
	distractors := make([]string, 0, OptionCount-1)
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		key := normalize(candidate)
		if candidate == "" || seen[key] || len(distractors) == OptionCount-1 {
			return
		}
		seen[key] = true
		distractors = append(distractors, candidate)
	}

	for _, o := range ex.Options {
		add(o)
	}
	for _, v := range vocab {
		add(v.Word)
		add(v.Translation)
	}
	for _, f := range genericFillers {
		add(f)
	}

	pos := intN(rng, OptionCount)
	options := make([]string, 0, OptionCount)
	options = append(options, distractors[:pos]...)
	options = append(options, ex.CorrectAnswer)
	options = append(options, distractors[pos:]...)
	ex.Options = options
	return true
}

func optionsValid(options []string, answer string) bool {
	if len(options) != OptionCount {
		return false
	}
	seen := make(map[string]bool, len(options))
	hasAnswer := false
	for _, o := range options {
		key := normalize(o)
		if key == "" || seen[key] {
			return false
		}
		seen[key] = true
		if o == answer {
			hasAnswer = true
		}
	}
	return hasAnswer
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
