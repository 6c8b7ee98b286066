package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"lingoquest/internal/lesson"
	"lingoquest/internal/logger"
	"lingoquest/internal/validation"
)

// WordFilter reports which of the given words are not allowed in lessons
type WordFilter interface {
	ValidateWords(ctx context.Context, words []string) ([]string, error)
}

// LessonService produces lessons that are always safe to show: generated
// content is repaired and filtered, and anything unusable is replaced by a
// built-in lesson.
type LessonService struct {
	generator lesson.Generator
	filter    WordFilter
	timeout   time.Duration
	log       *logger.Logger
}

// NewLessonService creates a lesson service. generator and filter may be nil.
func NewLessonService(generator lesson.Generator, filter WordFilter, timeout time.Duration, log *logger.Logger) *LessonService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LessonService{
		generator: generator,
		filter:    filter,
		timeout:   timeout,
		log:       log.With("service", "LessonService"),
	}
}

// Generate returns a lesson for topic. Only an invalid topic is an error.
func (s *LessonService) Generate(ctx context.Context, topic string, profile lesson.LearnerProfile) (*lesson.Lesson, error) {
	topic = strings.TrimSpace(topic)
	if err := validation.ValidateTopic(topic); err != nil {
		return nil, err
	}

	if s.filter != nil {
		bad, err := s.filter.ValidateWords(ctx, tokenize(topic))
		if err != nil {
			s.log.Warn("Bad words check failed for topic", "error", err)
			return lesson.FallbackLesson(""), nil
		}
		if len(bad) > 0 {
			s.log.Info("Topic rejected by bad words filter")
			return lesson.FallbackLesson(""), nil
		}
	}

	if s.generator == nil {
		return lesson.FallbackLesson(topic), nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	l, err := s.generator.Generate(genCtx, topic, profile)
	if err != nil {
		s.log.Warn("Lesson generation failed, using fallback", "topic", topic, "error", err)
		return lesson.FallbackLesson(topic), nil
	}

	if err := s.filterLesson(ctx, l); err != nil {
		s.log.Warn("Generated lesson unusable after filtering, using fallback", "topic", topic, "error", err)
		return lesson.FallbackLesson(topic), nil
	}
	return l, nil
}

// filterLesson drops vocabulary and exercises that mention a filtered word,
// strips filtered options, and repairs what is left.
func (s *LessonService) filterLesson(ctx context.Context, l *lesson.Lesson) error {
	if s.filter == nil {
		return nil
	}

	seen := make(map[string]bool)
	var words []string
	collect := func(texts ...string) {
		for _, text := range texts {
			for _, w := range tokenize(text) {
				if !seen[w] {
					seen[w] = true
					words = append(words, w)
				}
			}
		}
	}
	collect(l.Introduction, l.Summary.Congratulations)
	collect(l.Summary.KeyPoints...)
	collect(l.Summary.PracticeWords...)
	for _, v := range l.Vocabulary {
		collect(v.Word, v.Translation, v.Example)
	}
	for _, ex := range l.Exercises {
		collect(ex.Question, ex.CorrectAnswer, ex.Explanation)
		collect(ex.Options...)
		collect(ex.Hints...)
	}

	found, err := s.filter.ValidateWords(ctx, words)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}
	bad := make(map[string]bool, len(found))
	for _, w := range found {
		bad[strings.ToLower(w)] = true
	}
	mentions := func(texts ...string) bool {
		for _, text := range texts {
			for _, w := range tokenize(text) {
				if bad[w] {
					return true
				}
			}
		}
		return false
	}

	if mentions(l.Introduction) {
		l.Introduction = ""
	}
	if mentions(l.Summary.Congratulations) {
		l.Summary.Congratulations = ""
	}
	l.Summary.KeyPoints = keepClean(l.Summary.KeyPoints, mentions)
	l.Summary.PracticeWords = keepClean(l.Summary.PracticeWords, mentions)

	vocab := l.Vocabulary[:0]
	for _, v := range l.Vocabulary {
		if !mentions(v.Word, v.Translation, v.Example) {
			vocab = append(vocab, v)
		}
	}
	l.Vocabulary = vocab

	exercises := l.Exercises[:0]
	for _, ex := range l.Exercises {
		if mentions(ex.Question, ex.CorrectAnswer, ex.Explanation) {
			continue
		}
		ex.Options = keepClean(ex.Options, mentions)
		ex.Hints = keepClean(ex.Hints, mentions)
		exercises = append(exercises, ex)
	}
	l.Exercises = exercises

	s.log.Info("Filtered generated lesson", "topic", l.Topic, "words", len(found))
	return lesson.Repair(l, nil)
}

func keepClean(items []string, mentions func(...string) bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !mentions(item) {
			out = append(out, item)
		}
	}
	return out
}

// tokenize splits text into lower-case words
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
