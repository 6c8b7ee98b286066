package lesson

import (
	"fmt"
	"strings"
)

type template struct {
	vocabulary []VocabularyItem
	exercises  []Exercise
	keyPoints  []string
}

var templates = map[string]template{
	"colors": {
		vocabulary: []VocabularyItem{
			{Word: "rojo", Translation: "red", Phonetic: "ROH-hoh", Example: "La manzana es roja."},
			{Word: "azul", Translation: "blue", Phonetic: "ah-SOOL", Example: "El cielo es azul."},
			{Word: "verde", Translation: "green", Phonetic: "BEHR-deh", Example: "La hoja es verde."},
			{Word: "amarillo", Translation: "yellow", Phonetic: "ah-mah-REE-yoh", Example: "El sol es amarillo."},
		},
		exercises: []Exercise{
			{Question: "What does \"rojo\" mean?", Options: []string{"blue", "red", "green", "yellow"}, CorrectAnswer: "red",
				Hints: []string{"Think of a ripe apple."}, Explanation: "\"Rojo\" is the color red."},
			{Question: "How do you say \"blue\"?", Options: []string{"verde", "amarillo", "azul", "rojo"}, CorrectAnswer: "azul",
				Hints: []string{"The sky has this color."}, Explanation: "\"Azul\" means blue."},
			{Question: "Which word means \"green\"?", Options: []string{"verde", "rojo", "azul", "amarillo"}, CorrectAnswer: "verde",
				Hints: []string{"Leaves are this color."}, Explanation: "\"Verde\" means green."},
		},
		keyPoints: []string{"Colors usually come after the noun.", "Colors change ending to match the noun."},
	},
	"animals": {
		vocabulary: []VocabularyItem{
			{Word: "perro", Translation: "dog", Phonetic: "PEH-rroh", Example: "El perro corre."},
			{Word: "gato", Translation: "cat", Phonetic: "GAH-toh", Example: "El gato duerme."},
			{Word: "pájaro", Translation: "bird", Phonetic: "PAH-hah-roh", Example: "El pájaro canta."},
			{Word: "pez", Translation: "fish", Phonetic: "pehs", Example: "El pez nada."},
		},
		exercises: []Exercise{
			{Question: "What does \"perro\" mean?", Options: []string{"cat", "dog", "bird", "fish"}, CorrectAnswer: "dog",
				Hints: []string{"It barks."}, Explanation: "\"Perro\" means dog."},
			{Question: "How do you say \"cat\"?", Options: []string{"gato", "pez", "perro", "pájaro"}, CorrectAnswer: "gato",
				Hints: []string{"It says meow."}, Explanation: "\"Gato\" means cat."},
			{Question: "Which animal sings?", Options: []string{"pez", "gato", "perro", "pájaro"}, CorrectAnswer: "pájaro",
				Hints: []string{"It has wings."}, Explanation: "\"Pájaro\" means bird."},
		},
		keyPoints: []string{"Use \"el\" before most animal names."},
	},
	"numbers": {
		vocabulary: []VocabularyItem{
			{Word: "uno", Translation: "one", Phonetic: "OO-noh", Example: "Tengo un libro."},
			{Word: "dos", Translation: "two", Phonetic: "dohs", Example: "Tengo dos manos."},
			{Word: "tres", Translation: "three", Phonetic: "trehs", Example: "Hay tres gatos."},
			{Word: "cuatro", Translation: "four", Phonetic: "KWAH-troh", Example: "La mesa tiene cuatro patas."},
		},
		exercises: []Exercise{
			{Question: "What does \"dos\" mean?", Options: []string{"one", "three", "two", "four"}, CorrectAnswer: "two",
				Hints: []string{"You have this many hands."}, Explanation: "\"Dos\" means two."},
			{Question: "How do you say \"four\"?", Options: []string{"cuatro", "uno", "tres", "dos"}, CorrectAnswer: "cuatro",
				Hints: []string{"A table has this many legs."}, Explanation: "\"Cuatro\" means four."},
			{Question: "Which number comes after \"dos\"?", Options: []string{"uno", "tres", "cuatro", "dos"}, CorrectAnswer: "tres",
				Hints: []string{"Count: uno, dos..."}, Explanation: "\"Tres\" comes after \"dos\"."},
		},
		keyPoints: []string{"\"Uno\" becomes \"un\" before a masculine noun."},
	},
}

var greetingsTemplate = template{
	vocabulary: []VocabularyItem{
		{Word: "hola", Translation: "hello", Phonetic: "OH-lah", Example: "¡Hola, amigo!"},
		{Word: "adiós", Translation: "goodbye", Phonetic: "ah-DYOHS", Example: "Adiós, mamá."},
		{Word: "gracias", Translation: "thank you", Phonetic: "GRAH-syahs", Example: "Gracias por la comida."},
		{Word: "por favor", Translation: "please", Phonetic: "pohr fah-BOHR", Example: "Agua, por favor."},
	},
	exercises: []Exercise{
		{Question: "What does \"hola\" mean?", Options: []string{"goodbye", "hello", "please", "thank you"}, CorrectAnswer: "hello",
			Hints: []string{"You say it when you meet someone."}, Explanation: "\"Hola\" means hello."},
		{Question: "How do you say \"thank you\"?", Options: []string{"por favor", "adiós", "gracias", "hola"}, CorrectAnswer: "gracias",
			Hints: []string{"You say it after getting a gift."}, Explanation: "\"Gracias\" means thank you."},
		{Question: "What do you say when you leave?", Options: []string{"hola", "gracias", "por favor", "adiós"}, CorrectAnswer: "adiós",
			Hints: []string{"Wave while you say it."}, Explanation: "\"Adiós\" means goodbye."},
	},
	keyPoints: []string{"Be polite with \"por favor\" and \"gracias\"."},
}

// FallbackLesson returns a built-in lesson. Known topics get a matching
// template; anything else gets the greetings lesson. The result is always
// structurally valid.
func FallbackLesson(topic string) *Lesson {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "greetings"
	}
	key := strings.ToLower(topic)
	tmpl, ok := templates[key]
	if !ok {
		tmpl = greetingsTemplate
	}

	l := &Lesson{
		ID:           "fallback-" + key,
		Topic:        topic,
		Introduction: fmt.Sprintf("Let's practice some words about %s!", topic),
		Vocabulary:   append([]VocabularyItem(nil), tmpl.vocabulary...),
		Exercises:    make([]Exercise, len(tmpl.exercises)),
		Summary: Summary{
			Congratulations: "Great job! You finished the lesson.",
			KeyPoints:       append([]string(nil), tmpl.keyPoints...),
		},
		Fallback: true,
	}
	for i, ex := range tmpl.exercises {
		ex.Type = DefaultExerciseType
		ex.ExperienceReward = DefaultExerciseReward
		ex.Options = append([]string(nil), ex.Options...)
		ex.Hints = append([]string(nil), ex.Hints...)
		l.Exercises[i] = ex
	}
	for _, v := range l.Vocabulary {
		l.Summary.PracticeWords = append(l.Summary.PracticeWords, v.Word)
	}
	return l
}
