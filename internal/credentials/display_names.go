package credentials

import (
	"crypto/rand"
	"math/big"
)

// Word lists for generating kid-friendly display names
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "cool", "swift", "clever", "jolly",
	"mighty", "super", "wild", "funny", "lucky", "magic", "bouncy", "cheerful",
	"daring", "eager", "gentle", "jazzy", "lively", "merry", "perky", "zippy",
}

var nouns = []string{
	"dragon", "tiger", "eagle", "dolphin", "panda", "lion", "fox", "owl",
	"rocket", "wizard", "robot", "explorer", "comet", "llama", "parrot", "jaguar",
	"turtle", "koala", "penguin", "otter", "falcon", "unicorn", "captain", "ranger",
}

// GenerateDisplayName returns a random "adjective-noun" name such as "happy-dragon".
func GenerateDisplayName() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return adjective + "-" + noun, nil
}

func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
