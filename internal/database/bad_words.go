package database

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lingoquest/internal/logger"
)

// SeedBadWords fetches the bad words list from url and seeds the table if it is empty
func (db *DB) SeedBadWords(ctx context.Context, url string, log *logger.Logger) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bad_words").Scan(&count); err != nil {
		return fmt.Errorf("failed to check bad words count: %w", err)
	}

	if count > 0 {
		log.Info("Bad words filter already populated", "count", count)
		return nil
	}

	log.Info("Downloading bad words list", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build bad words request: %w", err)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download bad words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from bad words URL: %d", resp.StatusCode)
	}

	added, err := db.LoadBadWords(ctx, resp.Body)
	if err != nil {
		return err
	}

	log.Info("Bad words filter populated", "count", added)
	return nil
}

// LoadBadWords inserts one word per line from r, skipping blanks and duplicates
func (db *DB) LoadBadWords(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	wordsAdded := 0

	query := db.Dialect.UpsertQuery("bad_words", []string{"word"}, []string{"word"}, nil)
	err := db.WithTx(ctx, func(tx *Tx) error {
		stmt, err := tx.PrepareContext(ctx, db.Dialect.RewriteQuery(query))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for scanner.Scan() {
			word := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if word == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, word); err != nil {
				return fmt.Errorf("failed to insert bad word: %w", err)
			}
			wordsAdded++
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("error reading bad words: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return wordsAdded, nil
}

// IsBadWord checks if a word is in the bad words list
func (db *DB) IsBadWord(ctx context.Context, word string) (bool, error) {
	cleanWord := strings.TrimSpace(strings.ToLower(word))

	var count int
	query := "SELECT COUNT(*) FROM bad_words WHERE word = ?"
	if err := db.QueryRowContext(ctx, query, cleanWord).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check bad word: %w", err)
	}

	return count > 0, nil
}

// ValidateWords checks a list of words against the bad words filter
// Returns the list of bad words found
func (db *DB) ValidateWords(ctx context.Context, words []string) ([]string, error) {
	if len(words) == 0 {
		return nil, nil
	}

	var badWords []string
	for _, word := range words {
		isBad, err := db.IsBadWord(ctx, word)
		if err != nil {
			return nil, err
		}
		if isBad {
			badWords = append(badWords, word)
		}
	}

	return badWords, nil
}
