package helper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id.String(), nil
}

// pretty print
func PrettyPrint(v any) {
	fmt.Println(PrettyJSON(v))
}

// PrettyJSON returns v as indented JSON, or an empty string when it cannot be encoded.
func PrettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return ""
	}
	return string(b)
}

// PathExists reports whether path exists. Errors other than not-exist are returned.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// create folder if it does not exist
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return nil
}

// RemoveFolder deletes path and everything below it; a missing path is not an error.
func RemoveFolder(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove folder %s: %w", path, err)
	}
	return nil
}
