package corpus

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractCat handles OpenDocument text and RTF through lu4p/cat, which
// sniffs the format from the content.
func extractCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}
