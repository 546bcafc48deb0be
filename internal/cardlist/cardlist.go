// Package cardlist extracts the ordered card list from the game client's
// FullCardList asset and turns it into the site's card index.
package cardlist

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const listKey = "_cardNameOrderedList:"

// Card is one entry of the index. ID is the position in the asset list.
type Card struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Document is the content of cardlist.json.
type Document struct {
	Version     string            `json:"version"`
	Total       int               `json:"total"`
	Cards       []Card            `json:"cards"`
	LegacyNames map[string]string `json:"legacy_names"`
}

// Extract returns the "- name" items that directly follow the ordered list
// key. The list ends at the first line that is not an item.
func Extract(r io.Reader) ([]string, error) {
	var names []string
	inList := false
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inList {
			inList = line == listKey
			continue
		}
		name, ok := strings.CutPrefix(line, "- ")
		if !ok {
			break
		}
		names = append(names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read card list asset")
	}
	return names, nil
}

// ExtractFile runs Extract over the asset at path.
func ExtractFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open card list asset")
	}
	defer f.Close()
	return Extract(f)
}

// Build numbers the names in asset order.
func Build(names []string, version string, legacy map[string]string) Document {
	cards := make([]Card, len(names))
	for i, n := range names {
		cards[i] = Card{ID: i, Name: n}
	}
	if legacy == nil {
		legacy = map[string]string{}
	}
	return Document{Version: version, Total: len(cards), Cards: cards, LegacyNames: legacy}
}
