// Package source delivers raw match records that are not yet cached.
package source

import (
	"context"
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/pable/atlas-metrics/internal/model"
)

// Source yields every raw record whose game id is not in known.
type Source interface {
	Scan(ctx context.Context, known map[string]struct{}) ([]model.RawRecord, error)
}

// Static serves records held in memory, typically loaded from a JSON export.
type Static struct {
	Records []model.RawRecord
}

// LoadStatic reads a JSON array of raw records.
func LoadStatic(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read records file")
	}
	var records []model.RawRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, errors.Wrapf(err, "failed to parse records file %s", path)
	}
	return &Static{Records: records}, nil
}

func (s *Static) Scan(ctx context.Context, known map[string]struct{}) ([]model.RawRecord, error) {
	out := make([]model.RawRecord, 0, len(s.Records))
	for _, r := range s.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := known[r.GameID()]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
