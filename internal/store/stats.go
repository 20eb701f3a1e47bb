package store

import (
	"context"
	"os"
)

// Stats holds chain statistics.
type Stats struct {
	Backend     string `json:"backend"`
	Order       int    `json:"order"`
	DBPath      string `json:"db_path,omitempty"`
	DBSizeBytes int64  `json:"db_size_bytes,omitempty"`
	Words       int64  `json:"words"`
	States      int64  `json:"states"`
	Transitions int64  `json:"transitions"`
	TotalWeight int64  `json:"total_weight"`
}

// Stats returns database statistics.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: s.dialect.name, Order: s.order, DBPath: s.path}

	// DB file size
	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	counts := []struct {
		dst   *int64
		query string
	}{
		{&st.Words, `SELECT COUNT(*) FROM word`},
		{&st.States, `SELECT COUNT(*) FROM transition_from`},
		{&st.Transitions, `SELECT COUNT(*) FROM transition`},
		{&st.TotalWeight, `SELECT COALESCE(SUM(weight), 0) FROM transition`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return st, err
		}
	}
	return st, nil
}
