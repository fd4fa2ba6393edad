package facility

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// brokenRows yields a fixed number of rows and then reports a stream error,
// the shape a result set takes when the connection drops mid-query.
type brokenRows struct {
	remaining int
	streamErr error
}

var _ pgx.Rows = (*brokenRows)(nil)

func (r *brokenRows) Next() bool {
	if r.remaining > 0 {
		r.remaining--
		return true
	}
	return false
}

func (r *brokenRows) Scan(dest ...any) error {
	for _, d := range dest {
		switch v := d.(type) {
		case *uuid.UUID:
			*v = uuid.New()
		case *string:
			*v = "row-value"
		case *int:
			*v = 1
		case *bool:
			*v = true
		case *time.Time:
			*v = time.Now()
		}
	}
	return nil
}

func (r *brokenRows) Err() error                                   { return r.streamErr }
func (r *brokenRows) Close()                                       {}
func (r *brokenRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *brokenRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *brokenRows) Values() ([]any, error)                       { return nil, nil }
func (r *brokenRows) RawValues() [][]byte                          { return nil }
func (r *brokenRows) Conn() *pgx.Conn                              { return nil }

func TestCollectFacilities_StreamErrorNotTruncated(t *testing.T) {
	streamErr := errors.New("connection reset mid-stream")

	facilities, err := collectFacilities(&brokenRows{remaining: 2, streamErr: streamErr})

	if !errors.Is(err, streamErr) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if facilities != nil {
		t.Errorf("expected no partial result on stream error, got %d rows", len(facilities))
	}
}

func TestCollectFacilities_CompleteStream(t *testing.T) {
	facilities, err := collectFacilities(&brokenRows{remaining: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facilities) != 2 {
		t.Errorf("expected 2 facilities, got %d", len(facilities))
	}
}

func TestCollectAssignments_StreamErrorNotTruncated(t *testing.T) {
	streamErr := errors.New("unexpected EOF")

	assignments, err := collectAssignments(&brokenRows{remaining: 1, streamErr: streamErr})

	if !errors.Is(err, streamErr) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if assignments != nil {
		t.Errorf("expected no partial result on stream error, got %d rows", len(assignments))
	}
}
