// Package adapter converts raw subdomain documents into id-keyed records.
package adapter

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/record"
	"github.com/sells-group/corpus-cli/internal/validate"
)

// ErrShape is returned when a document does not have the top-level shape
// an adapter expects.
var ErrShape = eris.New("adapter: unexpected document shape")

// Adapter shapes one subdomain's raw document into an ordered
// id → record mapping.
type Adapter interface {
	// Name returns the configuration name of the variant (e.g., "body").
	Name() string

	// Shape converts doc into records keyed by a stable identifier.
	// Records that do not fit the variant are skipped and logged; a
	// document that does not fit at all returns ErrShape.
	Shape(subdomain string, doc record.Value) (*record.Object, error)
}

// Output is a shaped subdomain after the validity filter.
type Output struct {
	Entries  []validate.Entry
	Shaped   int
	Rejected int
}

// Corpus shapes doc with a and passes the result through the validity
// filter.
func Corpus(a Adapter, subdomain string, doc record.Value) (*Output, error) {
	shaped, err := a.Shape(subdomain, doc)
	if err != nil {
		return nil, eris.Wrapf(err, "adapter: %s shape %s", a.Name(), subdomain)
	}
	entries, rejected := validate.ValidCorpus(shaped)
	return &Output{
		Entries:  entries,
		Shaped:   shaped.Len(),
		Rejected: rejected,
	}, nil
}

// IDGenerator mints identifiers for records that have no natural key.
type IDGenerator interface {
	ID(subdomain string, index int) string
}

// IDMode selects an IDGenerator.
type IDMode string

const (
	// IDModeStable derives a name-based UUID from subdomain and position,
	// so repeated runs over the same files agree.
	IDModeStable IDMode = "stable"
	// IDModeTime mints a fresh time-based UUID per record.
	IDModeTime IDMode = "time"
)

// NewIDGenerator returns the generator for mode.
func NewIDGenerator(mode string) (IDGenerator, error) {
	switch IDMode(mode) {
	case "", IDModeStable:
		return StableIDs{}, nil
	case IDModeTime:
		return TimeIDs{}, nil
	default:
		return nil, eris.Errorf("adapter: unknown id mode %q (valid: stable, time)", mode)
	}
}

// StableIDs derives version 5 UUIDs from the subdomain name and position.
type StableIDs struct{}

// ID implements IDGenerator.
func (StableIDs) ID(subdomain string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(subdomain+"/"+strconv.Itoa(index))).String()
}

// TimeIDs mints version 1 (time and node) UUIDs.
type TimeIDs struct{}

// ID implements IDGenerator.
func (TimeIDs) ID(string, int) string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// recordID returns the record's own "id" field rendered as text, if any.
func recordID(v record.Value) (string, bool) {
	obj, ok := v.(*record.Object)
	if !ok {
		return "", false
	}
	id, ok := obj.Get("id")
	if !ok {
		return "", false
	}
	return record.Render(id), true
}
