package convert

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aspectumapp/osm2geojson/internal/element"
)

// Conversion failure taxonomy. All of these are local to the element
// being processed: by default the element is skipped and a diagnostic is
// recorded, while strict mode aborts the run on the first occurrence.
var (
	// ErrUnresolvedReference means a referenced node/way/relation id is
	// absent from the reference index (or a ref chain loops).
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrDegenerateGeometry means an element has no coordinate source or
	// fewer than two coordinates.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrInvalidGeometry means validity repair did not produce a valid
	// shape.
	ErrInvalidGeometry = errors.New("invalid geometry not repairable")
	// ErrAssemblyFailure means a relation could not be assembled: no
	// resolvable outer run, an invalid outer base, or no usable member
	// lines.
	ErrAssemblyFailure = errors.New("relation assembly failed")
	// ErrUnsupportedMember means a relation member is neither a way nor
	// a nested relation where one is expected.
	ErrUnsupportedMember = errors.New("unsupported member type")
)

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one structured event emitted while converting. The
// converter never branches on emitted diagnostics; they are output only.
type Diagnostic struct {
	Severity    Severity
	Err         error // taxonomy sentinel, matchable with errors.Is
	Message     string
	ElementType string
	ElementID   int64
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (%s/%d)", d.Severity, d.Message, d.ElementType, d.ElementID)
}

// warn records a diagnostic for el and logs it. In strict mode it
// returns an error that aborts the run; otherwise the caller continues.
func (r *run) warn(sentinel error, el *element.Element, msg string) error {
	d := Diagnostic{
		Severity: SeverityWarning,
		Err:      sentinel,
		Message:  msg,
	}
	if el != nil {
		d.ElementType = el.Type
		d.ElementID = el.ID
		if d.ElementID == 0 {
			d.ElementID = el.Ref
		}
	}
	r.diags = append(r.diags, d)
	r.log.Warn(msg,
		zap.String("element", d.ElementType),
		zap.Int64("id", d.ElementID),
		zap.NamedError("reason", sentinel))

	if r.opts.Strict {
		return fmt.Errorf("%s %s/%d: %w", msg, d.ElementType, d.ElementID, sentinel)
	}
	return nil
}
