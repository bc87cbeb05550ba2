package diag

import "go.uber.org/multierr"

// Bag collects diagnostics in report order. It is not safe for concurrent
// use; give each pipeline its own Bag.
type Bag struct {
	items      []Diagnostic
	errorCount int
	warnCount  int
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{}
}

// Report adds d to the bag.
func (b *Bag) Report(d Diagnostic) {
	b.items = append(b.items, d)
	switch d.Severity {
	case Error:
		b.errorCount++
	case Warning:
		b.warnCount++
	}
}

// Diagnostics returns the collected diagnostics.
func (b *Bag) Diagnostics() []Diagnostic {
	return b.items
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int { return len(b.items) }

// HasErrors reports whether any error-severity diagnostic was recorded.
func (b *Bag) HasErrors() bool { return b.errorCount > 0 }

// ErrorCount returns the number of errors.
func (b *Bag) ErrorCount() int { return b.errorCount }

// WarningCount returns the number of warnings.
func (b *Bag) WarningCount() int { return b.warnCount }

// OfKind returns the diagnostics of kind k.
func (b *Bag) OfKind(k Kind) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// Err folds every error-severity diagnostic into a single error, or returns
// nil when there are none.
func (b *Bag) Err() error {
	var err error
	for _, d := range b.items {
		if d.Severity == Error {
			err = multierr.Append(err, d)
		}
	}
	return err
}
