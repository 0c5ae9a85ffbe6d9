package enum

import (
	"strings"

	"github.com/yanun0323/errors"
)

// SourceKind tags which feed family an event came from. Strategies
// register for exactly one kind.
type SourceKind uint8

const (
	_source_kind_beg SourceKind = iota
	SourceCTP
	SourceXTP
	SourceCSV
	SourceFutures
	SourceStock
	_source_kind_end
)

var sourceKindNames = [...]string{
	SourceCTP:     "ctp",
	SourceXTP:     "xtp",
	SourceCSV:     "csv",
	SourceFutures: "futures",
	SourceStock:   "stock",
}

func (k SourceKind) IsAvailable() bool {
	return k > _source_kind_beg && k < _source_kind_end
}

func (k SourceKind) String() string {
	if !k.IsAvailable() {
		return "unknown"
	}
	return sourceKindNames[k]
}

// ParseSourceKind accepts the lower or upper case kind name.
func ParseSourceKind(s string) (SourceKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := _source_kind_beg + 1; k < _source_kind_end; k++ {
		if sourceKindNames[k] == s {
			return k, nil
		}
	}
	return _source_kind_beg, errors.Errorf("unknown source kind %q", s)
}
