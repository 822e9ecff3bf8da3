package checkout

import "fmt"

// Kind classifies why a basket was rejected. The request layer maps kinds
// to transport status codes.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidQuantity   Kind = "invalid_quantity"
	KindOutOfStock        Kind = "out_of_stock"
	KindInsufficientStock Kind = "insufficient_stock"
	KindConflict          Kind = "concurrency_conflict"
)

// RejectError reports a basket that was not admitted. Line is the index of
// the offending basket line, or -1 when the basket as a whole is invalid.
type RejectError struct {
	Kind      Kind
	Line      int
	ProductID string
	Reason    string
}

func (e *RejectError) Error() string {
	return e.Reason
}

func reject(kind Kind, line int, productID, format string, args ...any) *RejectError {
	return &RejectError{
		Kind:      kind,
		Line:      line,
		ProductID: productID,
		Reason:    fmt.Sprintf(format, args...),
	}
}
