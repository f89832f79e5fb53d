package vet

import (
	"fmt"

	"github.com/ichiban/prolog"
)

// Program loads candidate Prolog source into a fresh interpreter and
// reports the first load error. Machine-generated programs pass through
// this gate before the statement parser sees them; the statement parser
// is deliberately more liberal than ISO, so the interpreter is the one
// that catches real syntax damage.
func Program(src string) error {
	p := prolog.New(nil, nil)
	if err := p.Exec(src); err != nil {
		return fmt.Errorf("vet: %w", err)
	}
	return nil
}
