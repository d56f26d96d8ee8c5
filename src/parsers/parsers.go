package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/fundfolio/backend/src/models"
)

// Result is the outcome of parsing one trade-log file. Row-level problems
// are skipped and counted rather than failing the whole file; only
// structural problems (unreadable file, unresolvable columns) are errors.
type Result struct {
	Trades      []models.Trade
	SkippedRows int
}

// Parser converts an uploaded trade-log file into validated trades.
type Parser interface {
	Parse(file io.Reader) (*Result, error)
}

var registry = map[string]Parser{}

// Register makes a parser available under a source name. Source names are
// matched case-insensitively.
func Register(source string, p Parser) {
	registry[strings.ToLower(source)] = p
}

// GetParser returns the parser registered for the given source.
func GetParser(source string) (Parser, error) {
	p, ok := registry[strings.ToLower(source)]
	if !ok {
		return nil, fmt.Errorf("no parser registered for source %q", source)
	}
	return p, nil
}
