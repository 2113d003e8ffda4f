package report

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidReport is wrapped by *ValidationError.
var ErrInvalidReport = errors.New("invalid report")

//go:embed schema.json
var schemaJSON []byte

// Schema returns the embedded JSON schema reports are validated against.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

// ValidationError lists every problem found in a report.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidReport, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidReport
}

// ValidateJSON checks data against the report schema, then checks that the
// AB-BA and non-AB-BA counts cover the network's edges.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
		}

		return &ValidationError{Problems: problems}
	}

	var rep Report

	err = NewJSONCodec().Decode(bytes.NewReader(data), &rep)
	if err != nil {
		return err
	}

	return checkCounts(rep)
}

func checkCounts(rep Report) error {
	var problems []string

	ab, other := len(rep.Differentials.ABBA), len(rep.Differentials.NonABBA)

	if 2*ab+other != rep.Network.Edges {
		problems = append(problems,
			fmt.Sprintf("differentials: 2*%d+%d does not equal %d edges", ab, other, rep.Network.Edges))
	}

	if rep.Pairs != ab {
		problems = append(problems, fmt.Sprintf("pairs: %d but %d AB-BA differences", rep.Pairs, ab))
	}

	if rep.Summary.ABBA.Count != ab || rep.Summary.NonABBA.Count != other {
		problems = append(problems, "summary: counts do not match differentials")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}
