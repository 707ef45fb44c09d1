// SPDX-License-Identifier: MPL-2.0

package filtering

import (
	"os"

	"vaultpack/internal/issue"
	"vaultpack/pkg/cueutil"
)

// propertiesSchema validates the shape of a properties file: a single
// values struct mapping token names to replacement strings.
const propertiesSchema = `
#Properties: {
	values: [string]: string
}
`

type propertiesDoc struct {
	Values map[string]string `json:"values"`
}

// LoadProperties reads a CUE properties file and returns the token
// replacement map for the filterer.
func LoadProperties(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load filter properties").
			WithResource(path).
			WithSuggestion("Check that the properties file exists and is readable").
			Wrap(err).
			BuildError()
	}

	result, err := cueutil.ParseAndDecodeString[propertiesDoc](
		propertiesSchema, data, "#Properties", cueutil.WithFilename(path))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse filter properties").
			WithResource(path).
			WithSuggestion("Check the CUE syntax of the properties file").
			WithSuggestion("Make sure every value under 'values' is a string").
			Wrap(err).
			BuildError()
	}

	if result.Value.Values == nil {
		return map[string]string{}, nil
	}
	return result.Value.Values, nil
}
