package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"sortec/entity"
	"sortec/lib/validate"
)

const DefaultCodePrefix = "SORTEC"

// CodeGenerator derives contest codes: prefix, the initials of the given and
// family names, and the correlative padded to three digits. Uniqueness comes
// from the correlative alone.
type CodeGenerator struct {
	Prefix string
}

func NewCodeGenerator(prefix string) CodeGenerator {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	return CodeGenerator{Prefix: prefix}
}

func (g CodeGenerator) Generate(givenNames, familyNames string, correlative int64) (string, error) {
	verr := &entity.ValidationError{}
	given := initial(givenNames)
	if given == "" {
		verr.Fields = append(verr.Fields, validate.FieldError{Field: "given_names", Rule: "required"})
	}
	family := initial(familyNames)
	if family == "" {
		verr.Fields = append(verr.Fields, validate.FieldError{Field: "family_names", Rule: "required"})
	}
	if correlative < 0 {
		verr.Fields = append(verr.Fields, validate.FieldError{Field: "correlative", Rule: "min"})
	}
	if len(verr.Fields) > 0 {
		return "", verr
	}
	return fmt.Sprintf("%s%s%s%03d", g.Prefix, given, family, correlative), nil
}

func initial(fragment string) string {
	fragment = strings.ToUpper(strings.TrimSpace(fragment))
	if fragment == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(fragment)
	return string(r)
}
