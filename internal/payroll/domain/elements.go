package domain

import "fmt"

// ElementKey is the stable business key of a pay element
type ElementKey string

const (
	ElementBasicSalary  ElementKey = "Basic Salary"
	ElementPAYE         ElementKey = "PAYE"
	ElementNSSFEmployee ElementKey = "NSSF Employee"
	ElementNSSFEmployer ElementKey = "NSSF Employer"
)

// RequiredSystemElements lists the keys every calculator depends on
var RequiredSystemElements = []ElementKey{
	ElementBasicSalary,
	ElementPAYE,
	ElementNSSFEmployee,
	ElementNSSFEmployer,
}

// SystemElements maps the required system keys to catalog IDs
type SystemElements struct {
	BasicSalary  string
	PAYE         string
	NSSFEmployee string
	NSSFEmployer string
}

// ResolveSystemElements picks the required system elements out of a catalog.
// A missing key fails with ErrMissingSystemElement naming the key.
func ResolveSystemElements(catalog []PayElement) (SystemElements, error) {
	byKey := make(map[ElementKey]string, len(catalog))
	for _, el := range catalog {
		if el.IsSystemDefined {
			byKey[el.Key] = el.ID
		}
	}

	for _, key := range RequiredSystemElements {
		if byKey[key] == "" {
			return SystemElements{}, fmt.Errorf("%w: %q", ErrMissingSystemElement, key)
		}
	}

	return SystemElements{
		BasicSalary:  byKey[ElementBasicSalary],
		PAYE:         byKey[ElementPAYE],
		NSSFEmployee: byKey[ElementNSSFEmployee],
		NSSFEmployer: byKey[ElementNSSFEmployer],
	}, nil
}
