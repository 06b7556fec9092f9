package entity

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/taxcerts/internal/common"
)

// ParsePropertyID derives the property key from a raw id or an archive path.
//
//	"12345"                -> "12345"
//	"tax_certs_12345.zip"  -> "12345"
//	"/in/batch_7/a_9.ZIP"  -> "9"
func ParsePropertyID(input string) (string, error) {
	name := filepath.Base(strings.TrimSpace(input))
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		name = name[:len(name)-len(".zip")]
	}
	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "", common.NewAppError("INVALID_PROPERTY_ID", fmt.Sprintf("cannot derive property id from %q", input), common.ErrInvalidInput)
	}
	return name, nil
}
