package fraud

import (
	"fmt"

	"github.com/richxcame/trust-risk/pkg/common"
	"github.com/richxcame/trust-risk/pkg/validation"
)

// ValidateID accepts positive integers and UUIDs, the two id formats the
// stores use. Anything else is a contract error.
func ValidateID(field, id string) error {
	if validation.IsRecordID(id) {
		return nil
	}
	return common.NewBadRequestError(fmt.Sprintf("invalid %s: must be a positive integer or UUID", field), nil)
}
