//go:build !((amd64 && go1.17 && !go1.27) || (arm64 && go1.20 && !go1.27))

package envelope

import (
	"encoding/json"
	"errors"

	"cexws/pkg/core"
)

// syntaxError keeps the offset and message of the encoding/json error sonic
// falls back to on this platform.
func syntaxError(err error) error {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return &core.SyntaxError{Offset: int(se.Offset), Msg: se.Error()}
	}
	return errMalformed
}
