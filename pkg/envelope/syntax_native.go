//go:build (amd64 && go1.17 && !go1.27) || (arm64 && go1.20 && !go1.27)

package envelope

import (
	"errors"

	"github.com/bytedance/sonic/decoder"

	"cexws/pkg/core"
)

// syntaxError strips the source text sonic attaches to its syntax errors.
func syntaxError(err error) error {
	var ptr *decoder.SyntaxError
	if errors.As(err, &ptr) {
		return &core.SyntaxError{Offset: ptr.Pos, Msg: ptr.Message()}
	}
	var val decoder.SyntaxError
	if errors.As(err, &val) {
		return &core.SyntaxError{Offset: val.Pos, Msg: val.Message()}
	}
	return errMalformed
}
