package resync

import (
	"encoding/json"
	stderrors "errors"
)

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr)
}
