package shellmux

import "go.uber.org/zap"

// zapErr is a small convenience wrapper so call sites don't need to import
// zap just to log one error field.
func zapErr(err error) zap.Field {
	return zap.Error(err)
}
