package validation

var (
	ScoldLines   = scoldLines
	DefaultHints = defaultHints
)
