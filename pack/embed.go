package pack

import (
	_ "embed"
)

//go:embed loader/require.js
var loaderJS string
