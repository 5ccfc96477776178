package pack

// nativeShims maps node builtin module names to the npm package that
// emulates them in the browser. An empty value means there is no useful
// emulation: the builtin resolves to an empty module. On the nodejs target
// the table is consulted only to recognise builtins, which are left to the
// host runtime.
var nativeShims = map[string]string{
	"assert":         "assert",
	"buffer":         "buffer",
	"child_process":  "",
	"cluster":        "",
	"console":        "console-browserify",
	"constants":      "constants-browserify",
	"crypto":         "crypto-browserify",
	"dgram":          "",
	"dns":            "",
	"domain":         "domain-browser",
	"events":         "events",
	"fs":             "",
	"http":           "stream-http",
	"https":          "https-browserify",
	"module":         "",
	"net":            "",
	"os":             "os-browserify",
	"path":           "path-browserify",
	"process":        "process",
	"punycode":       "punycode",
	"querystring":    "querystring-es3",
	"readline":       "",
	"repl":           "",
	"stream":         "stream-browserify",
	"string_decoder": "string_decoder",
	"sys":            "util",
	"timers":         "timers-browserify",
	"tls":            "",
	"tty":            "tty-browserify",
	"url":            "url",
	"util":           "util",
	"vm":             "vm-browserify",
	"zlib":           "browserify-zlib",
}

// keywordShim is the prepend statement synthesised when a global node
// identifier shows up in a script. requires names the shim module pulled in
// alongside, empty when the statement needs none.
type keywordShim struct {
	requires string
	prepend  string // %s expands to the rebased path of the shim module
}

var keywordShims = map[string]keywordShim{
	"process":        {requires: "process", prepend: "var process = require(%s);\n"},
	"Buffer":         {requires: "buffer", prepend: "var Buffer = require(%s).Buffer;\n"},
	"setImmediate":   {requires: "timers", prepend: "var setImmediate = require(%s).setImmediate;\n"},
	"clearImmediate": {requires: "timers", prepend: "var clearImmediate = require(%s).clearImmediate;\n"},
	"global":         {prepend: "var global = typeof window !== \"undefined\" ? window : this;\n"},
}
